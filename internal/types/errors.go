package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrClassTooSmall   = errors.New("class too small to stratify")
	ErrInvalidFraction = errors.New("test fraction must be in (0, 1)")
	ErrMissingColumn   = errors.New("required column missing")
	ErrEmptyDataset    = errors.New("dataset is empty")
	ErrNoModel         = errors.New("no trained model found")
	ErrEmptyHeadline   = errors.New("headline is empty")
	ErrUnknownLabel    = errors.New("prediction is not a known label")
	ErrBlocked         = errors.New("blocked by robots.txt")
	ErrInvalidURL      = errors.New("invalid URL")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while reading or writing the record store.
type StorageError struct {
	Backend  string
	Location string
	Err      error
}

func (e *StorageError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Location, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the processing pipeline.
type PipelineError struct {
	Stage  string
	Record Record
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StratifyError reports a class that cannot be split across train and test.
type StratifyError struct {
	Label string
	Count int
	Err   error
}

func (e *StratifyError) Error() string {
	return fmt.Sprintf("cannot stratify class %q with %d rows: %v", e.Label, e.Count, e.Err)
}

func (e *StratifyError) Unwrap() error { return e.Err }
