package pipeline

import (
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// --- Scrape Ingestion Middleware ---

// HTMLSanitizeMiddleware strips HTML tags and entities from the title.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(rec *types.Record) (*types.Record, error) {
	if rec.Title == "" {
		return rec, nil
	}
	// Strip HTML tags
	cleaned := m.stripRe.ReplaceAllString(rec.Title, "")
	// Decode HTML entities
	cleaned = html.UnescapeString(cleaned)
	// Normalize whitespace
	rec.Title = strings.Join(strings.Fields(cleaned), " ")
	return rec, nil
}

// FieldValidateMiddleware validates field values with regex patterns.
type FieldValidateMiddleware struct {
	validations map[string]*regexp.Regexp // field -> validation pattern
	dropInvalid bool
}

func NewFieldValidateMiddleware(patterns map[string]string, dropInvalid bool) (*FieldValidateMiddleware, error) {
	compiled := make(map[string]*regexp.Regexp, len(patterns))
	for field, pattern := range patterns {
		if !types.IsColumn(field) {
			return nil, fmt.Errorf("unknown field %q", field)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid validation regex for %q: %w", field, err)
		}
		compiled[field] = re
	}
	return &FieldValidateMiddleware{
		validations: compiled,
		dropInvalid: dropInvalid,
	}, nil
}

func (m *FieldValidateMiddleware) Name() string { return "field_validate" }

func (m *FieldValidateMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for field, re := range m.validations {
		s := rec.Get(field)
		if re.MatchString(s) {
			continue
		}
		if m.dropInvalid {
			return nil, nil // Drop record
		}
		rec.Set(field, "") // Clear invalid field
	}
	return rec, nil
}

// MinWordsMiddleware drops records whose title has fewer than Min words.
// Navigation links such as "More" or "Next" are filtered this way.
type MinWordsMiddleware struct {
	Min int
}

func (m *MinWordsMiddleware) Name() string { return "min_words" }

func (m *MinWordsMiddleware) Process(rec *types.Record) (*types.Record, error) {
	if len(strings.Fields(rec.Title)) < m.Min {
		return nil, nil
	}
	return rec, nil
}

// NewIngestPipeline builds the chain that scraped records pass through before
// they reach the store. A non-empty label is applied to records that arrive
// without one.
func NewIngestPipeline(logger *slog.Logger, label string, minWords int) (*Pipeline, error) {
	validate, err := NewFieldValidateMiddleware(map[string]string{
		types.FieldLink: `^https?://`,
	}, true)
	if err != nil {
		return nil, err
	}

	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(&RequiredFieldsMiddleware{Fields: []string{types.FieldTitle, types.FieldLink}})
	p.Use(validate)
	if minWords > 0 {
		p.Use(&MinWordsMiddleware{Min: minWords})
	}
	if label != "" {
		p.Use(&DefaultValueMiddleware{Defaults: map[string]string{types.FieldLabel: label}})
	}
	return p, nil
}
