// Package classifier trains headline classifiers and serves predictions.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// Model kinds.
const (
	KindNaiveBayes = "naive_bayes"
	KindLLM        = "llm"
)

// ModelFile is the file name Save writes inside a model directory.
const ModelFile = "model.json"

// Prediction is the label assigned to a headline. Confidence is in [0, 1]
// and is zero when the model cannot estimate it.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Model maps a headline to one of its labels.
type Model interface {
	// Predict classifies text. The label is always one of Labels().
	Predict(ctx context.Context, text string) (Prediction, error)

	// Labels returns the label set in a stable order.
	Labels() []string

	// Kind returns the model kind used for persistence.
	Kind() string
}

// Trainer fits a Model to labeled records.
type Trainer interface {
	Train(ctx context.Context, records []types.Record) (Model, error)
}

// Completer sends a prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Options configures trainers and loaded models.
type Options struct {
	// Alpha is the additive smoothing of naive Bayes. Zero means 1.
	Alpha float64

	// LLM backs the llm kind.
	LLM Completer

	// FewShot is the number of examples per label kept by the llm kind.
	FewShot int

	// Seed selects few-shot examples.
	Seed int64
}

// NewTrainer returns the trainer for kind.
func NewTrainer(kind string, opts Options) (Trainer, error) {
	switch kind {
	case KindNaiveBayes:
		return &NaiveBayesTrainer{Alpha: opts.Alpha}, nil
	case KindLLM:
		if opts.LLM == nil {
			return nil, fmt.Errorf("llm classifier requires a language model client")
		}
		return &LLMTrainer{Client: opts.LLM, FewShot: opts.FewShot, Seed: opts.Seed}, nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", kind)
	}
}

// envelope is the on-disk form of a saved model.
type envelope struct {
	Kind      string          `json:"kind"`
	Labels    []string        `json:"labels"`
	CreatedAt time.Time       `json:"created_at"`
	Model     json.RawMessage `json:"model"`
}

// Save writes model to dir/model.json.
func Save(dir string, model Model) error {
	body, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	data, err := json.MarshalIndent(envelope{
		Kind:      model.Kind(),
		Labels:    model.Labels(),
		CreatedAt: time.Now().UTC(),
		Model:     body,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model envelope: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ModelFile), data, 0o644)
}

// Load reads a model saved by Save. A missing model returns ErrNoModel.
func Load(dir string, opts Options) (Model, error) {
	path := filepath.Join(dir, ModelFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", types.ErrNoModel, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}

	switch env.Kind {
	case KindNaiveBayes:
		var nb NaiveBayes
		if err := json.Unmarshal(env.Model, &nb); err != nil {
			return nil, fmt.Errorf("decode naive bayes model: %w", err)
		}
		if err := nb.validate(); err != nil {
			return nil, err
		}
		return &nb, nil
	case KindLLM:
		if opts.LLM == nil {
			return nil, fmt.Errorf("llm model requires a language model client")
		}
		var m LLMModel
		if err := json.Unmarshal(env.Model, &m); err != nil {
			return nil, fmt.Errorf("decode llm model: %w", err)
		}
		m.client = opts.LLM
		return &m, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q in %s", env.Kind, path)
	}
}

// checkHeadline trims text and rejects blank input.
func checkHeadline(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", types.ErrEmptyHeadline
	}
	return text, nil
}
