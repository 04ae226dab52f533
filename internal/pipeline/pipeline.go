package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop the record.
	Process(rec *types.Record) (*types.Record, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs a copy of rec through all middleware in order. The caller's
// record is never modified.
func (p *Pipeline) Process(rec types.Record) (*types.Record, error) {
	current := &rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:  mw.Name(),
				Record: *current,
				Err:    err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "title", rec.Title)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Run processes every record in order and returns the survivors as a new
// slice along with the number dropped.
func (p *Pipeline) Run(records []types.Record) ([]types.Record, int, error) {
	out := make([]types.Record, 0, len(records))
	dropped := 0
	for _, rec := range records {
		res, err := p.Process(rec)
		if err != nil {
			return nil, dropped, err
		}
		if res == nil {
			dropped++
			continue
		}
		out = append(out, *res)
	}
	return out, dropped, nil
}

// Filter is Run for callers that cannot stop on an error: a record that
// fails a stage is logged and left out, and the rest still come through.
func (p *Pipeline) Filter(records []types.Record) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, rec := range records {
		res, err := p.Process(rec)
		if err != nil {
			p.logger.Warn("record failed", "title", rec.Title, "error", err)
			continue
		}
		if res != nil {
			out = append(out, *res)
		}
	}
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// NewCleaner builds the cleaning chain: records missing a title or label are
// dropped, then duplicates by keys (full row when empty) are removed keeping
// the first occurrence.
func NewCleaner(logger *slog.Logger, keys ...string) *Pipeline {
	p := New(logger)
	p.Use(&RequiredFieldsMiddleware{Fields: []string{types.FieldTitle, types.FieldLabel}})
	p.Use(NewDedupMiddleware(keys...))
	return p
}

// Clean drops incomplete and duplicate records. It preserves input order and
// is idempotent.
func Clean(records []types.Record, keys ...string) []types.Record {
	return NewCleaner(slog.Default(), keys...).Filter(records)
}

// --- Built-in Middleware ---

// RequiredFieldsMiddleware drops records whose listed fields are blank.
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, field := range m.Fields {
		if strings.TrimSpace(rec.Get(field)) == "" {
			return nil, nil // Drop record
		}
	}
	return rec, nil
}

// DedupMiddleware drops records whose key was already seen.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
	keys []string // Fields forming the dedup key; empty means the full row
}

func NewDedupMiddleware(keys ...string) *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
		keys: keys,
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(rec *types.Record) (*types.Record, error) {
	key := rec.Key(m.keys...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil // Drop duplicate
	}
	m.seen[key] = struct{}{}
	return rec, nil
}

// DefaultValueMiddleware fills blank fields with default values.
type DefaultValueMiddleware struct {
	Defaults map[string]string
}

func (m *DefaultValueMiddleware) Name() string { return "default_values" }

func (m *DefaultValueMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for field, def := range m.Defaults {
		if def != "" && rec.Get(field) == "" {
			rec.Set(field, def)
		}
	}
	return rec, nil
}

// TrimMiddleware trims whitespace from all fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, field := range types.Columns {
		rec.Set(field, strings.TrimSpace(rec.Get(field)))
	}
	return rec, nil
}
