package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/NewsSort/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	in := types.Record{Title: "  Hello World  ", Link: " https://x.com/a ", Label: "Sports\n"}
	result, err := p.Process(in)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Hello World" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	if result.Link != "https://x.com/a" || result.Label != "Sports" {
		t.Errorf("expected trimmed link and label, got %+v", result)
	}
	if in.Title != "  Hello World  " {
		t.Error("input record must not be mutated")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "boom" }
func (failingMiddleware) Process(*types.Record) (*types.Record, error) {
	return nil, errors.New("boom")
}

func TestPipelineErrorNamesStage(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(failingMiddleware{})

	_, _, err := p.Run([]types.Record{{Title: "x"}})
	var pe *types.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if pe.Stage != "boom" {
		t.Errorf("expected stage boom, got %q", pe.Stage)
	}
}

// failOn rejects one title with an error and passes everything else.
type failOn string

func (f failOn) Name() string { return "fail_on" }

func (f failOn) Process(rec *types.Record) (*types.Record, error) {
	if rec.Title == string(f) {
		return nil, errors.New("cannot process")
	}
	return rec, nil
}

func TestFilterKeepsRecordsAroundFailures(t *testing.T) {
	p := New(testLogger)
	p.Use(failOn("bad"))
	p.Use(&RequiredFieldsMiddleware{Fields: []string{types.FieldLabel}})

	in := []types.Record{
		{Title: "one", Label: "A"},
		{Title: "bad", Label: "A"},
		{Title: "no label"},
		{Title: "two", Label: "B"},
	}

	if _, _, err := p.Run(in); err == nil {
		t.Fatal("Run should report the failing record")
	}

	got := p.Filter(in)
	if len(got) != 2 || got[0].Title != "one" || got[1].Title != "two" {
		t.Errorf("Filter = %+v, want one and two", got)
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{Fields: []string{"title", "label"}}

	// has required fields
	result, err := m.Process(&types.Record{Title: "Hello", Label: "World"})
	if err != nil || result == nil {
		t.Error("record with required fields should pass")
	}

	// whitespace-only label is dropped
	result, _ = m.Process(&types.Record{Title: "Hello", Label: "   "})
	if result != nil {
		t.Error("record with blank label should be dropped (nil)")
	}
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	rec := &types.Record{Title: `<p>Hello <b>World</b></p> &amp; <a href="x">link</a>`}

	result, err := m.Process(rec)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.Title != "Hello World & link" {
		t.Errorf("expected 'Hello World & link', got %q", result.Title)
	}
}

func TestCleanDropsMissingAndDuplicates(t *testing.T) {
	records := []types.Record{
		{Title: "A", Link: "1", Label: "Sports"},
		{Title: "", Link: "2", Label: "Sports"},
		{Title: "B", Link: "3", Label: ""},
		{Title: "A", Link: "1", Label: "Sports"},
		{Title: "A", Link: "4", Label: "Sports"},
		{Title: "C", Link: "5", Label: "Politics"},
	}

	got := Clean(records)
	want := []types.Record{
		{Title: "A", Link: "1", Label: "Sports"},
		{Title: "A", Link: "4", Label: "Sports"},
		{Title: "C", Link: "5", Label: "Politics"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	again := Clean(got)
	if len(again) != len(got) {
		t.Errorf("Clean should be idempotent: %d then %d", len(got), len(again))
	}
}

func TestCleanByKeySubset(t *testing.T) {
	records := []types.Record{
		{Title: "A", Link: "1", Label: "Sports"},
		{Title: "A", Link: "2", Label: "Sports"},
		{Title: "A", Link: "3", Label: "Politics"},
	}

	got := Clean(records, "title")
	if len(got) != 1 || got[0].Link != "1" {
		t.Errorf("expected only the first A to survive, got %+v", got)
	}

	got = Clean(records, "title", "label")
	if len(got) != 2 {
		t.Errorf("expected 2 records by title+label, got %d", len(got))
	}
}

func TestIngestPipeline(t *testing.T) {
	p, err := NewIngestPipeline(testLogger, "Technology", 2)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   types.Record
		keep bool
	}{
		{"valid", types.Record{Title: " New <b>chip</b> launched ", Link: "https://x.com/a"}, true},
		{"no link", types.Record{Title: "New chip launched"}, false},
		{"relative link", types.Record{Title: "New chip launched", Link: "/a"}, false},
		{"one word", types.Record{Title: "More", Link: "https://x.com/more"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Process(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if (out != nil) != tt.keep {
				t.Fatalf("keep=%v, got %+v", tt.keep, out)
			}
			if out != nil {
				if out.Title != "New chip launched" {
					t.Errorf("unexpected title %q", out.Title)
				}
				if out.Label != "Technology" {
					t.Errorf("expected default label, got %q", out.Label)
				}
			}
		})
	}
}

func TestDefaultValueKeepsExisting(t *testing.T) {
	m := &DefaultValueMiddleware{Defaults: map[string]string{"label": "Sports"}}
	out, _ := m.Process(&types.Record{Title: "x", Label: "Politics"})
	if out.Label != "Politics" {
		t.Errorf("existing label must be kept, got %q", out.Label)
	}
}
