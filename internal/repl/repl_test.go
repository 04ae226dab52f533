package repl

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/NewsSort/internal/classifier"
	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/fetcher"
	"github.com/IshaanNene/NewsSort/internal/observability"
	"github.com/IshaanNene/NewsSort/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// keywordModel predicts Sports for anything mentioning a match.
type keywordModel struct{}

func (keywordModel) Predict(_ context.Context, text string) (classifier.Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return classifier.Prediction{}, types.ErrEmptyHeadline
	}
	if strings.Contains(strings.ToLower(text), "match") {
		return classifier.Prediction{Label: "Sports", Confidence: 0.9}, nil
	}
	return classifier.Prediction{Label: "Politics", Confidence: 0.6}, nil
}

func (keywordModel) Labels() []string { return []string{"Politics", "Sports"} }
func (keywordModel) Kind() string     { return "stub" }

func run(t *testing.T, input string, opts ...Option) (string, *observability.Metrics) {
	t.Helper()
	var out bytes.Buffer
	m := observability.NewMetrics(testLogger)
	opts = append([]Option{WithIO(strings.NewReader(input), &out), WithMetrics(m)}, opts...)
	r := New(keywordModel{}, testLogger, opts...)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return out.String(), m
}

func TestREPLClassifies(t *testing.T) {
	out, m := run(t, "Harimau Malaya win match\nParliament passes bill\nexit\nnever read\n")

	for _, want := range []string{
		"Predicted Category: Sports (90.0%)",
		"Predicted Category: Politics (60.0%)",
		"Goodbye!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "never read") {
		t.Error("input after exit was processed")
	}
	if got := m.Predictions.Load(); got != 2 {
		t.Errorf("Predictions = %d, want 2", got)
	}
}

func TestREPLCommands(t *testing.T) {
	out, _ := run(t, "stats\nlabels\nhelp\nmatch day\nstats\n")

	tests := []string{
		"No predictions yet.",
		" 0  Politics",
		" 1  Sports",
		"Available Commands:",
		"Predictions: 1",
		"| Sports | 1     | 100.0%  |",
	}
	for _, want := range tests {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPLHeadlineStartingWithCommandWord(t *testing.T) {
	out, _ := run(t, "help wanted at local match\n")
	if !strings.Contains(out, "Predicted Category: Sports") {
		t.Errorf("multi-word line should be classified:\n%s", out)
	}
	if strings.Contains(out, "Available Commands:") {
		t.Error("multi-word line should not run help")
	}
}

func TestREPLPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
<a data-list-type="Paged Stories" href="/a">Cup match ends in draw</a>
<a data-list-type="Paged Stories" href="/b">Senate debates budget</a>
</body></html>`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	defer f.Close()

	out, m := run(t, "page "+srv.URL+"\n", WithFetcher(f))
	if !strings.Contains(out, "Sports           Cup match ends in draw") {
		t.Errorf("missing sports line:\n%s", out)
	}
	if !strings.Contains(out, "Politics         Senate debates budget") {
		t.Errorf("missing politics line:\n%s", out)
	}
	if got := m.Predictions.Load(); got != 2 {
		t.Errorf("Predictions = %d, want 2", got)
	}
}
