// Package repl provides the interactive headline classification prompt.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/IshaanNene/NewsSort/internal/classifier"
	"github.com/IshaanNene/NewsSort/internal/fetcher"
	"github.com/IshaanNene/NewsSort/internal/observability"
	"github.com/IshaanNene/NewsSort/internal/parser"
	"github.com/IshaanNene/NewsSort/internal/report"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// DefaultSelector picks headlines for the page command when none is given.
const DefaultSelector = `a[data-list-type="Paged Stories"]`

// REPL classifies headlines typed at a prompt.
type REPL struct {
	model   classifier.Model
	fetcher fetcher.Fetcher
	parser  parser.Parser
	metrics *observability.Metrics
	logger  *slog.Logger
	reader  *bufio.Reader
	out     io.Writer

	counts map[string]int
	total  int
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.reader = bufio.NewReader(in)
		r.out = out
	}
}

// WithFetcher enables the page command.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(r *REPL) { r.fetcher = f }
}

// WithMetrics counts predictions.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *REPL) { r.metrics = m }
}

// New creates a new REPL instance.
func New(model classifier.Model, logger *slog.Logger, opts ...Option) *REPL {
	r := &REPL{
		model:  model,
		parser: parser.NewCSSParser(logger),
		logger: logger.With("component", "repl"),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		counts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = observability.NewMetrics(logger)
	}
	return r
}

// Start runs the loop until exit, end of input or ctx is done.
func (r *REPL) Start(ctx context.Context) error {
	r.printf("NewsSort interactive classifier (%s, %d labels)\n", r.model.Kind(), len(r.model.Labels()))
	r.printf("   Type a headline to classify it, 'help' for commands, 'exit' to quit.\n\n")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.printf("newssort> ")
		line, err := r.reader.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				r.printf("\n")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch {
		case len(args) == 0 && (cmd == "help" || cmd == "?"):
			r.printHelp()
		case len(args) == 0 && (cmd == "exit" || cmd == "quit" || cmd == "q"):
			r.printf("Goodbye!\n")
			return nil
		case len(args) == 0 && cmd == "labels":
			r.cmdLabels()
		case len(args) == 0 && cmd == "stats":
			r.cmdStats()
		case len(args) == 0 && cmd == "clear":
			r.printf("\033[H\033[2J")
		case cmd == "page" && len(args) > 0 && strings.HasPrefix(args[0], "http"):
			r.cmdPage(ctx, args)
		default:
			r.classify(ctx, line)
		}
	}
}

func (r *REPL) printHelp() {
	r.printf(`
Available Commands:
  <headline>             Classify a headline
  page <url> [selector]  Fetch a listing page and classify every headline on it

  labels                 Show the labels the model can predict
  stats                  Show predictions made this session

  clear                  Clear the screen
  help                   Show this help
  exit                   Exit the prompt
`)
}

func (r *REPL) classify(ctx context.Context, headline string) {
	p, err := r.model.Predict(ctx, headline)
	if err != nil {
		r.metrics.PredictionErrors.Add(1)
		if errors.Is(err, types.ErrEmptyHeadline) {
			r.printf("Please enter a valid news headline.\n")
			return
		}
		r.printf("Error: %v\n", err)
		return
	}
	r.metrics.Predictions.Add(1)
	r.counts[p.Label]++
	r.total++
	r.printf("%s\n", formatPrediction(p))
}

func (r *REPL) cmdLabels() {
	for i, l := range r.model.Labels() {
		r.printf("  %2d  %s\n", i, l)
	}
}

func (r *REPL) cmdStats() {
	if r.total == 0 {
		r.printf("No predictions yet.\n")
		return
	}
	var records []types.Record
	for label, n := range r.counts {
		for range n {
			records = append(records, types.Record{Label: label})
		}
	}
	r.printf("Predictions: %d\n", r.total)
	report.RenderTable(r.out, []string{"Label", "Count", "Percent"}, report.DistributionRows(report.Distribution(records)))
}

func (r *REPL) cmdPage(ctx context.Context, args []string) {
	if r.fetcher == nil {
		r.printf("page is not available without a fetcher\n")
		return
	}
	selector := DefaultSelector
	if len(args) > 1 {
		selector = strings.Join(args[1:], " ")
	}

	req, err := types.NewRequest(args[0])
	if err != nil {
		r.printf("Error: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := r.fetcher.Fetch(ctx, req)
	if err != nil {
		r.printf("Error: %v\n", err)
		return
	}
	listing, err := r.parser.Parse(resp, parser.Rule{Selector: selector})
	if err != nil {
		r.printf("Error: %v\n", err)
		return
	}
	if len(listing.Records) == 0 {
		r.printf("No headlines matched %s\n", selector)
		return
	}

	for _, rec := range listing.Records {
		p, err := r.model.Predict(ctx, rec.Title)
		if err != nil {
			r.metrics.PredictionErrors.Add(1)
			r.printf("  %-16s %s\n", "error", rec.Title)
			continue
		}
		r.metrics.Predictions.Add(1)
		r.counts[p.Label]++
		r.total++
		r.printf("  %-16s %s\n", p.Label, rec.Title)
	}
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func formatPrediction(p classifier.Prediction) string {
	if p.Confidence > 0 {
		return fmt.Sprintf("Predicted Category: %s (%.1f%%)", p.Label, p.Confidence*100)
	}
	return "Predicted Category: " + p.Label
}
