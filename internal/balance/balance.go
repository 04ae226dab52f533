// Package balance equalizes class sizes by synthesizing records for the
// smaller classes.
package balance

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/IshaanNene/NewsSort/internal/augment"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// Strategy selects how synthetic records are built.
type Strategy string

const (
	// StrategyOversample copies sampled records unchanged.
	StrategyOversample Strategy = "oversample"
	// StrategyAugment rewrites sampled titles by substitution or deletion.
	StrategyAugment Strategy = "augment"
)

// Options configures a Balancer.
type Options struct {
	Strategy     Strategy
	Shuffle      bool
	DeletionProb float64
}

// Balancer brings every class up to the size of the largest one.
type Balancer struct {
	opts      Options
	rng       *rand.Rand
	augmenter *augment.Augmenter
	logger    *slog.Logger

	// Progress, when set, is called after each synthetic record.
	Progress func(done, total int)
}

// New creates a Balancer. The thesaurus is only consulted by the augment
// strategy and may be nil otherwise.
func New(opts Options, rng *rand.Rand, thesaurus augment.Thesaurus, logger *slog.Logger) (*Balancer, error) {
	switch opts.Strategy {
	case StrategyOversample, StrategyAugment:
	default:
		return nil, fmt.Errorf("unknown balance strategy %q", opts.Strategy)
	}
	if opts.DeletionProb < 0 || opts.DeletionProb > 1 {
		return nil, fmt.Errorf("deletion probability must be in [0, 1], got %g", opts.DeletionProb)
	}

	return &Balancer{
		opts:      opts,
		rng:       rng,
		augmenter: augment.New(thesaurus, rng, opts.DeletionProb, logger),
		logger:    logger.With("component", "balancer", "strategy", string(opts.Strategy)),
	}, nil
}

// class is the records sharing one label, in input order.
type class struct {
	label   string
	records []types.Record
}

// partition groups records by label in order of first appearance.
func partition(records []types.Record) []*class {
	index := make(map[string]*class)
	var classes []*class
	for _, r := range records {
		c, ok := index[r.Label]
		if !ok {
			c = &class{label: r.Label}
			index[r.Label] = c
			classes = append(classes, c)
		}
		c.records = append(c.records, r)
	}
	return classes
}

// Balance returns a new slice where every label occurs exactly as often as
// the largest class of the input. Originals are kept and labels never
// change. The only error is context cancellation.
func (b *Balancer) Balance(ctx context.Context, records []types.Record) ([]types.Record, error) {
	classes := partition(records)

	target := 0
	for _, c := range classes {
		target = max(target, len(c.records))
	}

	deficit := 0
	for _, c := range classes {
		deficit += target - len(c.records)
	}

	out := make([]types.Record, 0, len(records)+deficit)
	done := 0
	methods := map[augment.Method]int{}

	for _, c := range classes {
		out = append(out, c.records...)

		need := target - len(c.records)
		if need == 0 || len(c.records) == 0 {
			continue
		}
		b.logger.Debug("synthesizing", "label", c.label, "have", len(c.records), "need", need)

		for i := 0; i < need; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			src := c.records[b.rng.IntN(len(c.records))]
			out = append(out, b.synthesize(ctx, src, methods))

			done++
			if b.Progress != nil {
				b.Progress(done, deficit)
			}
		}
	}

	if b.opts.Shuffle {
		b.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	b.logger.Info("dataset balanced",
		"classes", len(classes),
		"target", target,
		"input", len(records),
		"synthesized", done,
		"substituted", methods[augment.MethodSubstitute],
		"deleted", methods[augment.MethodDelete],
	)
	return out, nil
}

func (b *Balancer) synthesize(ctx context.Context, src types.Record, methods map[augment.Method]int) types.Record {
	if b.opts.Strategy == StrategyOversample {
		return src
	}
	title, m := b.augmenter.Augment(ctx, src.Title)
	methods[m]++
	return types.Record{Title: title, Label: src.Label}
}

// Counts returns the number of records per label.
func Counts(records []types.Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Label]++
	}
	return counts
}
