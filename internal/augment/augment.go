// Package augment produces synthetic headline variants by synonym
// substitution and random word deletion.
package augment

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
)

// Method names the transform used for an augmented title.
type Method string

const (
	MethodSubstitute Method = "substitute"
	MethodDelete     Method = "delete"
)

// DefaultDeletionProb is the per-word drop probability of Delete.
const DefaultDeletionProb = 0.2

// Augmenter applies text transforms with its own random source.
type Augmenter struct {
	thesaurus    Thesaurus
	rng          *rand.Rand
	deletionProb float64
	logger       *slog.Logger
}

// New creates an Augmenter. A nil thesaurus makes every substitution a miss.
func New(thesaurus Thesaurus, rng *rand.Rand, deletionProb float64, logger *slog.Logger) *Augmenter {
	return &Augmenter{
		thesaurus:    thesaurus,
		rng:          rng,
		deletionProb: deletionProb,
		logger:       logger.With("component", "augmenter"),
	}
}

// Augment flips a fair coin between Substitute and Delete.
func (a *Augmenter) Augment(ctx context.Context, title string) (string, Method) {
	if a.rng.Float64() < 0.5 {
		return a.Substitute(ctx, title), MethodSubstitute
	}
	return a.Delete(title, a.deletionProb), MethodDelete
}

// Substitute picks one word at random and replaces every exact occurrence of
// it with a random synonym. The title is returned unchanged when there is no
// usable synonym or the lookup fails.
func (a *Augmenter) Substitute(ctx context.Context, title string) string {
	words := strings.Fields(title)
	if len(words) == 0 || a.thesaurus == nil {
		return title
	}

	target := words[a.rng.IntN(len(words))]

	found, err := a.thesaurus.Synonyms(ctx, target)
	if err != nil {
		a.logger.Debug("synonym lookup failed", "word", target, "error", err)
		return title
	}

	candidates := make([]string, 0, len(found))
	for _, c := range found {
		c = strings.TrimSpace(strings.ReplaceAll(c, "_", " "))
		if c == "" || strings.EqualFold(c, target) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		a.logger.Debug("no synonym", "word", target)
		return title
	}

	replacement := candidates[a.rng.IntN(len(candidates))]
	out := make([]string, len(words))
	for i, w := range words {
		if w == target {
			out[i] = replacement
		} else {
			out[i] = w
		}
	}
	return strings.Join(out, " ")
}

// Delete drops each word independently with probability p. Titles of one
// word or fewer are returned unchanged, and if every word would be dropped a
// single original word is kept.
func (a *Augmenter) Delete(title string, p float64) string {
	words := strings.Fields(title)
	if len(words) <= 1 {
		return title
	}

	kept := make([]string, 0, len(words))
	for _, w := range words {
		if a.rng.Float64() > p {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return words[a.rng.IntN(len(words))]
	}
	return strings.Join(kept, " ")
}
