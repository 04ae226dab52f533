package classifier

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// NaiveBayesTrainer fits a multinomial naive Bayes model over word counts.
type NaiveBayesTrainer struct {
	// Alpha is the additive (Laplace) smoothing. Zero means 1.
	Alpha float64
}

// NaiveBayes is a trained multinomial naive Bayes model.
type NaiveBayes struct {
	Classes    []string         `json:"classes"`
	Alpha      float64          `json:"alpha"`
	ClassDocs  []int            `json:"class_docs"`
	ClassWords []int            `json:"class_words"`
	WordCounts map[string][]int `json:"word_counts"`
}

// Tokenize lowercases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (t *NaiveBayesTrainer) Train(ctx context.Context, records []types.Record) (Model, error) {
	if len(records) == 0 {
		return nil, types.ErrEmptyDataset
	}

	alpha := t.Alpha
	if alpha <= 0 {
		alpha = 1
	}

	classSet := make(map[string]struct{})
	for _, r := range records {
		classSet[r.Label] = struct{}{}
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	nb := &NaiveBayes{
		Classes:    classes,
		Alpha:      alpha,
		ClassDocs:  make([]int, len(classes)),
		ClassWords: make([]int, len(classes)),
		WordCounts: make(map[string][]int),
	}

	for i, r := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		c := index[r.Label]
		nb.ClassDocs[c]++
		for _, tok := range Tokenize(r.Title) {
			counts, ok := nb.WordCounts[tok]
			if !ok {
				counts = make([]int, len(classes))
				nb.WordCounts[tok] = counts
			}
			counts[c]++
			nb.ClassWords[c]++
		}
	}
	return nb, nil
}

func (m *NaiveBayes) Kind() string { return KindNaiveBayes }

func (m *NaiveBayes) Labels() []string {
	out := make([]string, len(m.Classes))
	copy(out, m.Classes)
	return out
}

// Predict returns the most probable class. Confidence is the softmax of the
// class log-posteriors. Words never seen in training are ignored.
func (m *NaiveBayes) Predict(ctx context.Context, text string) (Prediction, error) {
	text, err := checkHeadline(text)
	if err != nil {
		return Prediction{}, err
	}

	scores := m.logPosteriors(Tokenize(text))

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	var z float64
	for _, s := range scores {
		z += math.Exp(s - scores[best])
	}
	return Prediction{Label: m.Classes[best], Confidence: 1 / z}, nil
}

func (m *NaiveBayes) logPosteriors(tokens []string) []float64 {
	totalDocs := 0
	for _, n := range m.ClassDocs {
		totalDocs += n
	}
	vocab := float64(len(m.WordCounts))

	scores := make([]float64, len(m.Classes))
	for c := range m.Classes {
		scores[c] = math.Log(float64(m.ClassDocs[c]) / float64(totalDocs))
		denom := math.Log(float64(m.ClassWords[c]) + m.Alpha*vocab)
		for _, tok := range tokens {
			counts, ok := m.WordCounts[tok]
			if !ok {
				continue
			}
			scores[c] += math.Log(float64(counts[c])+m.Alpha) - denom
		}
	}
	return scores
}

func (m *NaiveBayes) validate() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("naive bayes model has no classes")
	}
	if len(m.ClassDocs) != len(m.Classes) || len(m.ClassWords) != len(m.Classes) {
		return fmt.Errorf("naive bayes model is inconsistent")
	}
	for w, counts := range m.WordCounts {
		if len(counts) != len(m.Classes) {
			return fmt.Errorf("naive bayes model: word %q has %d counts for %d classes", w, len(counts), len(m.Classes))
		}
	}
	if m.Alpha <= 0 {
		m.Alpha = 1
	}
	return nil
}
