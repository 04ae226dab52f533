package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/IshaanNene/NewsSort/internal/types"
)

const classifySystemPrompt = "You classify news headlines. Reply with exactly one category name from the list and nothing else."

// LLMTrainer "trains" a prompt-based classifier: it records the label set and
// a few examples per label.
type LLMTrainer struct {
	Client  Completer
	FewShot int
	Seed    int64
}

// LLMModel classifies headlines by prompting a language model.
type LLMModel struct {
	ModelLabels []string       `json:"labels"`
	Examples    []types.Record `json:"examples,omitempty"`

	client Completer
}

func (t *LLMTrainer) Train(ctx context.Context, records []types.Record) (Model, error) {
	if len(records) == 0 {
		return nil, types.ErrEmptyDataset
	}

	byLabel := make(map[string][]types.Record)
	for _, r := range records {
		byLabel[r.Label] = append(byLabel[r.Label], r)
	}
	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	rng := types.NewRand(t.Seed)
	var examples []types.Record
	for _, l := range labels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pool := types.CopyRecords(byLabel[l])
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		n := min(t.FewShot, len(pool))
		for _, r := range pool[:n] {
			examples = append(examples, types.Record{Title: r.Title, Label: r.Label})
		}
	}

	return &LLMModel{ModelLabels: labels, Examples: examples, client: t.Client}, nil
}

func (m *LLMModel) Kind() string { return KindLLM }

func (m *LLMModel) Labels() []string {
	out := make([]string, len(m.ModelLabels))
	copy(out, m.ModelLabels)
	return out
}

// Predict asks the model for a category. An answer outside the label set is
// an ErrUnknownLabel. Confidence is not available and is left at zero.
func (m *LLMModel) Predict(ctx context.Context, text string) (Prediction, error) {
	text, err := checkHeadline(text)
	if err != nil {
		return Prediction{}, err
	}

	answer, err := m.client.Complete(ctx, classifySystemPrompt, m.prompt(text))
	if err != nil {
		return Prediction{}, fmt.Errorf("llm predict: %w", err)
	}

	label, ok := m.match(answer)
	if !ok {
		return Prediction{}, fmt.Errorf("%w: %q", types.ErrUnknownLabel, answer)
	}
	return Prediction{Label: label}, nil
}

func (m *LLMModel) prompt(headline string) string {
	var sb strings.Builder
	sb.WriteString("Categories: ")
	sb.WriteString(strings.Join(m.ModelLabels, ", "))
	sb.WriteString("\n\n")
	if len(m.Examples) > 0 {
		sb.WriteString("Examples:\n")
		for _, ex := range m.Examples {
			fmt.Fprintf(&sb, "Headline: %s\nCategory: %s\n\n", ex.Title, ex.Label)
		}
	}
	fmt.Fprintf(&sb, "Headline: %s\nCategory:", headline)
	return sb.String()
}

// match maps a free-form answer onto the label set: an exact
// (case-insensitive) match wins, then a unique label mentioned in the answer.
func (m *LLMModel) match(answer string) (string, bool) {
	a := strings.ToLower(strings.Trim(strings.TrimSpace(answer), `."'*`))
	a = strings.TrimSpace(strings.TrimPrefix(a, "category:"))

	for _, l := range m.ModelLabels {
		if strings.ToLower(l) == a {
			return l, true
		}
	}

	var hits []string
	for _, l := range m.ModelLabels {
		if strings.Contains(a, strings.ToLower(l)) {
			hits = append(hits, l)
		}
	}

	// A label that only appears inside a longer matched label does not count.
	var distinct []string
	for _, h := range hits {
		shadowed := false
		for _, o := range hits {
			if o != h && strings.Contains(strings.ToLower(o), strings.ToLower(h)) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			distinct = append(distinct, h)
		}
	}
	if len(distinct) != 1 {
		return "", false
	}
	return distinct[0], true
}
