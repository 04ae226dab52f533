package classifier

import (
	"context"
	"errors"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// ClassMetrics holds per-label scores.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation summarizes model quality on a test set.
type Evaluation struct {
	Total      int            `json:"total"`
	Correct    int            `json:"correct"`
	Errors     int            `json:"errors"` // predictions that failed outright
	Accuracy   float64        `json:"accuracy"`
	MacroF1    float64        `json:"macro_f1"`
	WeightedF1 float64        `json:"weighted_f1"`
	Classes    []ClassMetrics `json:"classes"`
}

// Evaluate predicts every test record and scores the result. A failed
// prediction counts as a miss; only context cancellation aborts.
func Evaluate(ctx context.Context, model Model, test []types.Record) (*Evaluation, error) {
	ev := &Evaluation{Total: len(test)}
	if len(test) == 0 {
		return ev, nil
	}

	tp := make(map[string]int)
	predicted := make(map[string]int)
	support := make(map[string]int)

	for _, r := range test {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		support[r.Label]++

		p, err := model.Predict(ctx, r.Title)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			ev.Errors++
			continue
		}
		predicted[p.Label]++
		if p.Label == r.Label {
			tp[r.Label]++
			ev.Correct++
		}
	}

	ev.Accuracy = float64(ev.Correct) / float64(ev.Total)

	labels := model.Labels()
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		seen[l] = true
	}
	for l := range support {
		if !seen[l] {
			labels = append(labels, l)
			seen[l] = true
		}
	}

	var macro, weighted float64
	for _, l := range labels {
		cm := ClassMetrics{Label: l, Support: support[l]}
		if predicted[l] > 0 {
			cm.Precision = float64(tp[l]) / float64(predicted[l])
		}
		if support[l] > 0 {
			cm.Recall = float64(tp[l]) / float64(support[l])
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		ev.Classes = append(ev.Classes, cm)
		macro += cm.F1
		weighted += cm.F1 * float64(cm.Support)
	}
	ev.MacroF1 = macro / float64(len(labels))
	ev.WeightedF1 = weighted / float64(ev.Total)
	return ev, nil
}
