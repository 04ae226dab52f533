// Package report summarizes datasets for the terminal.
package report

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// LabelCount is one row of a label distribution.
type LabelCount struct {
	Label   string
	Count   int
	Percent float64
}

// Distribution counts records per label, most frequent first. Ties are
// ordered by label.
func Distribution(records []types.Record) []LabelCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Label]++
	}

	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{
			Label:   label,
			Count:   n,
			Percent: 100 * float64(n) / float64(len(records)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// WordCount is a word and its frequency.
type WordCount struct {
	Word  string
	Count int
}

// Stats describes the titles of a dataset.
type Stats struct {
	Records    int
	Missing    int // records with an empty title or label
	Duplicates int // full-row duplicates
	AvgWords   float64
	AvgChars   float64
	TopWords   []WordCount
}

// TextStats computes title statistics over the non-empty titles. Words are
// whitespace-separated tokens counted as written.
func TextStats(records []types.Record, topN int) Stats {
	s := Stats{Records: len(records)}

	seen := make(map[string]bool, len(records))
	freq := make(map[string]int)
	var words, chars, titled int

	for _, r := range records {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Label) == "" {
			s.Missing++
		}
		key := r.Key()
		if seen[key] {
			s.Duplicates++
		}
		seen[key] = true

		if r.Title == "" {
			continue
		}
		titled++
		fields := strings.Fields(r.Title)
		words += len(fields)
		chars += utf8.RuneCountInString(r.Title)
		for _, w := range fields {
			freq[w]++
		}
	}

	if titled > 0 {
		s.AvgWords = float64(words) / float64(titled)
		s.AvgChars = float64(chars) / float64(titled)
	}

	top := make([]WordCount, 0, len(freq))
	for w, n := range freq {
		top = append(top, WordCount{Word: w, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Word < top[j].Word
	})
	if topN >= 0 && len(top) > topN {
		top = top[:topN]
	}
	s.TopWords = top
	return s
}
