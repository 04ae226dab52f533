// Package label tags headlines with a category by first-match keyword search.
package label

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// Category is one row of the category table.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CategoryTable is an ordered list of categories. Earlier entries win.
type CategoryTable []Category

// NewCategoryTable returns a copy of cats with keywords lowercased and
// blank keywords removed.
func NewCategoryTable(cats []Category) CategoryTable {
	table := make(CategoryTable, 0, len(cats))
	for _, c := range cats {
		kws := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		table = append(table, Category{Name: c.Name, Keywords: kws})
	}
	return table
}

// LoadCategoryTable reads a YAML list of {name, keywords} entries.
func LoadCategoryTable(path string) (CategoryTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category table: %w", err)
	}

	var cats []Category
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("parse category table %s: %w", path, err)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("category table %s is empty", path)
	}
	return NewCategoryTable(cats), nil
}

// Names returns the category names in table order.
func (t CategoryTable) Names() []string {
	names := make([]string, len(t))
	for i, c := range t {
		names[i] = c.Name
	}
	return names
}

// Labeler assigns categories to titles.
type Labeler struct {
	table  CategoryTable
	logger *slog.Logger
}

// New creates a Labeler over table. The table must already be normalized
// with NewCategoryTable.
func New(table CategoryTable, logger *slog.Logger) *Labeler {
	return &Labeler{
		table:  table,
		logger: logger.With("component", "labeler"),
	}
}

// Assign returns the first category with a keyword contained in title
// (case-insensitively), or types.Unknown.
func (l *Labeler) Assign(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return types.Unknown
	}
	for _, c := range l.table {
		for _, kw := range c.Keywords {
			if strings.Contains(t, kw) {
				return c.Name
			}
		}
	}
	return types.Unknown
}

// LabelAll returns a new slice where unlabeled records (or every record,
// with overwrite) carry the assigned category.
func (l *Labeler) LabelAll(records []types.Record, overwrite bool) []types.Record {
	out := make([]types.Record, len(records))
	labeled, unknown := 0, 0
	for i, r := range records {
		if !overwrite && strings.TrimSpace(r.Label) != "" {
			out[i] = r
			continue
		}
		lbl := l.Assign(r.Title)
		if lbl == types.Unknown {
			unknown++
		}
		out[i] = r.WithLabel(lbl)
		labeled++
	}

	l.logger.Info("records labeled", "total", len(records), "labeled", labeled, "unknown", unknown)
	return out
}
