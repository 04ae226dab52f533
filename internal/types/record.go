package types

import "strings"

// Unknown is the label given to a title that matches no category.
const Unknown = "Unknown"

// Column names of the record table.
const (
	FieldTitle = "title"
	FieldLink  = "link"
	FieldLabel = "label"
)

// Columns is the on-disk column order of the record table.
var Columns = []string{FieldTitle, FieldLink, FieldLabel}

// Record is a single news item. An empty string is the missing value.
type Record struct {
	// Title is the headline text.
	Title string `json:"title" bson:"title"`

	// Link is the article URL. Informational only.
	Link string `json:"link,omitempty" bson:"link,omitempty"`

	// Label is the category tag, or Unknown.
	Label string `json:"label,omitempty" bson:"label,omitempty"`
}

// Get returns the value of a named column.
func (r Record) Get(field string) string {
	switch field {
	case FieldTitle:
		return r.Title
	case FieldLink:
		return r.Link
	case FieldLabel:
		return r.Label
	default:
		return ""
	}
}

// Set assigns a named column. It reports false for unknown columns.
func (r *Record) Set(field, value string) bool {
	switch field {
	case FieldTitle:
		r.Title = value
	case FieldLink:
		r.Link = value
	case FieldLabel:
		r.Label = value
	default:
		return false
	}
	return true
}

// WithLabel returns a copy of the record carrying the given label.
func (r Record) WithLabel(label string) Record {
	r.Label = label
	return r
}

// Key builds a dedup key from the given columns. With no columns the
// full row is used.
func (r Record) Key(fields ...string) string {
	if len(fields) == 0 {
		fields = Columns
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = r.Get(f)
	}
	return strings.Join(parts, "\x1f")
}

// IsColumn reports whether name is a known record column.
func IsColumn(name string) bool {
	switch name {
	case FieldTitle, FieldLink, FieldLabel:
		return true
	}
	return false
}

// CopyRecords returns a shallow copy of the slice.
func CopyRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
