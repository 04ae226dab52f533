package split

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// LabelEncoder maps labels to 0..k-1 in sorted label order.
type LabelEncoder struct {
	labels []string
	index  map[string]int
}

// NewLabelEncoder builds an encoder over the distinct values of labels.
func NewLabelEncoder(labels []string) *LabelEncoder {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	sorted := make([]string, 0, len(set))
	for l := range set {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)

	index := make(map[string]int, len(sorted))
	for i, l := range sorted {
		index[l] = i
	}
	return &LabelEncoder{labels: sorted, index: index}
}

// FitLabelEncoder builds an encoder over the labels of records.
func FitLabelEncoder(records []types.Record) *LabelEncoder {
	labels := make([]string, len(records))
	for i, r := range records {
		labels[i] = r.Label
	}
	return NewLabelEncoder(labels)
}

// Labels returns the labels in code order.
func (e *LabelEncoder) Labels() []string {
	out := make([]string, len(e.labels))
	copy(out, e.labels)
	return out
}

// Len returns the number of classes.
func (e *LabelEncoder) Len() int { return len(e.labels) }

// Encode returns the code for label.
func (e *LabelEncoder) Encode(label string) (int, error) {
	i, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", types.ErrUnknownLabel, label)
	}
	return i, nil
}

// Decode returns the label for code.
func (e *LabelEncoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.labels) {
		return "", fmt.Errorf("%w: code %d", types.ErrUnknownLabel, code)
	}
	return e.labels[code], nil
}

// WriteMapping writes one "<code>: <label>" line per class.
func (e *LabelEncoder) WriteMapping(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, l := range e.labels {
		if _, err := fmt.Fprintf(bw, "%d: %s\n", i, l); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadLabelMapping parses the format written by WriteMapping. Codes must be
// dense and start at zero.
func ReadLabelMapping(r io.Reader) (*LabelEncoder, error) {
	byCode := make(map[int]string)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		codeStr, label, ok := strings.Cut(text, ":")
		if !ok {
			return nil, fmt.Errorf("label mapping line %d: missing ':'", line)
		}
		code, err := strconv.Atoi(strings.TrimSpace(codeStr))
		if err != nil {
			return nil, fmt.Errorf("label mapping line %d: %w", line, err)
		}
		byCode[code] = strings.TrimSpace(label)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	labels := make([]string, len(byCode))
	index := make(map[string]int, len(byCode))
	for i := range labels {
		l, ok := byCode[i]
		if !ok {
			return nil, fmt.Errorf("label mapping: missing code %d", i)
		}
		labels[i] = l
		index[l] = i
	}
	return &LabelEncoder{labels: labels, index: index}, nil
}
