package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsSort/internal/types"
)

func TestDistribution(t *testing.T) {
	rs := []types.Record{
		{Title: "a", Label: "Sports"},
		{Title: "b", Label: "Politics"},
		{Title: "c", Label: "Sports"},
		{Title: "d", Label: "Business"},
	}
	d := Distribution(rs)
	require.Len(t, d, 3)
	assert.Equal(t, LabelCount{Label: "Sports", Count: 2, Percent: 50}, d[0])
	assert.Equal(t, "Business", d[1].Label)
	assert.Equal(t, "Politics", d[2].Label)
}

func TestTextStats(t *testing.T) {
	rs := []types.Record{
		{Title: "the cat sat", Label: "A"},
		{Title: "the dog", Label: "B"},
		{Title: "the dog", Label: "B"},
		{Title: "", Label: "C"},
	}
	s := TextStats(rs, 2)
	assert.Equal(t, 4, s.Records)
	assert.Equal(t, 1, s.Missing)
	assert.Equal(t, 1, s.Duplicates)
	assert.InDelta(t, 7.0/3, s.AvgWords, 1e-9)
	assert.InDelta(t, 25.0/3, s.AvgChars, 1e-9)
	assert.Equal(t, []WordCount{{"the", 3}, {"dog", 2}}, s.TopWords)
}

func TestRenderTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	err := RenderTable(&buf, []string{"Label", "Count"}, [][]string{
		{"世界", "1"},
		{"Sports", "12"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| Label  | Count |", lines[0])
	assert.Equal(t, "| ------ | ----- |", lines[1])
	assert.Equal(t, "| 世界   | 1     |", lines[2])
	assert.Equal(t, "| Sports | 12    |", lines[3])
}
