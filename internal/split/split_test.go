package split

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsSort/internal/types"
)

func records(counts map[string]int) []types.Record {
	var out []types.Record
	for _, label := range []string{"Politics", "Sports", "Tech"} {
		for i := 0; i < counts[label]; i++ {
			out = append(out, types.Record{Title: fmt.Sprintf("%s story %d", label, i), Label: label})
		}
	}
	return out
}

func countLabels(rs []types.Record) map[string]int {
	m := map[string]int{}
	for _, r := range rs {
		m[r.Label]++
	}
	return m
}

func TestSplitStratifiedCounts(t *testing.T) {
	in := records(map[string]int{"Politics": 10, "Sports": 7, "Tech": 2})
	train, test, err := Split(in, Options{TestFraction: 0.2, Seed: 42})
	require.NoError(t, err)

	// round(2)=2, round(1.4)=1, round(0.4)=0 clamped to 1
	assert.Equal(t, map[string]int{"Politics": 2, "Sports": 1, "Tech": 1}, countLabels(test))
	assert.Equal(t, map[string]int{"Politics": 8, "Sports": 6, "Tech": 1}, countLabels(train))
}

func TestSplitPartitionsInput(t *testing.T) {
	in := records(map[string]int{"Politics": 25, "Sports": 13, "Tech": 9})
	train, test, err := Split(in, Options{TestFraction: 0.3, Seed: 1})
	require.NoError(t, err)

	assert.Len(t, append(types.CopyRecords(train), test...), len(in))
	assert.ElementsMatch(t, in, append(types.CopyRecords(train), test...))

	inTrain := map[string]bool{}
	for _, r := range train {
		inTrain[r.Title] = true
	}
	for _, r := range test {
		assert.False(t, inTrain[r.Title], "title %q in both partitions", r.Title)
	}
}

func TestSplitDeterministic(t *testing.T) {
	in := records(map[string]int{"Politics": 12, "Sports": 12})
	tr1, te1, err := Split(in, Options{TestFraction: 0.2, Seed: 42})
	require.NoError(t, err)
	tr2, te2, err := Split(in, Options{TestFraction: 0.2, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, tr1, tr2)
	assert.Equal(t, te1, te2)
}

func TestSplitClassTooSmall(t *testing.T) {
	in := records(map[string]int{"Politics": 5, "Sports": 1})
	_, _, err := Split(in, Options{TestFraction: 0.2, Seed: 42})

	var se *types.StratifyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Sports", se.Label)
	assert.Equal(t, 1, se.Count)
	assert.ErrorIs(t, err, types.ErrClassTooSmall)
}

func TestSplitInvalidFraction(t *testing.T) {
	in := records(map[string]int{"Politics": 5})
	for _, f := range []float64{0, 1, -0.1, 1.5} {
		_, _, err := Split(in, Options{TestFraction: f})
		assert.ErrorIs(t, err, types.ErrInvalidFraction, "fraction %g", f)
	}
}

func TestSplitDisjointTitles(t *testing.T) {
	var in []types.Record
	for i := 0; i < 5; i++ {
		for j := 0; j < 3; j++ {
			in = append(in, types.Record{Title: fmt.Sprintf("dup %d", i), Link: fmt.Sprint(j), Label: "A"})
		}
	}

	train, test, err := Split(in, Options{TestFraction: 0.2, Seed: 9, DisjointTitles: true})
	require.NoError(t, err)
	assert.Len(t, test, 3, "one title group of three rows")
	assert.Len(t, train, 12)

	inTrain := map[string]bool{}
	for _, r := range train {
		inTrain[r.Title] = true
	}
	for _, r := range test {
		assert.False(t, inTrain[r.Title])
	}

	// Three rows but a single title cannot be stratified.
	same := []types.Record{{Title: "x", Label: "B"}, {Title: "x", Label: "B"}, {Title: "x", Label: "B"}}
	_, _, err = Split(same, Options{TestFraction: 0.2, DisjointTitles: true})
	assert.ErrorIs(t, err, types.ErrClassTooSmall)
}

func TestSplitDisjointTitlesAcrossLabels(t *testing.T) {
	var in []types.Record
	for _, label := range []string{"A", "B"} {
		for i := 0; i < 5; i++ {
			in = append(in, types.Record{Title: fmt.Sprintf("shared headline %d", i), Label: label})
		}
	}
	in = append(in, types.Record{Title: "only in B", Label: "B"})

	for seed := int64(1); seed <= 50; seed++ {
		train, test, err := Split(in, Options{TestFraction: 0.4, Seed: seed, DisjointTitles: true})
		require.NoError(t, err, "seed %d", seed)
		assert.Len(t, append(train, test...), len(in))

		inTrain := map[string]bool{}
		for _, r := range train {
			inTrain[r.Title] = true
		}
		for _, r := range test {
			assert.False(t, inTrain[r.Title], "seed %d: %q in both partitions", seed, r.Title)
		}
		assert.Equal(t, 2, countLabels(test)["A"], "seed %d", seed)
		assert.Positive(t, countLabels(test)["B"], "seed %d", seed)
		assert.Positive(t, countLabels(train)["B"], "seed %d", seed)
	}
}

func TestSplitDisjointTitlesPinnedClass(t *testing.T) {
	a := []types.Record{
		{Title: "p", Label: "A"},
		{Title: "q", Label: "A"},
		{Title: "r", Label: "A"},
	}
	opts := Options{TestFraction: 0.2, Seed: 3, DisjointTitles: true}

	// B only repeats the titles A sent to train, so B has no test candidate.
	train, _, err := Split(a, opts)
	require.NoError(t, err)
	require.Len(t, train, 2)
	in := append(types.CopyRecords(a),
		types.Record{Title: train[0].Title, Label: "B"},
		types.Record{Title: train[1].Title, Label: "B"},
	)

	_, _, err = Split(in, opts)
	var se *types.StratifyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "B", se.Label)
	assert.ErrorIs(t, err, types.ErrClassTooSmall)
}

func TestFreeTestCount(t *testing.T) {
	tests := []struct {
		n, free, forcedTest, forcedTrain int
		want                             int
		ok                               bool
	}{
		{10, 10, 0, 0, 2, true},
		{10, 8, 2, 0, 0, true},
		{10, 8, 0, 2, 2, true},
		{3, 1, 0, 2, 1, true},
		{2, 0, 1, 1, 0, true},
		{2, 0, 0, 2, 0, false},
		{2, 1, 0, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := freeTestCount(tt.n, tt.free, tt.forcedTest, tt.forcedTrain, 0.2)
		assert.Equal(t, tt.ok, ok, "%+v", tt)
		if ok {
			assert.Equal(t, tt.want, got, "%+v", tt)
		}
	}
}

func TestTestCount(t *testing.T) {
	assert.Equal(t, 1, TestCount(2, 0.2))
	assert.Equal(t, 1, TestCount(2, 0.9))
	assert.Equal(t, 3, TestCount(5, 0.5))
	assert.Equal(t, 20, TestCount(100, 0.2))
}

func TestLabelEncoder(t *testing.T) {
	enc := NewLabelEncoder([]string{"Sports", "Politics", "Sports", "Business"})
	assert.Equal(t, []string{"Business", "Politics", "Sports"}, enc.Labels())

	code, err := enc.Encode("Sports")
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	_, err = enc.Encode("Weather")
	assert.ErrorIs(t, err, types.ErrUnknownLabel)

	_, err = enc.Decode(3)
	assert.ErrorIs(t, err, types.ErrUnknownLabel)
}

func TestWriteAndReadFiles(t *testing.T) {
	dir := t.TempDir()
	in := []types.Record{
		{Title: `Minister says "no", again`, Label: "Politics"},
		{Title: "Team wins, fans cheer", Label: "Sports"},
		{Title: "People and Living story", Label: "People and Living"},
		{Title: "Another match", Label: "Sports"},
	}
	train, test := in[:3], in[3:]

	enc := FitLabelEncoder(in)
	require.NoError(t, WriteFiles(dir, train, test, enc))

	mapping, err := os.ReadFile(filepath.Join(dir, MappingFile))
	require.NoError(t, err)
	assert.Equal(t, "0: People and Living\n1: Politics\n2: Sports\n", string(mapping))

	y, err := os.ReadFile(filepath.Join(dir, YTrainFile))
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n0\n", string(y))

	gotTrain, gotTest, err := ReadFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, train, gotTrain)
	assert.Equal(t, test, gotTest)
}

func TestWriteFilesRawLabels(t *testing.T) {
	dir := t.TempDir()
	train := []types.Record{{Title: "a", Label: "Sports"}}
	test := []types.Record{{Title: "b", Label: "Politics"}}
	require.NoError(t, WriteFiles(dir, train, test, nil))

	_, err := os.Stat(filepath.Join(dir, MappingFile))
	assert.True(t, os.IsNotExist(err))

	gotTrain, gotTest, err := ReadFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, train, gotTrain)
	assert.Equal(t, test, gotTest)
}
