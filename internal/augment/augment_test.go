package augment

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsSort/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type errThesaurus struct{}

func (errThesaurus) Synonyms(context.Context, string) ([]string, error) {
	return nil, errors.New("offline")
}

type countingThesaurus struct {
	calls int
	syns  []string
}

func (c *countingThesaurus) Synonyms(context.Context, string) ([]string, error) {
	c.calls++
	return c.syns, nil
}

func isSubsequence(sub, full []string) bool {
	i := 0
	for _, w := range full {
		if i < len(sub) && sub[i] == w {
			i++
		}
	}
	return i == len(sub)
}

func TestDeleteAllDroppedKeepsOneWord(t *testing.T) {
	a := New(nil, types.NewRand(1), DefaultDeletionProb, testLogger)
	src := "the quick brown fox"

	for i := 0; i < 50; i++ {
		out := a.Delete(src, 1.0)
		assert.Contains(t, strings.Fields(src), out)
	}
}

func TestDeleteIsSubsequence(t *testing.T) {
	a := New(nil, types.NewRand(7), DefaultDeletionProb, testLogger)
	src := "Government passes new election bill after long debate"

	for i := 0; i < 200; i++ {
		out := a.Delete(src, 0.5)
		require.NotEmpty(t, out)
		assert.True(t, isSubsequence(strings.Fields(out), strings.Fields(src)), out)
	}
}

func TestDeleteShortTitlesUnchanged(t *testing.T) {
	a := New(nil, types.NewRand(1), DefaultDeletionProb, testLogger)
	assert.Equal(t, "Breaking", a.Delete("Breaking", 1.0))
	assert.Equal(t, "", a.Delete("", 1.0))
}

func TestDeleteZeroProbKeepsAll(t *testing.T) {
	a := New(nil, types.NewRand(1), DefaultDeletionProb, testLogger)
	assert.Equal(t, "a b c", a.Delete("a b c", 0))
}

func TestSubstituteReplacesAllOccurrences(t *testing.T) {
	th := MapThesaurus{"win": {"victory"}}
	a := New(th, types.NewRand(3), DefaultDeletionProb, testLogger)

	// Only "win" has a synonym, so every hit must swap both copies.
	src := "win win"
	assert.Equal(t, "victory victory", a.Substitute(context.Background(), src))
}

func TestSubstituteDiffersOnlyAtReplacedWord(t *testing.T) {
	th := MapThesaurus{"new": {"fresh"}, "plan": {"scheme"}, "the": {"the"}}
	a := New(th, types.NewRand(11), DefaultDeletionProb, testLogger)
	src := "Minister unveils new plan for the city"
	srcWords := strings.Fields(src)

	for i := 0; i < 100; i++ {
		out := strings.Fields(a.Substitute(context.Background(), src))
		require.Len(t, out, len(srcWords))
		changed := map[string]bool{}
		for j := range srcWords {
			if out[j] != srcWords[j] {
				changed[srcWords[j]] = true
			}
		}
		assert.LessOrEqual(t, len(changed), 1, "more than one distinct word replaced: %v", out)
	}
}

func TestSubstituteIgnoresSelfAndUnderscores(t *testing.T) {
	a := New(MapThesaurus{"launch": {"launch", "roll_out"}}, types.NewRand(1), DefaultDeletionProb, testLogger)
	assert.Equal(t, "roll out", a.Substitute(context.Background(), "launch"))

	a = New(MapThesaurus{"launch": {"Launch"}}, types.NewRand(1), DefaultDeletionProb, testLogger)
	assert.Equal(t, "launch", a.Substitute(context.Background(), "launch"))
}

func TestSubstituteMissOrErrorUnchanged(t *testing.T) {
	src := "Quiet  day"
	a := New(MapThesaurus{}, types.NewRand(1), DefaultDeletionProb, testLogger)
	assert.Equal(t, src, a.Substitute(context.Background(), src))

	a = New(errThesaurus{}, types.NewRand(1), DefaultDeletionProb, testLogger)
	assert.Equal(t, src, a.Substitute(context.Background(), src))
}

func TestAugmentUsesBothMethods(t *testing.T) {
	a := New(DefaultThesaurus(), types.NewRand(5), DefaultDeletionProb, testLogger)
	seen := map[Method]int{}
	for i := 0; i < 200; i++ {
		_, m := a.Augment(context.Background(), "Police probe new case")
		seen[m]++
	}
	assert.Greater(t, seen[MethodSubstitute], 0)
	assert.Greater(t, seen[MethodDelete], 0)
}

func TestLoadThesaurus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thesaurus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Quick: [fast, speedy]\nslow: [sluggish]\n"), 0o644))

	th, err := LoadThesaurus(path)
	require.NoError(t, err)

	syns, err := th.Synonyms(context.Background(), "QUICK")
	require.NoError(t, err)
	assert.Equal(t, []string{"fast", "speedy"}, syns)
}

func TestCachedThesaurus(t *testing.T) {
	inner := &countingThesaurus{syns: []string{"fast"}}
	c := NewCachedThesaurus(inner, 0)

	for i := 0; i < 3; i++ {
		syns, err := c.Synonyms(context.Background(), "Quick")
		require.NoError(t, err)
		assert.Equal(t, []string{"fast"}, syns)
	}
	_, _ = c.Synonyms(context.Background(), "quick")
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, c.Len())
}

type stubCompleter struct {
	answer string
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, nil
}

func TestLLMThesaurus(t *testing.T) {
	stub := &stubCompleter{answer: `["fast", "rapid", "swift", "speedy", "brisk", "hasty"]`}
	th := NewLLMThesaurus(stub, testLogger)

	syns, err := th.Synonyms(context.Background(), "quick")
	require.NoError(t, err)
	assert.Len(t, syns, 5)
	assert.Contains(t, stub.prompt, `"quick"`)
}
