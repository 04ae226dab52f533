package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsSort/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var sample = []types.Record{
	{Title: "Government passes new election bill", Link: "https://n.example/1", Label: "Politics"},
	{Title: "Striker scores, \"again\"", Link: "https://n.example/2", Label: "Sports"},
	{Title: "Untagged headline", Link: "https://n.example/3"},
}

func TestCSVLoadMissingFile(t *testing.T) {
	s := NewCSVStorage(filepath.Join(t.TempDir(), "absent.csv"), testLogger)

	_, err := s.Load(context.Background())
	require.Error(t, err)

	var se *types.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "csv", se.Backend)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCSVLoadLocatesColumnsByHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")
	data := "label,extra,Title\nSports,x,Match tonight\n,y,No label here\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	records, err := NewCSVStorage(path, testLogger).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Record{
		{Title: "Match tonight", Label: "Sports"},
		{Title: "No label here"},
	}, records)
}

func TestCSVLoadRequiresTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")
	require.NoError(t, os.WriteFile(path, []byte("link,label\nx,y\n"), 0o644))

	_, err := NewCSVStorage(path, testLogger).Load(context.Background())
	assert.ErrorIs(t, err, types.ErrMissingColumn)
}

func TestCSVSaveDropsExtraColumnsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "news.csv")
	s := NewCSVStorage(path, testLogger)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "title,link,label\n")

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample, got)
}

func TestJSONLSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.jsonl")
	s := NewJSONLStorage(path, testLogger)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample, got)
}

func TestSQLiteSaveReplacesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.db")
	s, err := NewSQLiteStorage(path, testLogger)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample))
	require.NoError(t, s.Save(ctx, sample[:1]))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample[:1], got)
}

func TestOpenPicksBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		location string
		want     string
	}{
		{filepath.Join(dir, "a.csv"), "csv"},
		{filepath.Join(dir, "a.jsonl"), "jsonl"},
		{filepath.Join(dir, "a.sqlite"), "sqlite"},
		{filepath.Join(dir, "a.txt"), "csv"},
	}
	for _, tt := range tests {
		t.Run(tt.want+filepath.Ext(tt.location), func(t *testing.T) {
			s, err := Open(tt.location, Options{}, testLogger)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestOpenAllMirrors(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "a.csv")
	mirror := filepath.Join(dir, "b.jsonl")

	s, err := OpenAll(primary, []string{mirror}, Options{}, testLogger)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "multi", s.Name())

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample))

	got, err := NewJSONLStorage(mirror, testLogger).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample, got)
}

func TestMergeKeepsFirstOccurrence(t *testing.T) {
	existing := []types.Record{
		{Title: "A", Link: "1", Label: "Sports"},
		{Title: "B", Link: "2"},
	}
	batch := []types.Record{
		{Title: "A", Link: "1", Label: "Politics"},
		{Title: "C", Link: "3"},
		{Title: "C", Link: "3"},
		{Title: "A", Link: "9"},
	}

	merged, added := Merge(existing, batch, []string{types.FieldTitle, types.FieldLink})
	assert.Equal(t, 2, added)
	assert.Equal(t, []types.Record{
		{Title: "A", Link: "1", Label: "Sports"},
		{Title: "B", Link: "2"},
		{Title: "C", Link: "3"},
		{Title: "A", Link: "9"},
	}, merged)
}
