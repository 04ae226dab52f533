package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// Storage is the interface for all record store backends.
type Storage interface {
	// Load reads every record in stored order.
	Load(ctx context.Context) ([]types.Record, error)

	// Save replaces the stored table with records.
	Save(ctx context.Context, records []types.Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Options carries backend settings that cannot be derived from a location.
type Options struct {
	Database   string
	Collection string
}

// Open picks a backend for location: mongodb:// URIs go to MongoDB, and
// files are chosen by extension with CSV as the fallback.
func Open(location string, opts Options, logger *slog.Logger) (Storage, error) {
	if location == "" {
		return nil, fmt.Errorf("storage location is empty")
	}

	if strings.HasPrefix(location, "mongodb://") || strings.HasPrefix(location, "mongodb+srv://") {
		return NewMongoStorage(location, opts.Database, opts.Collection, logger)
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".jsonl":
		return NewJSONLStorage(location, logger), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStorage(location, logger)
	default:
		return NewCSVStorage(location, logger), nil
	}
}

// Merge appends the records of batch whose key (over keys) is not already
// present. The first occurrence wins, including within batch. It returns the
// merged table and the number of records added.
func Merge(existing, batch []types.Record, keys []string) ([]types.Record, int) {
	seen := make(map[string]bool, len(existing)+len(batch))
	out := make([]types.Record, 0, len(existing)+len(batch))

	for _, r := range existing {
		k := r.Key(keys...)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}

	added := 0
	for _, r := range batch {
		k := r.Key(keys...)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
		added++
	}
	return out, added
}

// OpenAll opens the primary location plus any mirrors. With no mirrors the
// primary backend is returned directly.
func OpenAll(primary string, mirrors []string, opts Options, logger *slog.Logger) (Storage, error) {
	main, err := Open(primary, opts, logger)
	if err != nil {
		return nil, err
	}
	if len(mirrors) == 0 {
		return main, nil
	}

	backends := []Storage{main}
	for _, loc := range mirrors {
		m, err := Open(loc, opts, logger)
		if err != nil {
			for _, b := range backends {
				b.Close()
			}
			return nil, fmt.Errorf("open mirror %s: %w", loc, err)
		}
		backends = append(backends, m)
	}
	return NewMultiStorage(backends, logger), nil
}
