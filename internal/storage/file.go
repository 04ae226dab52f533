package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// --- CSV Storage ---

// CSVStorage keeps records in a CSV file with a title,link,label header.
type CSVStorage struct {
	path   string
	logger *slog.Logger
}

// NewCSVStorage creates a new CSV file storage.
func NewCSVStorage(path string, logger *slog.Logger) *CSVStorage {
	return &CSVStorage{
		path:   path,
		logger: logger.With("component", "csv_storage"),
	}
}

func (s *CSVStorage) Name() string { return "csv" }

// Load reads the file, locating columns by header name. A title column is
// required; link and label are optional and any other column is ignored.
func (s *CSVStorage) Load(ctx context.Context) ([]types.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, s.wrap(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, s.wrap(fmt.Errorf("%w: no header", types.ErrMissingColumn))
	}
	if err != nil {
		return nil, s.wrap(fmt.Errorf("read header: %w", err))
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	if _, ok := index[types.FieldTitle]; !ok {
		return nil, s.wrap(fmt.Errorf("%w: %q", types.ErrMissingColumn, types.FieldTitle))
	}

	var records []types.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, s.wrap(fmt.Errorf("read row: %w", err))
		}

		var rec types.Record
		for _, col := range types.Columns {
			if i, ok := index[col]; ok && i < len(row) {
				rec.Set(col, row[i])
			}
		}
		records = append(records, rec)
	}

	s.logger.Debug("CSV loaded", "path", s.path, "records", len(records))
	return records, nil
}

// Save rewrites the file atomically through a temp file in the same directory.
func (s *CSVStorage) Save(ctx context.Context, records []types.Record) error {
	return writeAtomic(s.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(types.Columns); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := cw.Write([]string{rec.Title, rec.Link, rec.Label}); err != nil {
				return fmt.Errorf("write CSV row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	}, s.wrap, s.logger, len(records))
}

func (s *CSVStorage) Close() error { return nil }

func (s *CSVStorage) wrap(err error) error {
	return &types.StorageError{Backend: s.Name(), Location: s.path, Err: err}
}

// --- JSONL Storage ---

// JSONLStorage keeps records as newline-delimited JSON (one object per line).
type JSONLStorage struct {
	path   string
	logger *slog.Logger
}

// NewJSONLStorage creates a new JSONL file storage.
func NewJSONLStorage(path string, logger *slog.Logger) *JSONLStorage {
	return &JSONLStorage{
		path:   path,
		logger: logger.With("component", "jsonl_storage"),
	}
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Load(ctx context.Context) ([]types.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, s.wrap(err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []types.Record
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec types.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, s.wrap(fmt.Errorf("line %d: %w", line, err))
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, s.wrap(err)
	}

	s.logger.Debug("JSONL loaded", "path", s.path, "records", len(records))
	return records, nil
}

func (s *JSONLStorage) Save(ctx context.Context, records []types.Record) error {
	return writeAtomic(s.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encode JSONL: %w", err)
			}
		}
		return nil
	}, s.wrap, s.logger, len(records))
}

func (s *JSONLStorage) Close() error { return nil }

func (s *JSONLStorage) wrap(err error) error {
	return &types.StorageError{Backend: s.Name(), Location: s.path, Err: err}
}

// writeAtomic writes through a temp file and renames it over path.
func writeAtomic(path string, write func(io.Writer) error, wrap func(error) error, logger *slog.Logger, count int) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrap(fmt.Errorf("create output dir: %w", err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return wrap(fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()

	bw := bufio.NewWriter(tmp)
	werr := write(bw)
	if werr == nil {
		werr = bw.Flush()
	}
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmpName)
		return wrap(err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return wrap(fmt.Errorf("rename output file: %w", err))
	}

	logger.Info("records written", "path", path, "records", count)
	return nil
}
