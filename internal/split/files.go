package split

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// File names written by WriteFiles.
const (
	XTrainFile  = "X_train.csv"
	XTestFile   = "X_test.csv"
	YTrainFile  = "y_train.csv"
	YTestFile   = "y_test.csv"
	MappingFile = "label_mapping.txt"
)

// WriteFiles writes titles and labels of each partition to dir as
// headerless single-column CSV files. With a non-nil encoder the label files
// hold integer codes and the mapping is written alongside.
func WriteFiles(dir string, train, test []types.Record, enc *LabelEncoder) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create split dir: %w", err)
	}

	parts := []struct {
		x, y    string
		records []types.Record
	}{
		{XTrainFile, YTrainFile, train},
		{XTestFile, YTestFile, test},
	}

	for _, p := range parts {
		xs := make([]string, len(p.records))
		ys := make([]string, len(p.records))
		for i, r := range p.records {
			xs[i] = r.Title
			if enc == nil {
				ys[i] = r.Label
				continue
			}
			code, err := enc.Encode(r.Label)
			if err != nil {
				return err
			}
			ys[i] = strconv.Itoa(code)
		}
		if err := writeColumn(filepath.Join(dir, p.x), xs); err != nil {
			return err
		}
		if err := writeColumn(filepath.Join(dir, p.y), ys); err != nil {
			return err
		}
	}

	mappingPath := filepath.Join(dir, MappingFile)
	if enc == nil {
		if err := os.Remove(mappingPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	f, err := os.Create(mappingPath)
	if err != nil {
		return fmt.Errorf("create label mapping: %w", err)
	}
	if err := enc.WriteMapping(f); err != nil {
		f.Close()
		return fmt.Errorf("write label mapping: %w", err)
	}
	return f.Close()
}

// ReadFiles reverses WriteFiles. Codes are decoded when a label mapping is
// present in dir.
func ReadFiles(dir string) (train, test []types.Record, err error) {
	var enc *LabelEncoder
	if f, err := os.Open(filepath.Join(dir, MappingFile)); err == nil {
		enc, err = ReadLabelMapping(f)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, err
	}

	train, err = readPartition(dir, XTrainFile, YTrainFile, enc)
	if err != nil {
		return nil, nil, err
	}
	test, err = readPartition(dir, XTestFile, YTestFile, enc)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func readPartition(dir, xName, yName string, enc *LabelEncoder) ([]types.Record, error) {
	xs, err := readColumn(filepath.Join(dir, xName))
	if err != nil {
		return nil, err
	}
	ys, err := readColumn(filepath.Join(dir, yName))
	if err != nil {
		return nil, err
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%s has %d rows but %s has %d", xName, len(xs), yName, len(ys))
	}

	out := make([]types.Record, len(xs))
	for i := range xs {
		label := ys[i]
		if enc != nil {
			code, err := strconv.Atoi(label)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", yName, i+1, err)
			}
			if label, err = enc.Decode(code); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", yName, i+1, err)
			}
		}
		out[i] = types.Record{Title: xs[i], Label: label}
	}
	return out, nil
}

func writeColumn(path string, values []string) error {
	f, err := os.Create(path)
	if err != nil {
		return &types.StorageError{Backend: "csv", Location: path, Err: err}
	}
	w := csv.NewWriter(f)
	for _, v := range values {
		if err := w.Write([]string{v}); err != nil {
			f.Close()
			return &types.StorageError{Backend: "csv", Location: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return &types.StorageError{Backend: "csv", Location: path, Err: err}
	}
	return f.Close()
}

func readColumn(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Location: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Location: path, Err: err}
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row[0]
	}
	return out, nil
}
