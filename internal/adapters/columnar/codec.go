// Package columnar encodes the pipeline's tables as Snappy-compressed
// parquet files.
package columnar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	parquet "github.com/parquet-go/parquet-go"
)

// ErrDecode is returned when a file cannot be read as the requested table.
var ErrDecode = errors.New("columnar decode failed")

// Write encodes rows to w.
func Write[T any](w io.Writer, rows []T) error {
	pw := parquet.NewGenericWriter[T](w, parquet.Compression(&parquet.Snappy))
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Encode returns rows as parquet bytes.
func Encode[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads every row of a parquet file held in memory.
func Decode[T any](b []byte) ([]T, error) {
	rows, err := parquet.Read[T](bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return rows, nil
}

// WriteFile encodes rows into the file at path, creating its directory, and
// returns the file's bytes for upload.
func WriteFile[T any](path string, rows []T) ([]byte, error) {
	b, err := Encode(rows)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return b, nil
}

// ReadFile decodes the parquet file at path.
func ReadFile[T any](path string) ([]T, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode[T](b)
}
