package job

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"petsync/shared/batch"
	"petsync/shared/domain/entity"
)

const offsetKey = "csv_writer.offset"

// CSVWriter appends pets to the file named by the file parameter. The
// byte offset after the last committed chunk is the checkpoint; a restart
// truncates anything written after it.
type CSVWriter struct {
	path   string
	file   *os.File
	csv    *csv.Writer
	offset int64
}

func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

func (w *CSVWriter) Open(ctx context.Context, ec batch.ExecutionContext) error {
	params, ok := batch.JobParametersFrom(ctx)
	if !ok {
		return fmt.Errorf("csv writer opened outside a job execution")
	}
	path, ok := params.GetString(ParamFile)
	if !ok || path == "" {
		return fmt.Errorf("missing %s parameter", ParamFile)
	}
	w.path = path

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	start := w.create
	if offset, ok := ec.Int64(offsetKey); ok {
		start = func() error { return w.resume(offset) }
	}
	if err := start(); err != nil {
		w.Close()
		return err
	}
	return nil
}

func (w *CSVWriter) create() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", w.path, err)
	}
	w.file = file
	w.csv = csv.NewWriter(file)

	if err := w.csv.Write(entity.CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return w.flush()
}

func (w *CSVWriter) resume(offset int64) error {
	file, err := os.OpenFile(w.path, os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", w.path, err)
	}
	if err := file.Truncate(offset); err != nil {
		file.Close()
		return fmt.Errorf("truncate %s to %d: %w", w.path, offset, err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return fmt.Errorf("seek %s: %w", w.path, err)
	}
	w.file = file
	w.csv = csv.NewWriter(file)
	w.offset = offset
	return nil
}

func (w *CSVWriter) Write(_ context.Context, pets []entity.Pet) error {
	for _, pet := range pets {
		if err := w.csv.Write(pet.Fields()); err != nil {
			return fmt.Errorf("write pet %d: %w", pet.ID, err)
		}
	}
	return w.flush()
}

// flush pushes buffered rows to the file and records the new offset
func (w *CSVWriter) flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	offset, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("locate %s: %w", w.path, err)
	}
	w.offset = offset
	return nil
}

func (w *CSVWriter) Update(ec batch.ExecutionContext) error {
	ec.PutInt64(offsetKey, w.offset)
	return nil
}

func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}
	file := w.file
	w.file, w.csv = nil, nil
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync %s: %w", w.path, err)
	}
	return file.Close()
}
