package job

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"petsync/shared/batch"
	"petsync/shared/domain/entity"
)

const linesKey = "csv_reader.lines"

// CSVReader parses the pet file named by the file parameter. The number
// of data rows consumed is the restart checkpoint.
type CSVReader struct {
	path  string
	file  *os.File
	csv   *csv.Reader
	lines int64
}

func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

func (r *CSVReader) Open(ctx context.Context, ec batch.ExecutionContext) error {
	params, ok := batch.JobParametersFrom(ctx)
	if !ok {
		return fmt.Errorf("csv reader opened outside a job execution")
	}
	path, ok := params.GetString(ParamFile)
	if !ok || path == "" {
		return fmt.Errorf("missing %s parameter", ParamFile)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	r.path, r.file = path, file
	r.csv = csv.NewReader(file)
	r.csv.FieldsPerRecord = -1
	r.lines = 0

	if err := r.seek(ec); err != nil {
		r.Close()
		return err
	}
	return nil
}

// seek discards the header line, whatever its names, and skips the rows
// already committed. A zero-byte file is empty input.
func (r *CSVReader) seek(ec batch.ExecutionContext) error {
	_, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header of %s: %w", r.path, err)
	}
	r.csv.FieldsPerRecord = len(entity.CSVHeader)

	skip, _ := ec.Int64(linesKey)
	for r.lines < skip {
		if _, err := r.csv.Read(); err != nil {
			return fmt.Errorf("skip to line %d of %s: %w", skip, r.path, err)
		}
		r.lines++
	}
	return nil
}

func (r *CSVReader) Read(context.Context) (entity.PetRecord, bool, error) {
	fields, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return entity.PetRecord{}, false, nil
	}
	if err != nil {
		return entity.PetRecord{}, false, fmt.Errorf("read %s: %w", r.path, err)
	}
	r.lines++

	record, err := entity.ParsePetRecord(fields)
	if err != nil {
		return entity.PetRecord{}, false, fmt.Errorf("%s line %d: %w", r.path, r.lines+1, err)
	}
	return record, true, nil
}

func (r *CSVReader) Update(ec batch.ExecutionContext) error {
	ec.PutInt64(linesKey, r.lines)
	return nil
}

func (r *CSVReader) Close() error {
	if r.file == nil {
		return nil
	}
	file := r.file
	r.file, r.csv = nil, nil
	return file.Close()
}
