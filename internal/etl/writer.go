package etl

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/segmentio/parquet-go"
)

// recordWriter emits anonymized records in the input's format.
type recordWriter interface {
	write(record *Record) error
	close() error
}

// newRecordWriter creates the output file and a writer matching the
// detected input format.
func newRecordWriter(path string, format FileFormat) (recordWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case FormatCSV:
		w := csv.NewWriter(file)
		if err := w.Write([]string{"id", "text", "context"}); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write CSV header: %w", err)
		}
		return &csvWriter{file: file, writer: w}, nil
	case FormatParquet:
		return &parquetWriter{
			file:   file,
			writer: parquet.NewWriter(file, parquet.SchemaOf(new(Record))),
		}, nil
	case FormatJSON:
		return &jsonWriter{file: file, encoder: json.NewEncoder(file)}, nil
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

type csvWriter struct {
	file   *os.File
	writer *csv.Writer
}

func (w *csvWriter) write(record *Record) error {
	return w.writer.Write([]string{record.ID, record.Text, record.Context})
}

func (w *csvWriter) close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

type parquetWriter struct {
	file   *os.File
	writer *parquet.Writer
}

func (w *parquetWriter) write(record *Record) error {
	return w.writer.Write(record)
}

func (w *parquetWriter) close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

type jsonWriter struct {
	file    *os.File
	encoder *json.Encoder
}

func (w *jsonWriter) write(record *Record) error {
	return w.encoder.Encode(record)
}

func (w *jsonWriter) close() error {
	return w.file.Close()
}
