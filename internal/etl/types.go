package etl

import (
	"path/filepath"
	"strings"
	"time"
)

// Record is one row of a text dataset. The id column passes through
// untouched; text and context are scanned and anonymized.
type Record struct {
	ID      string `csv:"id" parquet:"id" json:"id"`
	Text    string `csv:"text" parquet:"text" json:"text"`
	Context string `csv:"context" parquet:"context" json:"context"`
}

// ProcessingResult represents the outcome of processing one dataset
type ProcessingResult struct {
	TotalRecords     int64         `json:"total_records"`
	ProcessedOK      int64         `json:"processed_ok"`
	ProcessedFailed  int64         `json:"processed_failed"`
	SkippedInvalid   int64         `json:"skipped_invalid"`
	PIIDetections    int64         `json:"pii_detections"`
	FieldsAnonymized int64         `json:"fields_anonymized"`
	Duration         time.Duration `json:"duration"`
	EngineTime       time.Duration `json:"engine_time"`
	WriteTime        time.Duration `json:"write_time"`
	AuditTime        time.Duration `json:"audit_time"`
	Errors           []string      `json:"errors,omitempty"`
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsValid   int64     `json:"records_valid"`
	RecordsInvalid int64     `json:"records_invalid"`
	PIIFound       int64     `json:"pii_found"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// FileFormat represents supported dataset formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
	FormatUnknown FileFormat = ""
)

// DetectFileFormat detects the dataset format from the file extension.
// JSON input is newline-delimited, one object per line.
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatUnknown
	}
}
