package etl

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/audit"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
)

// maxTextBytes is the per-column size limit. Oversized rows are
// skipped rather than truncated.
const maxTextBytes = 64 << 10

// maxReportedErrors caps the error strings carried in the result;
// further failures are only counted.
const maxReportedErrors = 16

// Pipeline anonymizes datasets file by file. Records that fail
// anonymization are dropped from the output, never passed through raw.
type Pipeline struct {
	engine *anonymize.Engine
	store  *audit.Store // nil when audit recording is off
	cfg    config.ETLConfig
	policy *anonymize.Policy
	logger *zap.Logger
	stats  *ProcessingStats
	mu     sync.RWMutex
}

// NewPipeline creates a new dataset pipeline
func NewPipeline(engine *anonymize.Engine, store *audit.Store, cfg config.ETLConfig, policy *anonymize.Policy, logger *zap.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Pipeline{
		engine: engine,
		store:  store,
		cfg:    cfg,
		policy: policy,
		logger: logger,
		stats: &ProcessingStats{
			StartTime: time.Now(),
		},
	}
}

// ProcessFile anonymizes one dataset file. The output format follows
// the input format regardless of the output path's extension. An empty
// output path runs the pipeline without writing, for dry runs.
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, outputPath string) (*ProcessingResult, error) {
	start := time.Now()
	result := &ProcessingResult{}

	format := DetectFileFormat(inputPath)
	if format == FormatUnknown {
		return result, fmt.Errorf("unsupported file format: %s", inputPath)
	}

	p.logger.Info("Starting dataset pipeline",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("format", string(format)),
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Bool("fast_hash", p.cfg.FastHash))

	p.resetStats()

	var writer recordWriter
	if outputPath != "" {
		w, err := newRecordWriter(outputPath, format)
		if err != nil {
			return result, err
		}
		writer = w
	}

	var err error
	switch format {
	case FormatCSV:
		err = p.processCSV(ctx, inputPath, writer, result)
	case FormatParquet:
		err = p.processParquet(ctx, inputPath, writer, result)
	case FormatJSON:
		err = p.processJSON(ctx, inputPath, writer, result)
	}

	if writer != nil {
		if closeErr := writer.close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to finalize output: %w", closeErr)
		}
	}

	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}

	p.logger.Info("Dataset pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("skipped_invalid", result.SkippedInvalid),
		zap.Int64("pii_detections", result.PIIDetections),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("engine_time", result.EngineTime),
		zap.Duration("write_time", result.WriteTime))

	return result, nil
}

// processCSV reads id,text,context rows in batches
func (p *Pipeline) processCSV(ctx context.Context, inputPath string, writer recordWriter, result *ProcessingResult) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 3

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	p.logger.Debug("CSV header detected", zap.Strings("columns", header))

	return p.processBatches(ctx, func() ([]*Record, error) {
		var batch []*Record
		for len(batch) < p.cfg.BatchSize {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				p.countInvalid(result)
				continue
			}

			record := &Record{
				ID:      strings.TrimSpace(row[0]),
				Text:    row[1],
				Context: row[2],
			}
			if !p.validateRecord(record, result) {
				continue
			}
			batch = append(batch, record)
		}
		return batch, nil
	}, writer, result)
}

// processParquet reads parquet rows in batches
func (p *Pipeline) processParquet(ctx context.Context, inputPath string, writer recordWriter, result *ProcessingResult) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.processBatches(ctx, func() ([]*Record, error) {
		var batch []*Record
		for len(batch) < p.cfg.BatchSize {
			var record Record
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				p.countInvalid(result)
				continue
			}

			if !p.validateRecord(&record, result) {
				continue
			}
			batch = append(batch, &record)
		}
		return batch, nil
	}, writer, result)
}

// processJSON reads newline-delimited JSON objects in batches
func (p *Pipeline) processJSON(ctx context.Context, inputPath string, writer recordWriter, result *ProcessingResult) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.processBatches(ctx, func() ([]*Record, error) {
		var batch []*Record
		for len(batch) < p.cfg.BatchSize {
			var record Record
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				return batch, fmt.Errorf("failed to decode JSON record: %w", err)
			}

			if !p.validateRecord(&record, result) {
				continue
			}
			batch = append(batch, &record)
		}
		return batch, nil
	}, writer, result)
}

// processBatches drains the reader function batch by batch until EOF
// or cancellation.
func (p *Pipeline) processBatches(ctx context.Context, readBatch func() ([]*Record, error), writer recordWriter, result *ProcessingResult) error {
	lastReport := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		if err := p.processBatch(ctx, batch, writer, result); err != nil {
			return err
		}

		p.mu.Lock()
		p.stats.CurrentBatch++
		p.stats.RecordsRead = result.TotalRecords + result.SkippedInvalid
		p.stats.RecordsValid = result.TotalRecords
		p.stats.PIIFound = result.PIIDetections
		elapsed := time.Since(p.stats.StartTime).Seconds()
		if elapsed > 0 {
			p.stats.ProcessingRate = float64(result.TotalRecords) / elapsed
		}
		p.mu.Unlock()

		if p.cfg.ProgressInterval > 0 && time.Since(lastReport) >= p.cfg.ProgressInterval {
			p.reportProgress(result)
			lastReport = time.Now()
		}
	}

	return nil
}

// processBatch anonymizes one batch, writes the survivors, and records
// the audit trail.
func (p *Pipeline) processBatch(ctx context.Context, batch []*Record, writer recordWriter, result *ProcessingResult) error {
	var events []*audit.Event
	var anonymized []*Record

	engineStart := time.Now()
	for _, record := range batch {
		result.TotalRecords++

		recordStart := time.Now()
		contentHash := recordHash(record)

		res, err := p.anonymizeRecord(ctx, record)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.ProcessedFailed++
			if len(result.Errors) < maxReportedErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("record %s: %v", record.ID, err))
			}
			p.logger.Warn("Failed to anonymize record",
				zap.String("id", record.ID),
				zap.Error(err))
			continue
		}

		result.ProcessedOK++
		result.PIIDetections += int64(res.Metrics.PIIDetections)
		result.FieldsAnonymized += int64(res.Metrics.FieldsAnonymized)
		anonymized = append(anonymized, record)

		if p.store != nil && p.cfg.RecordAudit {
			events = append(events, audit.BuildEvent(
				uuid.NewString(), "etl", contentHash,
				res, p.policy.Frameworks, time.Since(recordStart)))
		}
	}
	result.EngineTime += time.Since(engineStart)

	if writer != nil {
		writeStart := time.Now()
		for _, record := range anonymized {
			if err := writer.write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
		result.WriteTime += time.Since(writeStart)
	}

	if len(events) > 0 {
		auditStart := time.Now()
		if _, err := p.store.RecordBatch(ctx, events); err != nil {
			p.logger.Warn("Failed to record audit batch", zap.Error(err))
		}
		result.AuditTime += time.Since(auditStart)
	}

	return nil
}

// anonymizeRecord runs the engine over the record's text columns and
// rewrites them in place.
func (p *Pipeline) anonymizeRecord(ctx context.Context, record *Record) (*anonymize.Result, error) {
	content := map[string]interface{}{
		"text":    record.Text,
		"context": record.Context,
	}

	var res *anonymize.Result
	var err error
	if p.cfg.FastHash {
		res, err = p.engine.AnonymizeFast(ctx, content, p.policy)
	} else {
		res, err = p.engine.Anonymize(ctx, content, p.policy)
	}
	if err != nil {
		return nil, err
	}

	out, ok := res.Content.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected engine output type %T", res.Content)
	}
	if text, ok := out["text"].(string); ok {
		record.Text = text
	}
	if ctxText, ok := out["context"].(string); ok {
		record.Context = ctxText
	}

	return res, nil
}

// validateRecord filters rows the pipeline will not process
func (p *Pipeline) validateRecord(record *Record, result *ProcessingResult) bool {
	if strings.TrimSpace(record.Text) == "" {
		p.logger.Debug("Invalid record: empty text", zap.String("id", record.ID))
		p.countInvalid(result)
		return false
	}
	if len(record.Text) > maxTextBytes || len(record.Context) > maxTextBytes {
		p.logger.Debug("Invalid record: text too long",
			zap.String("id", record.ID),
			zap.Int("text_bytes", len(record.Text)))
		p.countInvalid(result)
		return false
	}
	return true
}

func (p *Pipeline) countInvalid(result *ProcessingResult) {
	result.SkippedInvalid++
	p.mu.Lock()
	p.stats.RecordsInvalid++
	p.mu.Unlock()
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress(result *ProcessingResult) {
	elapsed := time.Since(p.stats.StartTime)
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(result.TotalRecords) / elapsed.Seconds()
	}

	p.logger.Info("Processing progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("records_ok", result.ProcessedOK),
		zap.Int64("records_failed", result.ProcessedFailed),
		zap.Int64("pii_detections", result.PIIDetections),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
}

// GetStats returns a copy of the current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}

// recordHash fingerprints the original row for the audit trail.
// Computed before anonymization mutates the record.
func recordHash(record *Record) string {
	hash := sha256.Sum256([]byte(record.ID + "\x00" + record.Text + "\x00" + record.Context))
	return hex.EncodeToString(hash[:])
}
