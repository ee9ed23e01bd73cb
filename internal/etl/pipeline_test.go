package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/logger"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()

	detector, err := pii.New(pii.Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build detector: %v", err)
	}
	engine := anonymize.NewEngine(detector, &logger.Logger{Logger: zap.NewNop()})

	cfg := config.ETLConfig{BatchSize: 2}
	return NewPipeline(engine, nil, cfg, anonymize.DefaultPolicy(), zap.NewNop())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestProcessFileCSV(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()

	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	writeFile(t, in, "id,text,context\nr1,contact a@b.co today,\nr2,nothing sensitive,\nr3,also clean,extra note\n")

	result, err := p.ProcessFile(context.Background(), in, out)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if result.TotalRecords != 3 || result.ProcessedOK != 3 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if result.PIIDetections < 1 {
		t.Errorf("expected at least one detection, got %d", result.PIIDetections)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("output not valid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][1] != "text" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if strings.Contains(rows[1][1], "a@b.co") {
		t.Errorf("raw email escaped into output: %q", rows[1][1])
	}
	if !strings.Contains(rows[1][1], "[EMAIL_REDACTED]") {
		t.Errorf("expected redaction placeholder, got %q", rows[1][1])
	}
	if rows[2][1] != "nothing sensitive" {
		t.Errorf("clean row altered: %q", rows[2][1])
	}
	if rows[3][2] != "extra note" {
		t.Errorf("context column lost: %v", rows[3])
	}
}

func TestProcessFileJSONLines(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()

	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeFile(t, in,
		`{"id":"r1","text":"mail a@b.co","context":""}`+"\n"+
			`{"id":"r2","text":"plain row","context":"note"}`+"\n")

	result, err := p.ProcessFile(context.Background(), in, out)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.ProcessedOK != 2 {
		t.Fatalf("expected 2 processed, got %+v", result)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 output lines, got %d", len(lines))
	}

	var first Record
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("output line not valid JSON: %v", err)
	}
	if first.ID != "r1" {
		t.Errorf("record order not preserved: %+v", first)
	}
	if strings.Contains(first.Text, "a@b.co") {
		t.Errorf("raw email escaped into output: %q", first.Text)
	}

	var second Record
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("output line not valid JSON: %v", err)
	}
	if second.Text != "plain row" || second.Context != "note" {
		t.Errorf("clean row altered: %+v", second)
	}
}

func TestProcessFileParquet(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()

	in := filepath.Join(dir, "in.parquet")
	out := filepath.Join(dir, "out.parquet")

	f, err := os.Create(in)
	if err != nil {
		t.Fatalf("failed to create input: %v", err)
	}
	w := parquet.NewWriter(f, parquet.SchemaOf(new(Record)))
	records := []Record{
		{ID: "r1", Text: "mail a@b.co", Context: ""},
		{ID: "r2", Text: "plain row", Context: "note"},
	}
	for i := range records {
		if err := w.Write(&records[i]); err != nil {
			t.Fatalf("failed to write parquet record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close parquet writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close input: %v", err)
	}

	result, err := p.ProcessFile(context.Background(), in, out)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.ProcessedOK != 2 {
		t.Fatalf("expected 2 processed, got %+v", result)
	}

	of, err := os.Open(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	defer of.Close()

	reader := parquet.NewReader(of)
	defer reader.Close()

	var got Record
	if err := reader.Read(&got); err != nil {
		t.Fatalf("failed to read output parquet: %v", err)
	}
	if strings.Contains(got.Text, "a@b.co") {
		t.Errorf("raw email escaped into output: %q", got.Text)
	}
	if !strings.Contains(got.Text, "[EMAIL_REDACTED]") {
		t.Errorf("expected redaction placeholder, got %q", got.Text)
	}
}

func TestDryRunSkipsOutput(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()

	in := filepath.Join(dir, "in.csv")
	writeFile(t, in, "id,text,context\nr1,mail a@b.co,\n")

	result, err := p.ProcessFile(context.Background(), in, "")
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.ProcessedOK != 1 || result.PIIDetections < 1 {
		t.Errorf("dry run should still process and count: %+v", result)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("dry run wrote output files: %v", entries)
	}
}

func TestUnsupportedFormatRejected(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()

	in := filepath.Join(dir, "in.txt")
	writeFile(t, in, "whatever")

	if _, err := p.ProcessFile(context.Background(), in, ""); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCancelledContextStopsProcessing(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()

	in := filepath.Join(dir, "in.csv")
	writeFile(t, in, "id,text,context\nr1,mail a@b.co,\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.ProcessFile(ctx, in, ""); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestValidateRecord(t *testing.T) {
	p := newTestPipeline(t)

	tests := []struct {
		name   string
		record Record
		want   bool
	}{
		{"NormalRow", Record{ID: "1", Text: "hello"}, true},
		{"EmptyText", Record{ID: "1", Text: "   "}, false},
		{"OversizedText", Record{ID: "1", Text: strings.Repeat("a", maxTextBytes+1)}, false},
		{"OversizedContext", Record{ID: "1", Text: "ok", Context: strings.Repeat("a", maxTextBytes+1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &ProcessingResult{}
			if got := p.validateRecord(&tt.record, result); got != tt.want {
				t.Errorf("validateRecord() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFileFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     FileFormat
	}{
		{"data.csv", FormatCSV},
		{"DATA.CSV", FormatCSV},
		{"data.parquet", FormatParquet},
		{"data.json", FormatJSON},
		{"data.jsonl", FormatJSON},
		{"data.ndjson", FormatJSON},
		{"data.txt", FormatUnknown},
		{"data", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectFileFormat(tt.filename); got != tt.want {
				t.Errorf("DetectFileFormat(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
