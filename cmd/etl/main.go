package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/audit"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/etl"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/logger"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON lines)")
		outputFile = flag.String("output", "", "Output file for the anonymized dataset")
		batchSize  = flag.Int("batch-size", 0, "Records per batch (overrides config)")
		fastHash   = flag.Bool("fast-hash", false, "Use the synchronous hash dispatcher for hash strategies")
		dryRun     = flag.Bool("dry-run", false, "Process and count without writing output")
		showStats  = flag.Bool("stats", false, "Show audit store statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -input dataset.csv -output clean.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -input dataset.parquet -output clean.parquet -batch-size 500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -input dataset.jsonl -dry-run\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -stats\n", os.Args[0])
		os.Exit(1)
	}
	if *inputFile != "" && *outputFile == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Either -output or -dry-run is required\n")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Data-Vault ETL",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	if *showStats {
		if err := showAuditStats(ctx, cfg, log); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
		return
	}

	if *batchSize > 0 {
		cfg.ETL.BatchSize = *batchSize
	}
	if *fastHash {
		cfg.ETL.FastHash = true
	}

	detector, err := pii.New(pii.Config{Detectors: cfg.Engine.Detectors}, log.WithComponent("pii").Logger)
	if err != nil {
		log.Fatal("Failed to create PII detector", zap.Error(err))
	}
	engine := anonymize.NewEngine(detector, log)

	// A dry run never touches the audit trail.
	var store *audit.Store
	if cfg.Audit.Enabled && cfg.ETL.RecordAudit && !*dryRun {
		store, err = audit.NewStore(cfg.Audit, log.WithComponent("audit").Logger)
		if err != nil {
			log.Warn("Audit store unavailable, continuing without it", zap.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	pipeline := etl.NewPipeline(engine, store, cfg.ETL, &cfg.Engine.Policy, log.WithComponent("etl").Logger)

	output := *outputFile
	if *dryRun {
		output = ""
	}

	result, err := pipeline.ProcessFile(ctx, *inputFile, output)
	if err != nil {
		log.Fatal("Dataset processing failed", zap.Error(err))
	}

	rate := 0.0
	if result.Duration.Seconds() > 0 {
		rate = float64(result.TotalRecords) / result.Duration.Seconds()
	}
	log.Info("Dataset processing completed",
		zap.String("file", *inputFile),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("skipped_invalid", result.SkippedInvalid),
		zap.Int64("pii_detections", result.PIIDetections),
		zap.Int64("fields_anonymized", result.FieldsAnonymized),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("engine_time", result.EngineTime),
		zap.Duration("write_time", result.WriteTime),
		zap.Duration("audit_time", result.AuditTime),
		zap.Float64("records_per_second", rate))

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}
}

// showAuditStats displays audit store statistics
func showAuditStats(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if !cfg.Audit.Enabled {
		return fmt.Errorf("audit store is disabled in configuration")
	}

	store, err := audit.NewStore(cfg.Audit, log.WithComponent("audit").Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to audit store: %w", err)
	}
	defer store.Close()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get audit stats: %w", err)
	}

	fmt.Printf("\n=== Data-Vault Audit Statistics ===\n")
	fmt.Printf("Total Events:       %d\n", stats.TotalEvents)
	fmt.Printf("Total Detections:   %d\n", stats.TotalDetections)
	fmt.Printf("Fields Anonymized:  %d\n", stats.FieldsAnonymized)
	if stats.TotalEvents > 0 {
		fmt.Printf("Non-Compliant:      %d (%.1f%%)\n", stats.NonCompliant,
			float64(stats.NonCompliant)/float64(stats.TotalEvents)*100)
	} else {
		fmt.Printf("Non-Compliant:      0\n")
	}
	fmt.Printf("Avg Duration:       %.2f ms\n", stats.AvgDurationMs)

	return nil
}
