package audit

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
)

// Store persists audit events to PostgreSQL
type Store struct {
	db     *sqlx.DB
	cfg    config.AuditConfig
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id                BIGSERIAL PRIMARY KEY,
	request_id        TEXT NOT NULL UNIQUE,
	source            TEXT NOT NULL DEFAULT 'api',
	content_hash      TEXT NOT NULL,
	pii_detections    INT NOT NULL DEFAULT 0,
	fields_anonymized INT NOT NULL DEFAULT 0,
	strategies        TEXT NOT NULL DEFAULT '{}',
	frameworks        TEXT NOT NULL DEFAULT '',
	compliant         BOOLEAN NOT NULL DEFAULT TRUE,
	audit_hash        TEXT NOT NULL,
	duration_ms       BIGINT NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events (created_at)`

// NewStore creates a new audit store instance
func NewStore(cfg config.AuditConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return store, nil
}

// initialize checks the connection and ensures the audit schema
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	return nil
}

// Record inserts a single audit event, retrying transient failures
// with backoff per the store's retry configuration
func (s *Store) Record(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO audit_events
			(request_id, source, content_hash, pii_detections, fields_anonymized,
			 strategies, frameworks, compliant, audit_hash, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (request_id) DO NOTHING
		RETURNING id, created_at`

	err := s.withRetry(ctx, "record", func() error {
		err := s.db.QueryRowContext(ctx, query,
			event.RequestID,
			event.Source,
			event.ContentHash,
			event.PIIDetections,
			event.FieldsAnonymized,
			event.Strategies,
			event.Frameworks,
			event.Compliant,
			event.AuditHash,
			event.DurationMs,
		).Scan(&event.ID, &event.CreatedAt)
		if err == sql.ErrNoRows {
			// Conflict: the request was already recorded.
			return nil
		}
		return err
	})
	if err != nil {
		s.logger.Error("Failed to record audit event",
			zap.Error(err),
			zap.String("request_id", event.RequestID))
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	s.logger.Debug("Audit event recorded",
		zap.Int64("id", event.ID),
		zap.String("request_id", event.RequestID))

	return nil
}

// RecordBatch inserts multiple audit events efficiently
func (s *Store) RecordBatch(ctx context.Context, events []*Event) (*BatchResult, error) {
	if len(events) == 0 {
		return &BatchResult{}, nil
	}

	start := time.Now()
	result := &BatchResult{}

	// Prepare batch insert
	valueStrings := make([]string, 0, len(events))
	valueArgs := make([]interface{}, 0, len(events)*10)

	for i, event := range events {
		base := i * 10
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10))
		valueArgs = append(valueArgs,
			event.RequestID,
			event.Source,
			event.ContentHash,
			event.PIIDetections,
			event.FieldsAnonymized,
			event.Strategies,
			event.Frameworks,
			event.Compliant,
			event.AuditHash,
			event.DurationMs,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO audit_events
			(request_id, source, content_hash, pii_detections, fields_anonymized,
			 strategies, frameworks, compliant, audit_hash, duration_ms)
		VALUES %s
		ON CONFLICT (request_id) DO NOTHING`,
		strings.Join(valueStrings, ","))

	var res sql.Result
	err := s.withRetry(ctx, "record_batch", func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, valueArgs...)
		return execErr
	})
	if err != nil {
		result.Failed = int64(len(events))
		s.logger.Error("Batch audit insert failed", zap.Error(err))
		return result, fmt.Errorf("batch audit insert failed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Could not get rows affected", zap.Error(err))
		inserted = int64(len(events))
	}

	result.Inserted = inserted
	result.Duplicates = int64(len(events)) - inserted
	result.Duration = time.Since(start)

	s.logger.Info("Batch audit insert completed",
		zap.Int64("inserted", result.Inserted),
		zap.Int64("duplicates_skipped", result.Duplicates),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// GetStats returns aggregate audit statistics
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(pii_detections), 0) as detections,
			COALESCE(SUM(fields_anonymized), 0) as anonymized,
			COUNT(CASE WHEN NOT compliant THEN 1 END) as non_compliant,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM audit_events`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalEvents,
		&stats.TotalDetections,
		&stats.FieldsAnonymized,
		&stats.NonCompliant,
		&stats.AvgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withRetry runs fn with exponential backoff and jitter. The write
// path talks to a remote database; transient failures are expected
// and must not surface on the first hiccup.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := s.cfg.Retry.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := s.cfg.Retry.InitialBackoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		s.logger.Warn("Audit write failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(backoff)):
		}

		backoff = nextBackoff(backoff, s.cfg.Retry.Multiplier, s.cfg.Retry.MaxBackoff)
	}
	return err
}

// jitter spreads a backoff over [d/2, d) so synchronized retries from
// multiple workers do not stampede the database.
func jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := int64(d) / 2
	return time.Duration(half + rand.Int63n(half))
}

func nextBackoff(current time.Duration, multiplier float64, max time.Duration) time.Duration {
	if multiplier <= 1 {
		multiplier = 2
	}
	next := time.Duration(float64(current) * multiplier)
	if max > 0 && next > max {
		next = max
	}
	return next
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
