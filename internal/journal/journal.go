// Package journal persists gateway callback events to PostgreSQL. The journal
// is an audit trail: every verified callback is recorded with its classified
// outcome and the raw parameter set, so disputed transactions can be traced
// without DIBS admin access.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inteleon/dibs-go/config"
)

// Event is one recorded callback.
type Event struct {
	ID         uuid.UUID
	Protocol   string
	Operation  string
	OrderID    string
	Transact   string
	Amount     int64
	Currency   string
	Status     string
	ReasonCode string
	Reason     string
	RawQuery   string
	CreatedAt  time.Time
}

// Recorder is the write side of the journal. The callback handlers depend on
// this rather than the concrete store so they can run journal-less.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

type Journal struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect establishes the journal's connection pool and verifies
// connectivity.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*Journal, error) {
	pgxCfg, err := cfg.PgxConfig(ctx)
	if err != nil {
		logger.Error("failed to build pgx config", "error", err)
		return nil, err
	}

	logger.Info("connecting to journal database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		logger.Error("failed to create connection pool", "error", err)
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping journal database", "error", err)
		pool.Close()
		return nil, err
	}

	return &Journal{pool: pool, logger: logger}, nil
}

func (j *Journal) Close() {
	j.logger.Info("closing journal connection pool")
	j.pool.Close()
}

// Migrate creates the payment_events table when it does not exist yet.
func (j *Journal) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS payment_events (
			id UUID PRIMARY KEY,
			protocol TEXT NOT NULL,
			operation TEXT NOT NULL,
			order_id TEXT NOT NULL,
			transact TEXT NOT NULL DEFAULT '',
			amount_minor BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			reason_code TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			raw_query TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS payment_events_order_id_idx ON payment_events (order_id);
	`
	if _, err := j.pool.Exec(ctx, query); err != nil {
		j.logger.Error("failed to migrate journal schema", "error", err)
		return err
	}
	return nil
}

// Record inserts one callback event. A zero ID and CreatedAt are filled in.
func (j *Journal) Record(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO payment_events (
			id, protocol, operation, order_id, transact, amount_minor,
			currency, status, reason_code, reason, raw_query, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := j.pool.Exec(ctx, query,
		event.ID,
		event.Protocol,
		event.Operation,
		event.OrderID,
		event.Transact,
		event.Amount,
		event.Currency,
		event.Status,
		event.ReasonCode,
		event.Reason,
		event.RawQuery,
		event.CreatedAt,
	)
	if err != nil {
		j.logger.Error("failed to record payment event",
			"order_id", event.OrderID,
			"error", err,
		)
		return err
	}
	return nil
}
