package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the stores use. pgxmock satisfies it
// in unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store provides Postgres-backed persistence for leads, funnel events and
// scheduled notifications.
type Store struct {
	pool    Pool
	closeFn func()
}

// New creates a Store with a pgx connection pool.
func New(ctx context.Context, connString string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool, closeFn: pool.Close}, nil
}

// NewWithPool creates a Store over an existing pool. Used by tests.
func NewWithPool(pool Pool) *Store {
	return &Store{pool: pool}
}

const migration = `
CREATE TABLE IF NOT EXISTS leads (
	id               TEXT PRIMARY KEY,
	contact_name     TEXT NOT NULL,
	organization     TEXT NOT NULL,
	contact_channel  TEXT NOT NULL,
	goal             TEXT NOT NULL,
	source_channel   TEXT NOT NULL DEFAULT '',
	originating_page TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'new',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);

CREATE TABLE IF NOT EXISTS funnel_events (
	id             TEXT PRIMARY KEY,
	phase          TEXT NOT NULL,
	source_channel TEXT NOT NULL DEFAULT '',
	lead_id        TEXT REFERENCES leads(id),
	note           TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_funnel_events_phase ON funnel_events(phase);
CREATE INDEX IF NOT EXISTS idx_funnel_events_created_at ON funnel_events(created_at);

CREATE TABLE IF NOT EXISTS scheduled_notifications (
	id             TEXT PRIMARY KEY,
	lead_id        TEXT NOT NULL REFERENCES leads(id),
	kind           TEXT NOT NULL,
	recipient      TEXT NOT NULL,
	subject        TEXT NOT NULL,
	body           TEXT NOT NULL,
	send_at        TIMESTAMPTZ NOT NULL,
	sent_at        TIMESTAMPTZ,
	outcome        TEXT NOT NULL DEFAULT 'pending',
	failure_reason TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_due ON scheduled_notifications(outcome, send_at);
CREATE UNIQUE INDEX IF NOT EXISTS uq_notifications_pending
	ON scheduled_notifications(lead_id, kind) WHERE outcome = 'pending';
`

// Migrate applies the schema. Safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
