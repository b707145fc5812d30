// Package checkpoint persists the last-successful-sync timestamp per
// Notion database, keyed uniquely on the database identifier.
package checkpoint

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/syncerrors"
)

// Checkpoint is the stored sync position for one database. Absent before
// the first successful run, which triggers a full sync.
type Checkpoint struct {
	DatabaseID     string
	LastSyncAt     time.Time
	ProcessedCount int
	SyncKind       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Sync kinds recorded in checkpoint metadata.
const (
	KindFull        = "full"
	KindIncremental = "incremental"
)

// Store reads and writes checkpoints over the destination's connection
// pool. The sync orchestrator is the sole writer.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	logger *zap.Logger
}

// NewStore creates a Store on the given pool and table.
func NewStore(pool *pgxpool.Pool, table string, logger *zap.Logger) *Store {
	return &Store{
		pool:   pool,
		table:  table,
		logger: logger.With(zap.String("component", "checkpoint_store")),
	}
}

// sanitizeTable quotes a possibly schema-qualified table reference,
// treating each dot-separated part as its own identifier.
func sanitizeTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

// EnsureTable provisions the checkpoint table. Idempotent.
func (s *Store) EnsureTable(ctx context.Context) error {
	ddl := "CREATE TABLE IF NOT EXISTS " + sanitizeTable(s.table) + ` (
		id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		database_id text NOT NULL UNIQUE,
		last_sync_at timestamptz NOT NULL,
		processed_count integer NOT NULL DEFAULT 0,
		sync_kind text NOT NULL DEFAULT 'full',
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeSchema, "failed to create checkpoint table")
	}
	return nil
}

// Get returns the checkpoint for a database, or nil when none exists yet.
func (s *Store) Get(ctx context.Context, databaseID string) (*Checkpoint, error) {
	query := `SELECT database_id, last_sync_at, processed_count, sync_kind, created_at, updated_at
		FROM ` + sanitizeTable(s.table) + ` WHERE database_id = $1`

	var cp Checkpoint
	err := s.pool.QueryRow(ctx, query, databaseID).Scan(
		&cp.DatabaseID, &cp.LastSyncAt, &cp.ProcessedCount, &cp.SyncKind, &cp.CreatedAt, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, syncerrors.Wrap(err, syncerrors.ErrorTypeQuery, "failed to read checkpoint").
			WithDetail("database_id", databaseID)
	}

	return &cp, nil
}

// Save upserts the checkpoint for a database.
func (s *Store) Save(ctx context.Context, cp Checkpoint) error {
	query := `INSERT INTO ` + sanitizeTable(s.table) + `
		(database_id, last_sync_at, processed_count, sync_kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (database_id) DO UPDATE SET
			last_sync_at = EXCLUDED.last_sync_at,
			processed_count = EXCLUDED.processed_count,
			sync_kind = EXCLUDED.sync_kind,
			updated_at = now()`

	_, err := s.pool.Exec(ctx, query, cp.DatabaseID, cp.LastSyncAt, cp.ProcessedCount, cp.SyncKind)
	if err != nil {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeQuery, "failed to save checkpoint").
			WithDetail("database_id", cp.DatabaseID)
	}

	s.logger.Info("checkpoint saved",
		zap.String("database_id", cp.DatabaseID),
		zap.Time("last_sync_at", cp.LastSyncAt),
		zap.Int("processed_count", cp.ProcessedCount),
		zap.String("sync_kind", cp.SyncKind))

	return nil
}
