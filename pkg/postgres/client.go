// Package postgres implements the destination client: base table
// provisioning, column introspection, additive schema reconciliation,
// and idempotent batch upsert against the mirror table.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/config"
	"github.com/snitinshk/notion-supabase-sync/pkg/retry"
	"github.com/snitinshk/notion-supabase-sync/pkg/syncerrors"
)

// baseColumns is the fixed column set of a freshly provisioned mirror table.
var baseColumns = []string{"id", "notion_id", "created_at", "updated_at", "last_edited_at"}

// Client is the destination-side client. It is the sole writer of mirror
// rows and of schema changes.
type Client struct {
	pool   *pgxpool.Pool
	policy *retry.Policy
	logger *zap.Logger
}

// NewClient connects to the destination and validates the connection.
func NewClient(ctx context.Context, cfg config.PostgresConfig, policy *retry.Policy, logger *zap.Logger) (*Client, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, syncerrors.Wrap(err, syncerrors.ErrorTypeConfig, "failed to parse connection string")
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = 5
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, syncerrors.Wrap(err, syncerrors.ErrorTypeConnection, "failed to create connection pool")
	}

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		pool.Close()
		return nil, syncerrors.Wrap(err, syncerrors.ErrorTypeConnection, "failed to validate connection")
	}

	logger.Info("connected to destination",
		zap.Int32("max_connections", poolConfig.MaxConns))

	return &Client{
		pool:   pool,
		policy: policy,
		logger: logger.With(zap.String("component", "postgres_client")),
	}, nil
}

// Pool exposes the underlying connection pool so the checkpoint store can
// share the destination connection.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

// Ping verifies the destination is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var one int
	if err := c.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeConnection, "destination unreachable")
	}
	return nil
}

// EnsureTableExists is a no-op when the table answers a trivial read;
// otherwise it provisions the minimal base table.
func (c *Client) EnsureTableExists(ctx context.Context, table string) error {
	probe := "SELECT 1 FROM " + quoteIdent(table) + " LIMIT 1"
	err := probeResult(c.pool.Query(ctx, probe))
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UndefinedTable {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeQuery, "failed to probe table").WithDetail("table", table)
	}

	ddl := "CREATE TABLE IF NOT EXISTS " + quoteIdent(table) + ` (
		id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		notion_id text NOT NULL UNIQUE,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		last_edited_at timestamptz
	)`

	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeSchema, "failed to create base table").WithDetail("table", table)
	}

	c.logger.Info("provisioned base table", zap.String("table", table))
	return nil
}

// probeResult folds a deferred execution error into the probe outcome.
// Some query exec modes report a missing table only through Rows.Err
// after the rows are closed, not from Query itself.
func probeResult(rows pgx.Rows, err error) error {
	if err != nil {
		return err
	}
	rows.Close()
	return rows.Err()
}

// GetExistingColumns introspects the table's columns. The catalog query is
// the primary path; on any failure it degrades to sampling one row's
// columns, then to the fixed base-column set. Introspection never aborts
// a run.
func (c *Client) GetExistingColumns(ctx context.Context, table string) []string {
	schemaName, tableName := splitTable(table)

	rows, err := c.pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schemaName, tableName)
	if err == nil {
		var columns []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				break
			}
			columns = append(columns, name)
		}
		rows.Close()
		if rows.Err() == nil && len(columns) > 0 {
			return columns
		}
	}

	c.logger.Warn("catalog introspection unavailable, sampling a row",
		zap.String("table", table), zap.Error(err))

	if columns := c.sampleRowColumns(ctx, table); len(columns) > 0 {
		return columns
	}

	c.logger.Warn("falling back to base column set", zap.String("table", table))
	out := make([]string, len(baseColumns))
	copy(out, baseColumns)
	return out
}

// sampleRowColumns reads one row and returns its column names. An empty
// table yields nothing, which is a known limitation of row sampling.
func (c *Client) sampleRowColumns(ctx context.Context, table string) []string {
	rows, err := c.pool.Query(ctx, "SELECT * FROM "+quoteIdent(table)+" LIMIT 1")
	if err != nil {
		return nil
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, 0, len(fields))
	for _, fd := range fields {
		columns = append(columns, fd.Name)
	}
	return columns
}

// isTransient reports whether a destination error is worth retrying.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ConnectionException,
			pgerrcode.ConnectionDoesNotExist,
			pgerrcode.ConnectionFailure,
			pgerrcode.CannotConnectNow,
			pgerrcode.TooManyConnections,
			pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected:
			return true
		}
		return false
	}
	return retry.IsRetryable(err)
}

// isUndefinedColumn detects the schema-cache-mismatch class of error where
// the destination reports a column as unknown right after it was created.
func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedColumn
}

// quoteIdent quotes a possibly schema-qualified identifier.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// splitTable splits a table reference into schema and table name,
// defaulting to public.
func splitTable(table string) (string, string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "public", table
}
