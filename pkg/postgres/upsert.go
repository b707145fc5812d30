package postgres

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/retry"
	"github.com/snitinshk/notion-supabase-sync/pkg/syncerrors"
)

// Row is one destination tuple keyed on the source identifier. Values maps
// normalized column names to transformed property values; nil values are
// omitted from the statement.
type Row struct {
	NotionID     string
	LastEditedAt time.Time
	Values       map[string]interface{}
}

// UpsertResult aggregates one batch upsert.
type UpsertResult struct {
	Inserted int
	Updated  int
	Errors   []error
}

// UpsertRows writes a batch of rows keyed on the unique notion_id column.
// Every touched row has its updated_at stamped to the current time as part
// of this call. The batch is retried per the retry policy; on a
// schema-cache mismatch (a column reported unknown right after creation)
// the connection caches are refreshed and the upsert is retried once more
// before the error surfaces.
func (c *Client) UpsertRows(ctx context.Context, table string, rows []Row) (*UpsertResult, error) {
	if len(rows) == 0 {
		return &UpsertResult{}, nil
	}

	result := &UpsertResult{}

	run := func() error {
		r, err := c.upsertBatch(ctx, table, rows)
		if err != nil {
			return err
		}
		*result = *r
		return nil
	}

	err := executeWithSchemaRefresh(ctx, c.policy, c.logger.With(zap.String("table", table)), run, c.pool.Reset)
	if err != nil {
		return nil, syncerrors.Wrap(err, syncerrors.ErrorTypeQuery, "batch upsert failed").
			WithDetail("table", table).
			WithDetail("rows", len(rows))
	}

	c.logger.Info("upserted rows",
		zap.String("table", table),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// executeWithSchemaRefresh runs op under the retry policy. When the final
// failure is the undefined-column schema-cache mismatch (a stale statement
// description outliving column creation), refresh is invoked and op gets
// exactly one more attempt before the error surfaces.
func executeWithSchemaRefresh(ctx context.Context, policy *retry.Policy, logger *zap.Logger, op func() error, refresh func()) error {
	err := policy.ExecuteWithCondition(ctx, op, isTransient)
	if err != nil && isUndefinedColumn(err) {
		logger.Warn("schema cache mismatch, refreshing and retrying upsert", zap.Error(err))
		refresh()
		err = op()
	}
	return err
}

// upsertBatch issues one pipelined batch of per-row upsert statements.
func (c *Client) upsertBatch(ctx context.Context, table string, rows []Row) (*UpsertResult, error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		sql, args := buildUpsert(table, row)
		batch.Queue(sql, args...)
	}

	results := c.pool.SendBatch(ctx, batch)
	defer results.Close()

	out := &UpsertResult{}
	for range rows {
		var inserted bool
		if err := results.QueryRow().Scan(&inserted); err != nil {
			// A statement-level failure poisons the rest of the batch;
			// surface it so the retry policy can classify it.
			return nil, err
		}
		if inserted {
			out.Inserted++
		} else {
			out.Updated++
		}
	}

	return out, nil
}

// buildUpsert renders one INSERT ... ON CONFLICT statement for a row.
// Column order is sorted for stable statement text, which keeps prepared
// statement caches effective across rows with the same shape.
func buildUpsert(table string, row Row) (string, []interface{}) {
	names := make([]string, 0, len(row.Values))
	for name, value := range row.Values {
		if value == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	columns := []string{"notion_id", "last_edited_at"}
	args := []interface{}{row.NotionID, row.LastEditedAt}
	for _, name := range names {
		columns = append(columns, name)
		args = append(args, row.Values[name])
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$" + strconv.Itoa(i+1))
	}
	b.WriteString(") ON CONFLICT (notion_id) DO UPDATE SET ")
	for i, col := range columns[1:] {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
		b.WriteString(" = EXCLUDED.")
		b.WriteString(quoteIdent(col))
	}
	b.WriteString(", updated_at = now() RETURNING (xmax = 0)")

	return b.String(), args
}
