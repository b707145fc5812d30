package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/schema"
)

// ColumnError records one column that could not be provisioned.
type ColumnError struct {
	Column string
	Err    error
}

// ReconcileResult aggregates one schema reconciliation pass.
type ReconcileResult struct {
	Created  int
	Existing int
	Missing  int
	Errors   []ColumnError
}

// CreateMissingColumns diffs the required columns against the table's
// existing ones and issues one additive ALTER per missing column. Existing
// columns are never dropped or retyped. Per-column failures are recorded
// and the rest of the columns still get provisioned; re-running with an
// unchanged schema is a cheap no-op.
func (c *Client) CreateMissingColumns(ctx context.Context, table string, required []schema.ColumnDefinition) *ReconcileResult {
	existing := c.GetExistingColumns(ctx, table)
	missing := schema.Diff(required, existing)

	result := &ReconcileResult{
		Existing: len(required) - len(missing),
		Missing:  len(missing),
	}

	if len(missing) == 0 {
		c.logger.Debug("destination schema up to date",
			zap.String("table", table),
			zap.Int("columns", len(required)))
		return result
	}

	for _, col := range missing {
		ddl := "ALTER TABLE " + quoteIdent(table) +
			" ADD COLUMN IF NOT EXISTS " + quoteIdent(col.Name) + " " + string(col.Type)

		if _, err := c.pool.Exec(ctx, ddl); err != nil {
			c.logger.Warn("failed to create column, continuing",
				zap.String("table", table),
				zap.String("column", col.Name),
				zap.String("type", string(col.Type)),
				zap.Error(err))
			result.Errors = append(result.Errors, ColumnError{Column: col.Name, Err: err})
			continue
		}

		result.Created++
		c.logger.Info("created column",
			zap.String("table", table),
			zap.String("column", col.Name),
			zap.String("type", string(col.Type)),
			zap.String("source_property", col.SourceName))
	}

	return result
}
