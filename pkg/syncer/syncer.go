// Package syncer composes the source client, schema mapper, transformer,
// destination client, and checkpoint store into one incremental sync run:
// schema reconciliation, incremental fetch, transform, upsert, checkpoint
// advance.
package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/checkpoint"
	"github.com/snitinshk/notion-supabase-sync/pkg/metrics"
	"github.com/snitinshk/notion-supabase-sync/pkg/notion"
	"github.com/snitinshk/notion-supabase-sync/pkg/postgres"
	"github.com/snitinshk/notion-supabase-sync/pkg/schema"
	"github.com/snitinshk/notion-supabase-sync/pkg/transform"
)

// Source is the read-only view of the Notion API the engine needs.
type Source interface {
	GetDatabaseSchema(ctx context.Context, databaseID string) (*notion.Database, error)
	GetAllPages(ctx context.Context, databaseID string, opts notion.QueryOptions) ([]notion.Page, error)
}

// Destination is the destination-side surface the engine needs.
type Destination interface {
	EnsureTableExists(ctx context.Context, table string) error
	CreateMissingColumns(ctx context.Context, table string, required []schema.ColumnDefinition) *postgres.ReconcileResult
	UpsertRows(ctx context.Context, table string, rows []postgres.Row) (*postgres.UpsertResult, error)
}

// CheckpointStore persists sync positions. The engine is its sole writer.
type CheckpointStore interface {
	Get(ctx context.Context, databaseID string) (*checkpoint.Checkpoint, error)
	Save(ctx context.Context, cp checkpoint.Checkpoint) error
}

// Options controls one sync run.
type Options struct {
	ForceFullSync bool `json:"forceFullSync"`
	DryRun        bool `json:"dryRun"`
	MaxRecords    int  `json:"maxRecords"`
}

// Stats are the aggregate counts of one run.
type Stats struct {
	TotalFetched       int     `json:"totalFetched"`
	TotalTransformed   int     `json:"totalTransformed"`
	TotalSynced        int     `json:"totalSynced"`
	TransformationRate float64 `json:"transformationRate"`
	SyncRate           float64 `json:"syncRate"`
	DroppedRecords     int     `json:"droppedRecords"`
	ColumnsCreated     int     `json:"columnsCreated"`
	ColumnErrors       int     `json:"columnErrors"`
}

// Result is the outcome of one sync run.
type Result struct {
	Success   bool          `json:"success"`
	Kind      string        `json:"kind"`
	DryRun    bool          `json:"dryRun"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
	Stats     Stats         `json:"stats"`
}

// Engine runs incremental schema-synchronizing syncs for one database and
// one mirror table. Runs are linear pipelines; concurrent runs against the
// same table are not mutually excluded here, callers needing single-flight
// semantics must serialize invocations externally.
type Engine struct {
	source      Source
	dest        Destination
	checkpoints CheckpointStore
	mapper      *schema.Mapper
	transformer *transform.Transformer
	databaseID  string
	table       string
	logger      *zap.Logger
}

// New creates an Engine.
func New(source Source, dest Destination, checkpoints CheckpointStore, databaseID, table string, logger *zap.Logger) *Engine {
	return &Engine{
		source:      source,
		dest:        dest,
		checkpoints: checkpoints,
		mapper:      schema.NewMapper(logger),
		transformer: transform.New(logger),
		databaseID:  databaseID,
		table:       table,
		logger:      logger.With(zap.String("component", "syncer"), zap.String("database_id", databaseID)),
	}
}

// DatabaseID returns the source database this engine mirrors.
func (e *Engine) DatabaseID() string {
	return e.databaseID
}

// Sync executes one run. Fatal errors at the schema-fetch, table-
// provisioning, record-fetch, or upsert stages abort the run without
// advancing the checkpoint; per-record and per-column failures degrade
// gracefully with counts.
func (e *Engine) Sync(ctx context.Context, opts Options) (*Result, error) {
	startTime := time.Now().UTC()
	result := &Result{
		StartTime: startTime,
		DryRun:    opts.DryRun,
		Kind:      checkpoint.KindIncremental,
	}

	fail := func(err error) (*Result, error) {
		result.EndTime = time.Now().UTC()
		result.Duration = result.EndTime.Sub(result.StartTime)
		metrics.ObserveRun("failure", result.Kind, result.Duration,
			result.Stats.TotalFetched, result.Stats.TotalTransformed, 0)
		return result, err
	}

	e.logger.Info("sync run started",
		zap.Bool("force_full_sync", opts.ForceFullSync),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("max_records", opts.MaxRecords))

	// Schema first: the property definitions drive everything downstream.
	db, err := e.source.GetDatabaseSchema(ctx, e.databaseID)
	if err != nil {
		return fail(err)
	}
	required := e.mapper.RequiredColumns(db)

	// Reconcile destination columns, skipped entirely on a dry run.
	blocked := map[string]bool{}
	if !opts.DryRun {
		if err := e.dest.EnsureTableExists(ctx, e.table); err != nil {
			return fail(err)
		}

		reconciled := e.dest.CreateMissingColumns(ctx, e.table, required)
		result.Stats.ColumnsCreated = reconciled.Created
		result.Stats.ColumnErrors = len(reconciled.Errors)
		metrics.ColumnsCreated.Add(float64(reconciled.Created))

		// Properties whose column failed to provision drop from rows
		// this run; their column simply does not exist yet.
		for _, ce := range reconciled.Errors {
			blocked[ce.Column] = true
		}
	}

	since := e.effectiveCheckpoint(ctx, opts)
	if since == nil {
		result.Kind = checkpoint.KindFull
	}

	pages, err := e.source.GetAllPages(ctx, e.databaseID, notion.QueryOptions{
		Since:      since,
		MaxRecords: opts.MaxRecords,
	})
	if err != nil {
		return fail(err)
	}
	result.Stats.TotalFetched = len(pages)

	rows := e.transformPages(pages, required, blocked, &result.Stats)

	if opts.DryRun {
		// Report what would have been written; no writes, no checkpoint.
		result.Stats.TotalSynced = len(rows)
	} else {
		upserted, err := e.dest.UpsertRows(ctx, e.table, rows)
		if err != nil {
			return fail(err)
		}
		result.Stats.TotalSynced = upserted.Inserted + upserted.Updated

		// Stamp the checkpoint with the run's start time so records
		// modified mid-run are re-fetched next time (at-least-once bias).
		if err := e.checkpoints.Save(ctx, checkpoint.Checkpoint{
			DatabaseID:     e.databaseID,
			LastSyncAt:     startTime,
			ProcessedCount: result.Stats.TotalSynced,
			SyncKind:       result.Kind,
		}); err != nil {
			return fail(err)
		}
	}

	result.Success = true
	result.EndTime = time.Now().UTC()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Stats.TransformationRate = rate(result.Stats.TotalTransformed, result.Stats.TotalFetched)
	result.Stats.SyncRate = rate(result.Stats.TotalSynced, result.Stats.TotalTransformed)

	metrics.ObserveRun("success", result.Kind, result.Duration,
		result.Stats.TotalFetched, result.Stats.TotalTransformed, result.Stats.TotalSynced)

	e.logger.Info("sync run finished",
		zap.String("kind", result.Kind),
		zap.Int("fetched", result.Stats.TotalFetched),
		zap.Int("transformed", result.Stats.TotalTransformed),
		zap.Int("synced", result.Stats.TotalSynced),
		zap.Int("dropped", result.Stats.DroppedRecords),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// effectiveCheckpoint resolves the incremental window. A forced full sync
// ignores the store; a checkpoint read failure degrades to a full sync
// rather than aborting the run.
func (e *Engine) effectiveCheckpoint(ctx context.Context, opts Options) *time.Time {
	if opts.ForceFullSync {
		return nil
	}

	cp, err := e.checkpoints.Get(ctx, e.databaseID)
	if err != nil {
		e.logger.Warn("checkpoint read failed, falling back to full sync", zap.Error(err))
		return nil
	}
	if cp == nil {
		return nil
	}

	since := cp.LastSyncAt
	return &since
}

// transformPages converts fetched pages into destination rows. A page
// without a valid identifier is dropped and counted; a single property
// that fails to transform is omitted from its row.
func (e *Engine) transformPages(pages []notion.Page, required []schema.ColumnDefinition, blocked map[string]bool, stats *Stats) []postgres.Row {
	// Only properties that map to a provisioned column land in rows.
	columnFor := make(map[string]string, len(required))
	for _, col := range required {
		if blocked[col.Name] {
			continue
		}
		columnFor[col.SourceName] = col.Name
	}

	rows := make([]postgres.Row, 0, len(pages))
	for _, page := range pages {
		if page.ID == "" {
			stats.DroppedRecords++
			metrics.RecordErrors.WithLabelValues("transform").Inc()
			e.logger.Warn("page without identifier dropped")
			continue
		}

		row := postgres.Row{
			NotionID:     page.ID,
			LastEditedAt: page.LastEditedTime,
			Values:       make(map[string]interface{}, len(page.Properties)),
		}

		for name, prop := range page.Properties {
			column, ok := columnFor[name]
			if !ok {
				continue
			}
			if v := e.transformProperty(page.ID, name, prop); v != nil {
				row.Values[column] = v
			}
		}

		rows = append(rows, row)
		stats.TotalTransformed++
	}

	return rows
}

// transformProperty isolates one property conversion so a failure can
// never take down the record; the property is treated as null instead.
func (e *Engine) transformProperty(pageID, name string, prop notion.PropertyValue) (value interface{}) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			e.logger.Warn("property transform failed, omitting",
				zap.String("page_id", pageID),
				zap.String("property", name),
				zap.Any("panic", r))
		}
	}()
	return e.transformer.Transform(name, prop)
}

// rate returns part over whole as a percentage; an empty denominator is a
// fully successful stage.
func rate(part, whole int) float64 {
	if whole == 0 {
		return 100.0
	}
	return float64(part) / float64(whole) * 100.0
}
