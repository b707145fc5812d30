// Package notionsupabasesync mirrors the records of a Notion database into
// a Postgres (Supabase) table, keeping the table's columns in lockstep with
// the database's property schema.
//
// Each sync run is a linear pipeline:
//
//  1. Fetch the database's property definitions from the Notion API.
//  2. Map each property to a normalized column name and Postgres type, and
//     additively create any columns the mirror table is missing.
//  3. Fetch the pages modified since the last successful run (or all pages
//     on a first or forced full sync), following pagination cursors.
//  4. Transform each page's property values into flat column values.
//  5. Upsert the rows keyed on the page identifier.
//  6. Advance the per-database checkpoint, stamped with the run's start
//     time so records modified mid-run are re-fetched next time.
//
// Failures degrade gracefully: one property that cannot be transformed is
// omitted from its row, one column that cannot be created drops that
// property for the run, and a checkpoint that cannot be read falls back to
// a full sync. Only failures at the schema-fetch, table-provisioning,
// record-fetch, and upsert stages abort a run, and an aborted run never
// advances the checkpoint.
//
// # Quick Start
//
//	notionsync sync --config config.yaml
//	notionsync sync --full --dry-run
//	notionsync serve --addr :8080
//
// The serve mode exposes POST /sync to trigger runs, GET /healthz, and
// Prometheus metrics on GET /metrics.
package notionsupabasesync
