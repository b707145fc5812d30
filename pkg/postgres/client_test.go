package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

// stubRows implements pgx.Rows for probe tests; only Close and Err matter.
type stubRows struct {
	err    error
	closed bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Next() bool                                   { return false }
func (r *stubRows) Scan(dest ...interface{}) error               { return nil }
func (r *stubRows) Values() ([]interface{}, error)               { return nil, nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func TestProbeResult(t *testing.T) {
	t.Run("immediate error passes through", func(t *testing.T) {
		want := errors.New("connect refused")
		assert.Equal(t, want, probeResult(nil, want))
	})

	t.Run("clean probe closes rows", func(t *testing.T) {
		rows := &stubRows{}
		assert.NoError(t, probeResult(rows, nil))
		assert.True(t, rows.closed)
	})

	t.Run("deferred execution error surfaces", func(t *testing.T) {
		deferred := &pgconn.PgError{Code: pgerrcode.UndefinedTable}
		rows := &stubRows{err: deferred}

		err := probeResult(rows, nil)
		assert.True(t, rows.closed)

		var pgErr *pgconn.PgError
		assert.True(t, errors.As(err, &pgErr))
		assert.Equal(t, pgerrcode.UndefinedTable, pgErr.Code)
	})
}
