package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/dialect"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		dialect string
	}{
		{"Postgres", dialect.Postgres, dialect.Postgres},
		{"MySQL", dialect.MySQL, dialect.MySQL},
		{"SQLite", dialect.SQLite, dialect.SQLite},
		{"SQLite3", "sqlite3", dialect.SQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.NotNil(t, drv)
			assert.Equal(t, tt.dialect, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		query   string
		want    string
	}{
		{"postgres", dialect.Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"postgres_literal", dialect.Postgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{"postgres_identifier", dialect.Postgres, `SELECT "a?" FROM t WHERE a IN (?, ?)`, `SELECT "a?" FROM t WHERE a IN ($1, $2)`},
		{"postgres_no_args", dialect.Postgres, "SELECT 1", "SELECT 1"},
		{"mysql", dialect.MySQL, "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
		{"sqlite", dialect.SQLite, "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rebind(tt.dialect, tt.query))
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery("SELECT label FROM relmap_nodes WHERE id = \\$1").
			WithArgs("a").
			WillReturnRows(sqlmock.NewRows([]string{"label"}).AddRow("Person").AddRow("Pet"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT label FROM relmap_nodes WHERE id = ?", []any{"a"}, rows)
		require.NoError(t, err)
		var labels []string
		require.NoError(t, ScanAll(rows, func(s ColumnScanner) error {
			var l string
			if err := s.Scan(&l); err != nil {
				return err
			}
			labels = append(labels, l)
			return nil
		}))
		assert.Equal(t, []string{"Person", "Pet"}, labels)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scan_error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), "SELECT n", []any{}, rows))
		boom := errors.New("boom")
		err := ScanAll(rows, func(ColumnScanner) error { return boom })
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		expectedErr := errors.New("database error")
		mock.ExpectQuery("SELECT").WillReturnError(expectedErr)

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT", []any{}, rows)
		assert.ErrorIs(t, err, expectedErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_args", func(t *testing.T) {
		assert.Error(t, drv.Query(context.Background(), "SELECT", nil, &Rows{}))
		assert.Error(t, drv.Query(context.Background(), "SELECT", []any{}, nil))
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.SQLite, db)

	t.Run("exec_with_result", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM relmap_edges WHERE id = \\?").
			WithArgs("e").
			WillReturnResult(sqlmock.NewResult(0, 1))

		var res Result
		err := drv.Exec(context.Background(), "DELETE FROM relmap_edges WHERE id = ?", []any{"e"}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_error", func(t *testing.T) {
		expectedErr := errors.New("constraint violation")
		mock.ExpectExec("DELETE").WillReturnError(expectedErr)

		err := drv.Exec(context.Background(), "DELETE FROM relmap_edges", []any{}, nil)
		assert.ErrorIs(t, err, expectedErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_dest", func(t *testing.T) {
		assert.Error(t, drv.Exec(context.Background(), "DELETE", []any{}, new(int)))
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("successful_commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO relmap_nodes \\(id, label\\) VALUES \\(\\$1, \\$2\\)").
			WithArgs("a", "Person").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		err = tx.Exec(context.Background(), "INSERT INTO relmap_nodes (id, label) VALUES (?, ?)", []any{"a", "Person"}, nil)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT").WillReturnError(errors.New("error"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), "INSERT INTO relmap_nodes DEFAULT VALUES", []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(-1),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)

	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, drv.Exec(ctx, "DELETE FROM relmap_edges", []any{}, nil))
	require.Error(t, drv.Query(ctx, "SELECT 1", []any{}, &Rows{}))
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "UPDATE relmap_nodes SET label = 'x'", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.EqualValues(t, 2, s.TotalExecs)
	assert.EqualValues(t, 1, s.TotalQueries)
	assert.EqualValues(t, 1, s.Errors)
	assert.EqualValues(t, 3, s.SlowQueries)
	assert.Len(t, slow, 3)
	assert.Contains(t, s.String(), "queries=1 execs=2")

	drv.SetSlowThreshold(time.Hour)
	assert.Equal(t, time.Hour, drv.SlowThreshold())
	drv.QueryStats().Reset()
	assert.Equal(t, StatsSnapshot{}, drv.QueryStats().Stats())
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
}

func TestSlowQueryLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db), WithSlowThreshold(-1), WithSlowQueryLog(logger))

	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM relmap_edges", []any{}, nil))
	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, buf.String(), "DELETE FROM relmap_edges")
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.SQLite, db), logger)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "DELETE FROM relmap_edges", []any{}, nil))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	for _, want := range []string{"begin transaction", "tx exec", "DELETE FROM relmap_edges", "rollback transaction"} {
		assert.Contains(t, out, want)
	}
}
