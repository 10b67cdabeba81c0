// Package sql wraps database/sql as a dialect.Driver.
//
// Statements are written once with "?" placeholders; Conn rebinds them to
// "$1, $2, ..." for Postgres before they reach the database. StatsDriver
// and DebugDriver decorate any dialect.Driver with counters, slow-query
// logging and statement logging through log/slog.
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    return err
//	}
//	stats := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
package sql
