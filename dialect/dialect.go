package dialect

import (
	"context"
	"fmt"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the two statement methods. Args are passed as []any and
// v is the destination: nil or *sql.Result for Exec, *sql.Rows for Query.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for stores
// backed by a SQL connection.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Check returns an error for unsupported dialect names.
func Check(name string) error {
	switch name {
	case MySQL, SQLite, Postgres:
		return nil
	default:
		return fmt.Errorf("dialect: unsupported dialect %q", name)
	}
}
