package sqlgraph

import (
	"errors"
	"strings"

	"github.com/syssam/relmap"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return relmap.IsConstraintError(err) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// errorCoder is implemented by pq.Error and modernc.org/sqlite errors.
type errorCoder interface {
	Code() string
}

// errorNumberer is implemented by mysql.MySQLError.
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is implemented by errors carrying a SQLSTATE code.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
)

// violation describes how each driver reports one kind of constraint failure.
type violation struct {
	state   string
	numbers []uint16
	text    []string
}

var (
	uniqueViolation = violation{
		state:   pgUniqueViolation,
		numbers: []uint16{mysqlDuplicateEntry},
		text:    []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	}
	foreignKeyViolation = violation{
		state:   pgForeignKeyViolation,
		numbers: []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		text:    []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	checkViolation = violation{
		state:   pgCheckViolation,
		numbers: []uint16{mysqlCheckConstraintViolate},
		text:    []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
)

func (v violation) match(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == v.state {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == v.state {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok {
		for _, n := range v.numbers {
			if e.Number() == n {
				return true
			}
		}
	}
	// Drivers that expose no code, such as modernc.org/sqlite, are matched by message.
	return containsAny(err.Error(), v.text...)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	return uniqueViolation.match(err)
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key
// constraint violation, as when an edge names an endpoint that does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return foreignKeyViolation.match(err)
}

// IsCheckConstraintError reports if the error resulted from a check constraint violation.
func IsCheckConstraintError(err error) bool {
	return checkViolation.match(err)
}

// classify turns driver constraint violations into relmap.ConstraintError.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsForeignKeyConstraintError(err):
		return relmap.NewConstraintError("edge endpoint does not exist", err)
	case IsUniqueConstraintError(err):
		return relmap.NewConstraintError("duplicate id", err)
	case IsCheckConstraintError(err):
		return relmap.NewConstraintError("check failed", err)
	default:
		return err
	}
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
