// Package schema creates the tables backing the SQL graph store.
package schema

import (
	"context"
	"fmt"
	"log/slog"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
)

// Migrate adds the graph tables missing from the connected database.
// Existing tables are never altered or dropped.
type Migrate struct {
	dialect string
	atlas   migrate.Driver
	log     *slog.Logger
}

// MigrateOption configures a Migrate.
type MigrateOption func(*Migrate)

// WithLogger sets the logger reporting created tables.
func WithLogger(l *slog.Logger) MigrateOption {
	return func(m *Migrate) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMigrate opens the atlas driver matching drv's dialect.
func NewMigrate(drv *sql.Driver, opts ...MigrateOption) (*Migrate, error) {
	m := &Migrate{dialect: drv.Dialect(), log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	var err error
	switch m.dialect {
	case dialect.SQLite:
		m.atlas, err = sqlite.Open(drv.DB())
	case dialect.Postgres:
		m.atlas, err = postgres.Open(drv.DB())
	case dialect.MySQL:
		m.atlas, err = mysql.Open(drv.DB())
	default:
		err = fmt.Errorf("unsupported dialect %q", m.dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("dialect/sql/schema: %w", err)
	}
	return m, nil
}

// Plan returns the changes Create would apply: one AddTable per missing
// graph table, nodes first.
func (m *Migrate) Plan(ctx context.Context) ([]schema.Change, error) {
	current, err := m.atlas.InspectSchema(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql/schema: inspect: %w", err)
	}
	desired, err := Tables(m.dialect)
	if err != nil {
		return nil, err
	}
	var changes []schema.Change
	for _, t := range desired {
		if _, ok := current.Table(t.Name); ok {
			continue
		}
		changes = append(changes, &schema.AddTable{T: t})
	}
	return changes, nil
}

// Create applies the planned changes.
func (m *Migrate) Create(ctx context.Context) error {
	changes, err := m.Plan(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		m.log.Debug("graph tables up to date", "dialect", m.dialect)
		return nil
	}
	if err := m.atlas.ApplyChanges(ctx, changes); err != nil {
		return fmt.Errorf("dialect/sql/schema: apply: %w", err)
	}
	for _, c := range changes {
		m.log.Info("table created", "dialect", m.dialect, "table", c.(*schema.AddTable).T.Name)
	}
	return nil
}

// Create is a shorthand for NewMigrate followed by Migrate.Create.
func Create(ctx context.Context, drv *sql.Driver, opts ...MigrateOption) error {
	m, err := NewMigrate(drv, opts...)
	if err != nil {
		return err
	}
	return m.Create(ctx)
}
