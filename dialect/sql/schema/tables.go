package schema

import (
	"fmt"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/relmap/dialect"
)

// Table names of the graph store.
const (
	NodesTable = "relmap_nodes"
	EdgesTable = "relmap_edges"
)

// columnTypes holds the per-dialect column types of the graph tables.
type columnTypes struct {
	id    schema.Type
	name  schema.Type
	props schema.Type
}

func typesFor(name string) (columnTypes, error) {
	switch name {
	case dialect.SQLite:
		return columnTypes{
			id:    &schema.StringType{T: "text"},
			name:  &schema.StringType{T: "text"},
			props: &schema.BinaryType{T: "blob"},
		}, nil
	case dialect.Postgres:
		return columnTypes{
			id:    &schema.StringType{T: "varchar", Size: 36},
			name:  &schema.StringType{T: "varchar", Size: 255},
			props: &schema.BinaryType{T: "bytea"},
		}, nil
	case dialect.MySQL:
		return columnTypes{
			id:    &schema.StringType{T: "varchar", Size: 36},
			name:  &schema.StringType{T: "varchar", Size: 255},
			props: &schema.BinaryType{T: "longblob"},
		}, nil
	default:
		return columnTypes{}, fmt.Errorf("dialect/sql/schema: unsupported dialect %q", name)
	}
}

func column(name string, t schema.Type, null bool) *schema.Column {
	return &schema.Column{Name: name, Type: &schema.ColumnType{Type: t, Null: null}}
}

// Tables returns the desired graph tables for the dialect. Edges reference
// both endpoints and are removed with them; lookups by endpoint and type
// are indexed in both directions.
func Tables(name string) ([]*schema.Table, error) {
	types, err := typesFor(name)
	if err != nil {
		return nil, err
	}

	nodeID := column("id", types.id, false)
	nodes := schema.NewTable(NodesTable).
		AddColumns(
			nodeID,
			column("label", types.name, false),
			column("properties", types.props, true),
		)
	nodes.SetPrimaryKey(schema.NewPrimaryKey(nodeID))

	var (
		edgeID  = column("id", types.id, false)
		edgeTyp = column("type", types.name, false)
		startID = column("start_id", types.id, false)
		endID   = column("end_id", types.id, false)
	)
	edges := schema.NewTable(EdgesTable).
		AddColumns(edgeID, edgeTyp, startID, endID, column("properties", types.props, true))
	edges.SetPrimaryKey(schema.NewPrimaryKey(edgeID))
	edges.AddIndexes(
		schema.NewIndex("relmap_edges_start_type").AddColumns(startID, edgeTyp),
		schema.NewIndex("relmap_edges_end_type").AddColumns(endID, edgeTyp),
	)
	edges.AddForeignKeys(
		schema.NewForeignKey("relmap_edges_start_fk").
			AddColumns(startID).
			SetRefTable(nodes).
			AddRefColumns(nodeID).
			SetOnDelete(schema.Cascade),
		schema.NewForeignKey("relmap_edges_end_fk").
			AddColumns(endID).
			SetRefTable(nodes).
			AddRefColumns(nodeID).
			SetOnDelete(schema.Cascade),
	)
	return []*schema.Table{nodes, edges}, nil
}
