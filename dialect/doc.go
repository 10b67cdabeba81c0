// Package dialect names the SQL backends relmap can store graphs in and
// defines the narrow driver contract the SQL store is written against.
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// The dialect/sql package implements Driver on top of database/sql, and
// dialect/sql/sqlgraph implements relmap.Store on top of a Driver:
//
//	drv, err := sql.Open(dialect.SQLite, "file:graph.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//	g := relmap.New(sqlgraph.NewStore(drv))
//
// Sub-packages:
//
//   - dialect/sql: database/sql driver wrapper, stats and debug drivers
//   - dialect/sql/schema: creation of the graph tables
//   - dialect/sql/sqlgraph: the SQL relmap.Store
package dialect
