// Package sqlgraph stores relmap graphs in two SQL tables, one row per node
// and one per edge. Ids are uuid strings and properties are msgpack blobs.
// The tables are created by dialect/sql/schema.
package sqlgraph

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
)

// batchSize bounds the number of ids bound into one IN list.
const batchSize = 500

// Store is a relmap.Store over a dialect.Driver. Statements use "?"
// placeholders, which dialect/sql rebinds for Postgres.
type Store struct {
	drv   dialect.ExecQuerier
	newID func() (uuid.UUID, error)
}

// Option configures a Store.
type Option func(*Store)

// WithIDs sets the identity generator. The default is uuid.NewV7, whose
// ids sort in creation order, which is the order Edges returns.
func WithIDs(fn func() (uuid.UUID, error)) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore returns a store issuing statements on drv. Passing a dialect.Tx
// scopes every write to that transaction.
func NewStore(drv dialect.ExecQuerier, opts ...Option) *Store {
	s := &Store{drv: drv, newID: uuid.NewV7}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Edges implements relmap.PersistedEdgeSource.
func (s *Store) Edges(ctx context.Context, node relmap.NativeID, typ string, dir relmap.Direction) ([]relmap.EdgeRecord, error) {
	column := "start_id"
	if dir == relmap.Incoming {
		column = "end_id"
	}
	query := "SELECT id, type, start_id, end_id, properties FROM relmap_edges WHERE " + column + " = ? AND type = ? ORDER BY id"
	rows := &sql.Rows{}
	if err := s.drv.Query(ctx, query, []any{node.String(), typ}, rows); err != nil {
		return nil, err
	}
	var out []relmap.EdgeRecord
	err := sql.ScanAll(rows, func(sc sql.ColumnScanner) error {
		var (
			id, start, end string
			rec            relmap.EdgeRecord
			props          []byte
		)
		if err := sc.Scan(&id, &rec.Type, &start, &end, &props); err != nil {
			return err
		}
		var err error
		if rec.ID, err = uuid.Parse(id); err != nil {
			return fmt.Errorf("sqlgraph: edge id %q: %w", id, err)
		}
		if rec.Start, err = uuid.Parse(start); err != nil {
			return fmt.Errorf("sqlgraph: edge %s start %q: %w", id, start, err)
		}
		if rec.End, err = uuid.Parse(end); err != nil {
			return fmt.Errorf("sqlgraph: edge %s end %q: %w", id, end, err)
		}
		if rec.Properties, err = DecodeProperties(props); err != nil {
			return fmt.Errorf("sqlgraph: edge %s: %w", id, err)
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateNode implements relmap.Store.
func (s *Store) CreateNode(ctx context.Context, rec relmap.NodeRecord) (relmap.NativeID, error) {
	id, err := s.newID()
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlgraph: new id: %w", err)
	}
	props, err := EncodeProperties(rec.Properties)
	if err != nil {
		return uuid.Nil, err
	}
	err = s.drv.Exec(ctx, "INSERT INTO relmap_nodes (id, label, properties) VALUES (?, ?, ?)",
		[]any{id.String(), rec.Label, props}, nil)
	if err != nil {
		return uuid.Nil, classify(err)
	}
	return id, nil
}

// UpdateNode implements relmap.Store.
func (s *Store) UpdateNode(ctx context.Context, rec relmap.NodeRecord) error {
	props, err := EncodeProperties(rec.Properties)
	if err != nil {
		return err
	}
	var res sql.Result
	err = s.drv.Exec(ctx, "UPDATE relmap_nodes SET label = ?, properties = ? WHERE id = ?",
		[]any{rec.Label, props, rec.ID.String()}, &res)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	// MySQL reports 0 affected rows for an update that changes nothing.
	recs, err := s.Nodes(ctx, []relmap.NativeID{rec.ID})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return relmap.NewNotFoundErrorWithID("node", rec.ID)
	}
	return nil
}

// Nodes implements relmap.Store.
func (s *Store) Nodes(ctx context.Context, ids []relmap.NativeID) ([]relmap.NodeRecord, error) {
	out := make([]relmap.NodeRecord, 0, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		batch := ids[start:min(start+batchSize, len(ids))]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id.String()
		}
		query := "SELECT id, label, properties FROM relmap_nodes WHERE id IN (" + placeholders(len(batch)) + ")"
		rows := &sql.Rows{}
		if err := s.drv.Query(ctx, query, args, rows); err != nil {
			return nil, err
		}
		err := sql.ScanAll(rows, func(sc sql.ColumnScanner) error {
			var (
				id    string
				rec   relmap.NodeRecord
				props []byte
			)
			if err := sc.Scan(&id, &rec.Label, &props); err != nil {
				return err
			}
			var err error
			if rec.ID, err = uuid.Parse(id); err != nil {
				return fmt.Errorf("sqlgraph: node id %q: %w", id, err)
			}
			if rec.Properties, err = DecodeProperties(props); err != nil {
				return fmt.Errorf("sqlgraph: node %s: %w", id, err)
			}
			out = append(out, rec)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CreateEdge implements relmap.Store. An endpoint missing from the nodes
// table fails with a relmap.ConstraintError.
func (s *Store) CreateEdge(ctx context.Context, rec relmap.EdgeRecord) (relmap.NativeID, error) {
	id, err := s.newID()
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlgraph: new id: %w", err)
	}
	props, err := EncodeProperties(rec.Properties)
	if err != nil {
		return uuid.Nil, err
	}
	err = s.drv.Exec(ctx, "INSERT INTO relmap_edges (id, type, start_id, end_id, properties) VALUES (?, ?, ?, ?, ?)",
		[]any{id.String(), rec.Type, rec.Start.String(), rec.End.String(), props}, nil)
	if err != nil {
		return uuid.Nil, classify(err)
	}
	return id, nil
}

// DeleteEdge implements relmap.Store.
func (s *Store) DeleteEdge(ctx context.Context, id relmap.NativeID) error {
	var res sql.Result
	if err := s.drv.Exec(ctx, "DELETE FROM relmap_edges WHERE id = ?", []any{id.String()}, &res); err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return relmap.NewNotFoundErrorWithID("edge", id)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// EncodeProperties marshals p with msgpack. Empty properties encode to nil,
// which is stored as NULL.
func EncodeProperties(p relmap.Properties) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	b, err := msgpack.Marshal(map[string]any(p))
	if err != nil {
		return nil, fmt.Errorf("sqlgraph: encode properties: %w", err)
	}
	return b, nil
}

// DecodeProperties is the inverse of EncodeProperties. Integers decode as
// int64 or uint64 and floats as float64, whatever width they were written with.
func DecodeProperties(b []byte) (relmap.Properties, error) {
	if len(b) == 0 {
		return nil, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("sqlgraph: decode properties: %w", err)
	}
	return relmap.Properties(m), nil
}

var _ relmap.Store = (*Store)(nil)
