// relmap inspects and migrates a SQL backed relationship graph.
//
//	relmap [--config file] migrate
//	relmap [--config file] edges --type FRIEND [--dir incoming] <uuid>...
//	relmap [--config file] families
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/config"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
	sqlschema "github.com/syssam/relmap/dialect/sql/schema"
	"github.com/syssam/relmap/dialect/sql/sqlgraph"
	"github.com/syssam/relmap/schema"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// lookupLimit bounds the concurrent node lookups of the edges command.
const lookupLimit = 8

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is what every command runs with. It is filled in before any
// subcommand runs.
type env struct {
	cfg      config.Config
	log      *slog.Logger
	registry *schema.Registry
	stdout   io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		path string
		e    = &env{stdout: stdout}
	)
	root := &cobra.Command{
		Use:               "relmap",
		Short:             "Inspect and migrate a relationship graph store",
		SilenceUsage:      true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			level, err := cfg.Level()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			e.registry = schema.NewRegistry()
			if cfg.Schema != "" {
				return e.registry.LoadFile(cfg.Schema)
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&path, "config", "c", "", "path of the YAML configuration file")
	root.AddCommand(e.migrateCmd(), e.edgesCmd(), e.familiesCmd())
	return root
}

// open connects to the configured database. The returned driver is the one
// to close; the querier adds debug and slow query logging on top of it.
func (e *env) open() (*sql.Driver, dialect.Driver, error) {
	drv, err := sql.Open(e.cfg.Dialect, e.cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	var q dialect.Driver = drv
	if e.log.Enabled(context.Background(), slog.LevelDebug) {
		q = sql.NewDebugDriver(q, e.log)
	}
	if e.cfg.SlowQuery > 0 {
		q = sql.NewStatsDriver(q,
			sql.WithSlowThreshold(e.cfg.SlowQuery),
			sql.WithSlowQueryLog(e.log),
		)
	}
	return drv, q, nil
}

func (e *env) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the missing graph tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drv, _, err := e.open()
			if err != nil {
				return err
			}
			defer drv.Close()
			if err := sqlschema.Create(cmd.Context(), drv, sqlschema.WithLogger(e.log)); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(e.stdout, "schema is up to date")
			return nil
		},
	}
}

func (e *env) familiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the relationship families of the schema file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, d := range e.registry.Families() {
				fmt.Fprintf(e.stdout, "%s\t%s\t%s\t%s\n", d.Name, d.EdgeType(), d.Direction(), d.EdgeClass().Name)
			}
			return nil
		},
	}
}

func (e *env) edgesCmd() *cobra.Command {
	var family, direction string
	cmd := &cobra.Command{
		Use:   "edges <uuid>...",
		Short: "List the committed edges of one or more nodes",
		Long: `List the committed edges of one or more nodes.

The --type value is looked up as a relationship family of the schema file
first, and used as a raw edge type otherwise.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := relmap.ParseDirection(direction)
			if err != nil {
				return err
			}
			ids := make([]relmap.NativeID, len(args))
			for i, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("edges: %q: %w", arg, err)
				}
				ids[i] = id
			}
			return e.edges(cmd.Context(), ids, family, dir)
		},
	}
	cmd.Flags().StringVarP(&family, "type", "t", "", "relationship family or edge type")
	cmd.Flags().StringVarP(&direction, "dir", "d", "outgoing", "direction: outgoing or incoming")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (e *env) edges(ctx context.Context, ids []relmap.NativeID, family string, dir relmap.Direction) error {
	drv, q, err := e.open()
	if err != nil {
		return err
	}
	defer drv.Close()
	store := sqlgraph.NewStore(q)

	lines := make([][]string, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for i, id := range ids {
		g.Go(func() error {
			out, err := e.nodeEdges(ctx, store, id, family, dir)
			if err != nil {
				return fmt.Errorf("edges: %s: %w", id, err)
			}
			lines[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, out := range lines {
		for _, line := range out {
			fmt.Fprintln(e.stdout, line)
		}
	}
	return nil
}

// nodeEdges lists one node's edges of a family. Each lookup runs on its own
// graph, since a Graph is not safe for concurrent use.
func (e *env) nodeEdges(ctx context.Context, store relmap.Store, id relmap.NativeID, family string, dir relmap.Direction) ([]string, error) {
	g := relmap.New(store, relmap.WithLogger(e.log), relmap.WithRegistry(e.registry))
	n, err := g.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	var edges []*relmap.Edge
	for edge, err := range n.Mapper(family).ReadRelationships(ctx, dir) {
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	others := make([]*relmap.Node, 0, len(edges))
	for _, edge := range edges {
		others = append(others, edge.Other(n))
	}
	if err := g.Hydrate(ctx, others...); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(edges))
	for _, edge := range edges {
		out = append(out, formatEdge(n, edge))
	}
	return out, nil
}

func formatEdge(n *relmap.Node, e *relmap.Edge) string {
	var b strings.Builder
	other := e.Other(n)
	fmt.Fprintf(&b, "%s(%s)", n.Label(), n.NativeID())
	if e.Start().ID() == n.ID() {
		fmt.Fprintf(&b, " -[%s]-> ", e.Type())
	} else {
		fmt.Fprintf(&b, " <-[%s]- ", e.Type())
	}
	fmt.Fprintf(&b, "%s(%s)", other.Label(), other.NativeID())
	return b.String()
}
