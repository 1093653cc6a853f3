// Package factgrid runs SQL-shaped queries against a schema-less
// entity/attribute/value fact store.
//
// The driver is the single entry point: it owns the store handle, keeps an
// immutable snapshot of the attribute catalog plus indexed facts, and runs
// the full pipeline per query: compile the structured request into a native
// datalog document, execute it against the snapshot, post-process the raw
// rows (cartesian expansion, sentinel reversion, identifier resolution,
// ordering) and truncate to the requested limit.
//
// Snapshots swap atomically on Sync; queries in flight keep reading the
// snapshot they started with. The driver itself holds no per-query state.
package factgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/compile"
	"github.com/factgrid/factgrid/internal/datalog"
	"github.com/factgrid/factgrid/internal/postprocess"
	"github.com/factgrid/factgrid/internal/query"
	"github.com/factgrid/factgrid/internal/relcfg"
	"github.com/factgrid/factgrid/internal/schema"
	"github.com/factgrid/factgrid/internal/store"
)

// ErrNotSynced is returned by schema and query operations before the first
// successful Sync.
var ErrNotSynced = errors.New("factgrid: no snapshot loaded, call Sync first")

// Executor evaluates a native query document and returns raw rows aligned
// positionally with the document's select specs. The store's fact snapshot
// is the reference implementation; an external engine can stand in through
// WithExecutor.
type Executor interface {
	Execute(ctx context.Context, doc *datalog.Doc) ([][]any, error)
}

// QueryEvent describes one finished query for observability hooks.
type QueryEvent struct {
	Table   string
	Rows    int
	Elapsed time.Duration
	Err     error
}

// Observer receives a QueryEvent after every query, successful or not.
// Called synchronously on the querying goroutine; keep it cheap.
type Observer func(QueryEvent)

// NullOrdering re-exports the post-processor's null placement policy.
type NullOrdering = postprocess.NullOrdering

const (
	NullsLast  = postprocess.NullsLast
	NullsFirst = postprocess.NullsFirst
)

// snapshot is one immutable sync result: the fact set with its catalog and
// the co-occurrence scan schema inference feeds on. Queries resolve every
// lookup against the snapshot they start with.
type snapshot struct {
	facts *store.Facts
	co    schema.Cooccurrence
}

// Driver binds a fact store to the query pipeline.
type Driver struct {
	st    *store.Store
	rels  *relcfg.Config
	nulls NullOrdering
	obs   Observer
	exec  Executor // overrides the snapshot's executor when non-nil

	snap atomic.Pointer[snapshot]
}

// Option configures a Driver.
type Option func(*Driver)

// WithRelationships installs the custom relationship configuration.
func WithRelationships(rels *relcfg.Config) Option {
	return func(d *Driver) { d.rels = rels }
}

// WithNullOrdering sets where nulls sort, uniformly for every query. The
// default is NullsLast.
func WithNullOrdering(n NullOrdering) Option {
	return func(d *Driver) { d.nulls = n }
}

// WithObserver installs a query observability hook.
func WithObserver(obs Observer) Option {
	return func(d *Driver) { d.obs = obs }
}

// WithExecutor routes execution to an external engine instead of the
// snapshot's built-in evaluator. Post-processing still resolves identifiers
// against the snapshot.
func WithExecutor(e Executor) Option {
	return func(d *Driver) { d.exec = e }
}

// Open opens (or creates) the fact store at path and wraps it in a driver.
// The driver starts without a snapshot; call Sync before describing tables
// or querying. Use ":memory:" for an ephemeral store.
func Open(path string, opts ...Option) (*Driver, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	d := &Driver{st: st, rels: relcfg.Empty()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Store exposes the underlying fact store for administration: attribute
// registration, fact assertion, seeding. Mutations become visible to
// queries only after the next Sync.
func (d *Driver) Store() *store.Store {
	return d.st
}

// Close releases the store handle. In-flight queries against an already
// loaded snapshot are unaffected; the snapshot is fully in memory.
func (d *Driver) Close() error {
	return d.st.Close()
}

// Sync loads a fresh snapshot: attribute catalog, the full fact set, and
// the co-occurrence scan. The swap is atomic; concurrent queries see either
// the old snapshot or the new one, never a mix.
func (d *Driver) Sync(ctx context.Context) error {
	started := time.Now()
	facts, err := d.st.Snapshot(ctx)
	if err != nil {
		return err
	}
	snap := &snapshot{facts: facts, co: facts.Cooccurrence()}
	d.snap.Store(snap)

	cat := facts.Catalog()
	slog.Info("snapshot refreshed",
		"attributes", cat.Len(),
		"namespaces", len(cat.Namespaces()),
		"elapsed", time.Since(started),
	)
	return nil
}

func (d *Driver) current() (*snapshot, error) {
	snap := d.snap.Load()
	if snap == nil {
		return nil, ErrNotSynced
	}
	return snap, nil
}

// Catalog returns the current snapshot's attribute catalog.
func (d *Driver) Catalog() (*catalog.Catalog, error) {
	snap, err := d.current()
	if err != nil {
		return nil, err
	}
	return snap.facts.Catalog(), nil
}

// Tables lists every inferred table of the current snapshot with its full
// field set.
func (d *Driver) Tables() ([]schema.Table, error) {
	snap, err := d.current()
	if err != nil {
		return nil, err
	}
	return schema.Tables(snap.facts.Catalog(), d.rels, schema.WithCooccurrence(snap.co)), nil
}

// Columns lists the ordered fields of one inferred table.
func (d *Driver) Columns(table string) ([]schema.Field, error) {
	snap, err := d.current()
	if err != nil {
		return nil, err
	}
	return schema.Columns(snap.facts.Catalog(), d.rels, table, schema.WithCooccurrence(snap.co))
}

// Compile translates a request against the current snapshot without
// executing it. Useful for inspecting the emitted native document.
func (d *Driver) Compile(req *query.Request) (*compile.Compiled, error) {
	snap, err := d.current()
	if err != nil {
		return nil, err
	}
	return compile.Compile(req, snap.facts.Catalog(), d.rels)
}

// Result is a finished query: post-processed rows plus the per-column
// metadata describing them. Rows[i][j] corresponds to Columns[j].
type Result struct {
	Columns []compile.ColumnMeta
	Rows    [][]any
}

// Query runs the full pipeline for one request against the current
// snapshot. The returned rows are fully substituted: nulls in place of
// sentinels, symbolic identifiers in place of raw entity ids, sorted per
// the request's order entries, truncated to its limit.
func (d *Driver) Query(ctx context.Context, req *query.Request) (*Result, error) {
	started := time.Now()
	res, err := d.run(ctx, req)
	if d.obs != nil {
		ev := QueryEvent{Table: req.Table, Elapsed: time.Since(started), Err: err}
		if res != nil {
			ev.Rows = len(res.Rows)
		}
		d.obs(ev)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("query finished",
		"table", req.Table,
		"rows", len(res.Rows),
		"elapsed", time.Since(started),
	)
	return res, nil
}

func (d *Driver) run(ctx context.Context, req *query.Request) (*Result, error) {
	snap, err := d.current()
	if err != nil {
		return nil, err
	}

	compiled, err := compile.Compile(req, snap.facts.Catalog(), d.rels)
	if err != nil {
		return nil, err
	}

	exec := Executor(snap.facts)
	if d.exec != nil {
		exec = d.exec
	}
	raw, err := exec.Execute(ctx, compiled.Doc)
	if err != nil {
		return nil, fmt.Errorf("executing %q query: %w", req.Table, err)
	}

	rows, err := postprocess.Process(raw, compiled, snap.facts,
		postprocess.WithNullOrdering(d.nulls))
	if err != nil {
		return nil, err
	}

	// The executor ignores the document's limit; cutting after the sort is
	// what makes "limit" mean "first n of the ordered result".
	if compiled.Doc.Limit > 0 && len(rows) > compiled.Doc.Limit {
		rows = rows[:compiled.Doc.Limit]
	}

	return &Result{Columns: compiled.Columns, Rows: rows}, nil
}
