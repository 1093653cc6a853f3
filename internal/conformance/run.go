// Package conformance runs scenario files through the whole pipeline:
// catalog load, seed, snapshot sync, compilation, execution and
// post-processing. Each scenario's rendered result is pinned by a golden
// file, so a behavioral drift anywhere in the pipeline shows up as a
// golden diff rather than a silently changed row.
package conformance

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/factgrid/factgrid"
	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/compile"
	"github.com/factgrid/factgrid/internal/edn"
	"github.com/factgrid/factgrid/internal/query"
	"github.com/factgrid/factgrid/internal/relcfg"
)

// Result is one scenario's executed outcome, step by step.
type Result struct {
	Scenario string
	Steps    []StepResult
}

// StepResult captures one request's outcome. Exactly one of Err or the
// Columns/Rows pair is meaningful.
type StepResult struct {
	Name    string
	Columns []compile.ColumnMeta
	Rows    [][]any
	Err     error
}

// Run executes a scenario against a fresh in-memory store. Every step's
// outcome must match its declared expectation: a mismatch (an unexpected
// error, a missing expected error, or an error with the wrong message)
// aborts the run.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	opts, err := driverOptions(s)
	if err != nil {
		return nil, err
	}

	d, err := factgrid.Open(":memory:", opts...)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer d.Close()

	attrs, err := catalog.DecodeSnapshot(strings.NewReader(s.Schema))
	if err != nil {
		return nil, fmt.Errorf("scenario schema: %w", err)
	}
	if err := d.Store().EnsureAttributes(ctx, attrs); err != nil {
		return nil, fmt.Errorf("registering attributes: %w", err)
	}
	if err := d.Store().Seed(ctx, strings.NewReader(s.Seed)); err != nil {
		return nil, fmt.Errorf("seeding: %w", err)
	}
	if err := d.Sync(ctx); err != nil {
		return nil, fmt.Errorf("syncing: %w", err)
	}

	result := &Result{Scenario: s.Name}
	for _, step := range s.Requests {
		sr := StepResult{Name: step.Name}

		req, err := query.DecodeRequest(strings.NewReader(step.Request))
		if err == nil {
			var res *factgrid.Result
			res, err = d.Query(ctx, req)
			if err == nil {
				sr.Columns, sr.Rows = res.Columns, res.Rows
			}
		}
		sr.Err = err

		switch {
		case step.Error == "" && err != nil:
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		case step.Error != "" && err == nil:
			return nil, fmt.Errorf("step %q: expected an error containing %q, query succeeded", step.Name, step.Error)
		case step.Error != "" && !strings.Contains(err.Error(), step.Error):
			return nil, fmt.Errorf("step %q: error %q does not contain %q", step.Name, err, step.Error)
		}
		result.Steps = append(result.Steps, sr)
	}
	return result, nil
}

func driverOptions(s *Scenario) ([]factgrid.Option, error) {
	var opts []factgrid.Option
	if s.Relationships != "" {
		rels, err := relcfg.LoadSource(s.Relationships)
		if err != nil {
			return nil, fmt.Errorf("scenario relationships: %w", err)
		}
		opts = append(opts, factgrid.WithRelationships(rels))
	}
	if s.NullOrdering == "first" {
		opts = append(opts, factgrid.WithNullOrdering(factgrid.NullsFirst))
	}
	return opts, nil
}

// Snapshot renders the result as the canonical golden text: one step
// block per request, columns described as name:type, rows in their final
// order as EDN vectors.
func (r *Result) Snapshot() ([]byte, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", r.Scenario)

	for _, step := range r.Steps {
		fmt.Fprintf(&sb, "\nstep: %s\n", step.Name)
		if step.Err != nil {
			fmt.Fprintf(&sb, "error: %s\n", step.Err)
			continue
		}

		descs := make([]string, len(step.Columns))
		for i, c := range step.Columns {
			descs[i] = fmt.Sprintf("%s:%s", c.Name, c.Type)
		}
		fmt.Fprintf(&sb, "columns: %s\n", strings.Join(descs, " "))

		for i, row := range step.Rows {
			text, err := edn.MarshalString(row)
			if err != nil {
				return nil, fmt.Errorf("step %q: rendering row %d: %w", step.Name, i, err)
			}
			sb.WriteString(text)
			sb.WriteByte('\n')
		}
	}
	return []byte(sb.String()), nil
}

// RunWithGolden executes a scenario and compares its rendered result
// against testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/conformance -update
func RunWithGolden(t *testing.T, s *Scenario) {
	t.Helper()

	result, err := Run(context.Background(), s)
	if err != nil {
		t.Fatalf("running scenario %s: %v", s.Name, err)
	}

	snapshot, err := result.Snapshot()
	if err != nil {
		t.Fatalf("rendering scenario %s: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, snapshot)
}
