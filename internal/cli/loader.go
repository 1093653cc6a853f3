package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/factgrid/factgrid"
	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/query"
	"github.com/factgrid/factgrid/internal/relcfg"
)

// openDriver opens the fact store named by the global flags, loads the
// relationship configuration when one is configured, and takes the initial
// snapshot. The caller owns the returned driver and must Close it.
func openDriver(ctx context.Context, opts *RootOptions) (*factgrid.Driver, error) {
	var dOpts []factgrid.Option
	if opts.Relationships != "" {
		rels, err := relcfg.Load(opts.Relationships)
		if err != nil {
			return nil, fmt.Errorf("loading relationship config: %w", err)
		}
		dOpts = append(dOpts, factgrid.WithRelationships(rels))
	}

	d, err := factgrid.Open(opts.DB, dOpts...)
	if err != nil {
		return nil, fmt.Errorf("opening fact store %s: %w", opts.DB, err)
	}
	if err := d.Sync(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return d, nil
}

// loadSchemaFile registers the attributes of a YAML schema snapshot file.
func loadSchemaFile(ctx context.Context, d *factgrid.Driver, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening schema file: %w", err)
	}
	defer f.Close()

	attrs, err := catalog.DecodeSnapshot(f)
	if err != nil {
		return 0, err
	}
	if err := d.Store().EnsureAttributes(ctx, attrs); err != nil {
		return 0, err
	}
	return len(attrs), nil
}

// loadSeedFile asserts the facts of a YAML seed file.
func loadSeedFile(ctx context.Context, d *factgrid.Driver, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return d.Store().Seed(ctx, f)
}

// loadRequestFile parses a YAML query request file.
func loadRequestFile(path string) (*query.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening request file: %w", err)
	}
	defer f.Close()
	return query.DecodeRequest(f)
}
