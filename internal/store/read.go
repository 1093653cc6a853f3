package store

import (
	"context"
	"fmt"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
)

// Attributes reads the registered attribute definitions, ordered by ident.
// Failures surface as catalog.LoadError so the host sees them as a
// describe/connectivity failure rather than a query failure.
func (s *Store) Attributes(ctx context.Context) ([]catalog.Attribute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ident, value_type, cardinality, is_unique
		FROM attributes
		ORDER BY ident ASC
	`)
	if err != nil {
		return nil, &catalog.LoadError{Message: "reading attribute registry", Err: err}
	}
	defer rows.Close()

	var attrs []catalog.Attribute
	for rows.Next() {
		var (
			identText, vt, card string
			unique              bool
		)
		if err := rows.Scan(&identText, &vt, &card, &unique); err != nil {
			return nil, &catalog.LoadError{Message: "scanning attribute row", Err: err}
		}
		ident, err := edn.ParseKeyword(identText)
		if err != nil {
			return nil, &catalog.LoadError{Ident: identText, Message: "malformed attribute identifier", Err: err}
		}
		attrs = append(attrs, catalog.Attribute{
			Ident:       ident,
			Type:        catalog.ValueType(vt),
			Cardinality: catalog.Cardinality(card),
			Unique:      unique,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &catalog.LoadError{Message: "reading attribute registry", Err: err}
	}
	return attrs, nil
}

// Snapshot materializes the full datom set into an immutable Facts value.
// The scan orders by (a, e, v) so index construction, and therefore query
// evaluation order, is deterministic for a given database state.
func (s *Store) Snapshot(ctx context.Context) (*Facts, error) {
	attrs, err := s.Attributes(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(attrs)
	if err != nil {
		return nil, err
	}

	f := newFacts(cat)

	rows, err := s.db.QueryContext(ctx, `
		SELECT e, a, v FROM datoms
		ORDER BY a ASC, e ASC, v ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e       int64
			a, text string
		)
		if err := rows.Scan(&e, &a, &text); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		if err := f.add(e, a, text); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	f.finish()
	return f, nil
}
