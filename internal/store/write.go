package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
)

// Fact is one assertion: entity E carries attribute A with value V. V must
// belong to the attribute's declared value type.
type Fact struct {
	E int64
	A edn.Keyword
	V any
}

// EnsureAttributes registers attribute definitions, inserting new ones and
// verifying that re-registered idents still carry the same definition. An
// attribute whose type, cardinality or uniqueness changed is an error:
// existing datoms were encoded under the old definition.
func (s *Store) EnsureAttributes(ctx context.Context, attrs []catalog.Attribute) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ensure attributes: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, a := range attrs {
		card := a.Cardinality
		if card == "" {
			card = catalog.One
		}
		var (
			vt     string
			crd    string
			unique bool
		)
		err := tx.QueryRowContext(ctx,
			`SELECT value_type, cardinality, is_unique FROM attributes WHERE ident = ?`,
			a.Ident.Lexical(),
		).Scan(&vt, &crd, &unique)
		switch {
		case err == nil:
			if vt != string(a.Type) || crd != string(card) || unique != a.Unique {
				return fmt.Errorf("ensure attributes: %s is already registered with a different definition", a.Ident.Lexical())
			}
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO attributes (ident, value_type, cardinality, is_unique) VALUES (?, ?, ?, ?)`,
				a.Ident.Lexical(), string(a.Type), string(card), a.Unique,
			); err != nil {
				return fmt.Errorf("ensure attributes: insert %s: %w", a.Ident.Lexical(), err)
			}
		default:
			return fmt.Errorf("ensure attributes: lookup %s: %w", a.Ident.Lexical(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ensure attributes: commit: %w", err)
	}
	return nil
}

// NewEntity allocates a fresh entity id.
func (s *Store) NewEntity(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO entities DEFAULT VALUES`)
	if err != nil {
		return 0, fmt.Errorf("new entity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("new entity: last insert id: %w", err)
	}
	return id, nil
}

// Assert writes facts in one transaction. Values are encoded under their
// attribute's registered value type; asserting against an unregistered
// attribute is an error. Re-asserting an existing datom is a no-op.
func (s *Store) Assert(ctx context.Context, facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}

	types, err := s.attributeTypes(ctx)
	if err != nil {
		return fmt.Errorf("assert: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("assert: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, f := range facts {
		vt, ok := types[f.A.Lexical()]
		if !ok {
			return fmt.Errorf("assert: unregistered attribute %s", f.A.Lexical())
		}
		encoded, err := encodeValue(vt, f.V)
		if err != nil {
			return fmt.Errorf("assert %s on entity %d: %w", f.A.Lexical(), f.E, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO datoms (e, a, v) VALUES (?, ?, ?)
			ON CONFLICT(e, a, v) DO NOTHING
		`, f.E, f.A.Lexical(), encoded); err != nil {
			return fmt.Errorf("assert %s on entity %d: %w", f.A.Lexical(), f.E, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("assert: commit: %w", err)
	}
	return nil
}

// attributeTypes loads the registered value type per attribute ident.
func (s *Store) attributeTypes(ctx context.Context) (map[string]catalog.ValueType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ident, value_type FROM attributes`)
	if err != nil {
		return nil, fmt.Errorf("load attribute types: %w", err)
	}
	defer rows.Close()

	types := map[string]catalog.ValueType{}
	for rows.Next() {
		var ident, vt string
		if err := rows.Scan(&ident, &vt); err != nil {
			return nil, fmt.Errorf("load attribute types: %w", err)
		}
		types[ident] = catalog.ValueType(vt)
	}
	return types, rows.Err()
}
