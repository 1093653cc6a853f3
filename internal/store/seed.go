package store

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
)

// seedDoc is the YAML seed document: a list of entities, each asserting a
// set of attribute values. A list value asserts every element (the way a
// cardinality-many attribute accumulates values); the optional id is a
// document-local handle other entities reference with "@handle".
//
//	entities:
//	  - id: dylan
//	    attrs:
//	      artist/name: "Bob Dylan"
//	      artist/startYear: 1961
//	  - attrs:
//	      track/name: "Hurricane"
//	      track/artist: "@dylan"
type seedDoc struct {
	Entities []seedEntity `yaml:"entities"`
}

type seedEntity struct {
	ID    string         `yaml:"id,omitempty"`
	Attrs map[string]any `yaml:"attrs"`
}

// Seed loads a YAML seed document: allocates one entity per document entry,
// then asserts its attribute values. Unknown attributes, unknown handles
// and values that do not fit their attribute's type are errors; nothing is
// written unless the whole document loads.
func (s *Store) Seed(ctx context.Context, r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc seedDoc
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("seed: parsing document: %w", err)
	}
	if len(doc.Entities) == 0 {
		return fmt.Errorf("seed: document declares no entities")
	}

	types, err := s.attributeTypes(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	handles := map[string]int64{}
	ids := make([]int64, len(doc.Entities))
	for i, ent := range doc.Entities {
		id, err := s.NewEntity(ctx)
		if err != nil {
			return fmt.Errorf("seed: entity %d: %w", i, err)
		}
		ids[i] = id
		if ent.ID == "" {
			continue
		}
		if _, dup := handles[ent.ID]; dup {
			return fmt.Errorf("seed: duplicate entity handle %q", ent.ID)
		}
		handles[ent.ID] = id
	}

	var facts []Fact
	for i, ent := range doc.Entities {
		names := make([]string, 0, len(ent.Attrs))
		for name := range ent.Attrs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ident, err := edn.ParseKeyword(name)
			if err != nil {
				return fmt.Errorf("seed: entity %d: malformed attribute %q: %w", i, name, err)
			}
			vt, ok := types[ident.Lexical()]
			if !ok {
				return fmt.Errorf("seed: entity %d: unregistered attribute %s", i, ident.Lexical())
			}

			raw := ent.Attrs[name]
			values, many := raw.([]any)
			if !many {
				values = []any{raw}
			}
			for _, rv := range values {
				v, err := seedValue(vt, rv, handles)
				if err != nil {
					return fmt.Errorf("seed: entity %d, attribute %s: %w", i, ident.Lexical(), err)
				}
				facts = append(facts, Fact{E: ids[i], A: ident, V: v})
			}
		}
	}

	return s.Assert(ctx, facts)
}

// seedValue converts one document scalar, resolving "@handle" references
// for reference-typed attributes.
func seedValue(vt catalog.ValueType, raw any, handles map[string]int64) (any, error) {
	if vt == catalog.TypeRef {
		if text, ok := raw.(string); ok && strings.HasPrefix(text, "@") {
			id, ok := handles[text[1:]]
			if !ok {
				return nil, fmt.Errorf("unknown entity handle %q", text)
			}
			return id, nil
		}
	}
	return fromScalar(vt, raw)
}
