package store

import (
	"fmt"
	"sort"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
	"github.com/factgrid/factgrid/internal/schema"
)

// identAttr is the attribute carrying an entity's symbolic identifier.
var identAttr = edn.Keyword{Namespace: "db", Name: "ident"}

// Facts is an immutable snapshot of the datom set with EAV and AVE access
// paths. It backs both the reference query executor and the driver's
// per-snapshot lookups (idents, co-occurrence). Safe for unsynchronized
// concurrent reads; a refresh builds a new Facts and swaps the pointer.
type Facts struct {
	cat *catalog.Catalog

	// eav: entity -> attribute ident -> decoded values, in encoded order.
	eav map[int64]map[string][]any
	// ave: attribute ident -> encoded value -> entity ids, ascending.
	ave map[string]map[string][]int64
	// byAttr: attribute ident -> entity ids carrying it, ascending.
	byAttr map[string][]int64

	idents map[int64]edn.Keyword
}

func newFacts(cat *catalog.Catalog) *Facts {
	return &Facts{
		cat:    cat,
		eav:    map[int64]map[string][]any{},
		ave:    map[string]map[string][]int64{},
		byAttr: map[string][]int64{},
		idents: map[int64]edn.Keyword{},
	}
}

// add indexes one datom from its storage encoding. Rows must arrive in
// (a, e, v) order; finish sorts whatever that ordering leaves unsorted.
func (f *Facts) add(e int64, attr, encoded string) error {
	ident, err := edn.ParseKeyword(attr)
	if err != nil {
		return fmt.Errorf("datom attribute %q: %w", attr, err)
	}
	a, ok := f.cat.Attribute(ident)
	if !ok {
		return fmt.Errorf("datom references unregistered attribute %s", attr)
	}
	v, err := decodeValue(a.Type, encoded)
	if err != nil {
		return fmt.Errorf("datom %s on entity %d: %w", attr, e, err)
	}

	values, ok := f.eav[e]
	if !ok {
		values = map[string][]any{}
		f.eav[e] = values
	}
	values[attr] = append(values[attr], v)

	byValue, ok := f.ave[attr]
	if !ok {
		byValue = map[string][]int64{}
		f.ave[attr] = byValue
	}
	ids := byValue[encoded]
	if len(ids) == 0 || ids[len(ids)-1] != e {
		byValue[encoded] = append(ids, e)
	}

	carriers := f.byAttr[attr]
	if len(carriers) == 0 || carriers[len(carriers)-1] != e {
		f.byAttr[attr] = append(carriers, e)
	}

	if ident == identAttr {
		if kw, ok := v.(edn.Keyword); ok {
			f.idents[e] = kw
		}
	}
	return nil
}

// finish normalizes index ordering after loading. Values under one (e, a)
// sort by their encoded form, matching the scan order of the AVE index.
func (f *Facts) finish() {
	for _, values := range f.eav {
		for attr, vs := range values {
			a, ok := f.cat.Attribute(edn.MustKeyword(attr))
			if !ok || len(vs) < 2 {
				continue
			}
			sort.SliceStable(vs, func(i, j int) bool {
				ei, _ := encodeValue(a.Type, vs[i])
				ej, _ := encodeValue(a.Type, vs[j])
				return ei < ej
			})
		}
	}
}

// Catalog returns the attribute catalog this snapshot was taken under.
func (f *Facts) Catalog() *catalog.Catalog {
	return f.cat
}

// Ident resolves an entity's symbolic identifier. Implements the
// post-processor's IdentSource.
func (f *Facts) Ident(id int64) (edn.Keyword, bool) {
	kw, ok := f.idents[id]
	return kw, ok
}

// values returns the decoded values of attr on entity e.
func (f *Facts) values(e int64, attr string) []any {
	return f.eav[e][attr]
}

// entitiesWith returns the entities carrying attr, ascending.
func (f *Facts) entitiesWith(attr string) []int64 {
	return f.byAttr[attr]
}

// entitiesWithValue returns the entities carrying attr with exactly the
// given value, ascending.
func (f *Facts) entitiesWithValue(attr string, vt catalog.ValueType, v any) []int64 {
	encoded, err := encodeValue(vt, v)
	if err != nil {
		return nil
	}
	return f.ave[attr][encoded]
}

// Cooccurrence runs the full-data scan behind co-occurrence field
// inference: for every entity and every namespace it touches, the
// attributes of other namespaces on the same entity.
func (f *Facts) Cooccurrence() schema.Cooccurrence {
	seen := map[string]map[string]bool{}
	co := schema.Cooccurrence{}

	entities := make([]int64, 0, len(f.eav))
	for e := range f.eav {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	for _, e := range entities {
		attrs := make([]string, 0, len(f.eav[e]))
		for attr := range f.eav[e] {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)

		namespaces := map[string]bool{}
		keywords := make([]edn.Keyword, len(attrs))
		for i, attr := range attrs {
			kw := edn.MustKeyword(attr)
			keywords[i] = kw
			namespaces[kw.Namespace] = true
		}

		for ns := range namespaces {
			for _, kw := range keywords {
				if kw.Namespace == ns {
					continue
				}
				if seen[ns] == nil {
					seen[ns] = map[string]bool{}
				}
				if seen[ns][kw.Lexical()] {
					continue
				}
				seen[ns][kw.Lexical()] = true
				co[ns] = append(co[ns], kw)
			}
		}
	}

	for ns := range co {
		list := co[ns]
		sort.Slice(list, func(i, j int) bool { return list[i].Compare(list[j]) < 0 })
	}
	return co
}
