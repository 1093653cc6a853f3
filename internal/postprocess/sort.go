package postprocess

import (
	"bytes"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/compile"
	"github.com/factgrid/factgrid/internal/edn"
)

// sortRows stable-sorts the expanded, substituted rows by the compiled
// order-by specs. Each spec must be one of the document's select specs
// (the compiler reuses the projected column's spec); a spec matching no
// column is a metadata mismatch. Null placement follows the configured
// policy independent of sort direction.
func sortRows(rows [][]any, c *compile.Compiled, nulls NullOrdering) error {
	if len(c.Doc.OrderBy) == 0 {
		return nil
	}

	type sortKey struct {
		col  int
		desc bool
	}
	keys := make([]sortKey, len(c.Doc.OrderBy))
	for i, o := range c.Doc.OrderBy {
		idx := -1
		for j, s := range c.Doc.Select {
			if s == o.Spec {
				idx = j
				break
			}
		}
		if idx < 0 {
			return &ProcessError{Row: -1, Column: -1,
				Message: "order-by spec matches no select column"}
		}
		keys[i] = sortKey{col: idx, desc: o.Desc}
	}

	coll := collate.New(language.Und)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := rows[i][k.col], rows[j][k.col]
			if a == nil || b == nil {
				if a == nil && b == nil {
					continue
				}
				// Policy placement, not direction-relative.
				return (a == nil) == (nulls == NullsFirst)
			}
			cmp := compareValues(coll, c.Columns[k.col].Type, a, b)
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

// compareValues orders two non-nil values by the column's natural ordering
// for its declared value type. Reference columns may hold a mix of raw ids
// and resolved identifier strings; ids order before identifiers so the
// grouping is stable.
func compareValues(coll *collate.Collator, vt catalog.ValueType, a, b any) int {
	switch vt {
	case catalog.TypeString, catalog.TypeURI:
		as, aok := a.(string)
		bs, bok := b.(string)
		if aok && bok {
			return coll.CompareString(as, bs)
		}

	case catalog.TypeKeyword:
		return coll.CompareString(keywordText(a), keywordText(b))

	case catalog.TypeBoolean:
		ab, aok := a.(bool)
		bb, bok := b.(bool)
		if aok && bok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}

	case catalog.TypeLong:
		an, aok := a.(int64)
		bn, bok := b.(int64)
		if aok && bok {
			return cmpOrdered(an, bn)
		}

	case catalog.TypeRef:
		an, aok := a.(int64)
		bn, bok := b.(int64)
		switch {
		case aok && bok:
			return cmpOrdered(an, bn)
		case aok:
			return -1
		case bok:
			return 1
		default:
			as, aok := a.(string)
			bs, bok := b.(string)
			if aok && bok {
				return coll.CompareString(as, bs)
			}
		}

	case catalog.TypeBigInt:
		an, aok := a.(*big.Int)
		bn, bok := b.(*big.Int)
		if aok && bok {
			return an.Cmp(bn)
		}

	case catalog.TypeFloat:
		af, aok := a.(float32)
		bf, bok := b.(float32)
		if aok && bok {
			return cmpOrdered(af, bf)
		}

	case catalog.TypeDouble:
		af, aok := a.(float64)
		bf, bok := b.(float64)
		if aok && bok {
			return cmpOrdered(af, bf)
		}

	case catalog.TypeDecimal:
		ad, aok := a.(*apd.Decimal)
		bd, bok := b.(*apd.Decimal)
		if aok && bok {
			return ad.Cmp(bd)
		}

	case catalog.TypeInstant:
		at, aok := a.(time.Time)
		bt, bok := b.(time.Time)
		if aok && bok {
			return at.Compare(bt)
		}

	case catalog.TypeUUID:
		au, aok := a.(uuid.UUID)
		bu, bok := b.(uuid.UUID)
		if aok && bok {
			return bytes.Compare(au[:], bu[:])
		}

	case catalog.TypeBytes:
		ab, aok := a.([]byte)
		bb, bok := b.([]byte)
		if aok && bok {
			return bytes.Compare(ab, bb)
		}
	}

	// Mixed representations within one column fall back to a rendered
	// comparison so ordering stays total and deterministic.
	return strings.Compare(rendered(a), rendered(b))
}

func keywordText(v any) string {
	switch k := v.(type) {
	case edn.Keyword:
		return k.Lexical()
	case string:
		return k
	default:
		return rendered(v)
	}
}

func rendered(v any) string {
	s, err := edn.MarshalString(v)
	if err != nil {
		return ""
	}
	return s
}

func cmpOrdered[T int64 | float32 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
