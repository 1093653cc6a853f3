// Package typemap is the static bridge between the store's value types and
// the tabular column types the host sees, together with the per-type
// placeholder sentinel used to emulate null.
//
// The store has no null: an absent attribute simply has no datom. The
// compiler therefore binds every nullable position with a type-specific
// sentinel default, and the post-processor reverts sentinels to null. Both
// halves of that protocol live here, keyed purely by value type; nothing
// outside this package knows what the sentinels are.
//
// Known limitation, carried deliberately: a genuinely stored value equal to
// its type's sentinel is indistinguishable from "missing" and reads back as
// null. Booleans are the exception in the other direction: false is the only
// possible sentinel, so boolean columns are never reverted and an absent
// boolean reads as false.
package typemap

import (
	"bytes"
	"math"
	"math/big"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
)

// ColType is the host-facing column type vocabulary.
type ColType string

const (
	ColText       ColType = "text"
	ColKeyword    ColType = "keyword"
	ColBoolean    ColType = "boolean"
	ColInteger    ColType = "integer"
	ColBigInteger ColType = "biginteger"
	ColFloat      ColType = "float"
	ColDouble     ColType = "double"
	ColDecimal    ColType = "decimal"
	ColInstant    ColType = "instant"
	ColUUID       ColType = "uuid"
	ColURL        ColType = "url"
	ColBytes      ColType = "bytes"

	// ColPK marks a table's entity-id field, ColFK a plain reference
	// attribute, ColPathFK the synthetic field of a configured relationship.
	ColPK     ColType = "pk"
	ColFK     ColType = "fk"
	ColPathFK ColType = "path-fk"
)

var colTypeOf = map[catalog.ValueType]ColType{
	catalog.TypeKeyword: ColKeyword,
	catalog.TypeString:  ColText,
	catalog.TypeBoolean: ColBoolean,
	catalog.TypeLong:    ColInteger,
	catalog.TypeBigInt:  ColBigInteger,
	catalog.TypeFloat:   ColFloat,
	catalog.TypeDouble:  ColDouble,
	catalog.TypeDecimal: ColDecimal,
	catalog.TypeRef:     ColFK,
	catalog.TypeInstant: ColInstant,
	catalog.TypeUUID:    ColUUID,
	catalog.TypeURI:     ColURL,
	catalog.TypeBytes:   ColBytes,
}

var valueTypeOf = map[ColType]catalog.ValueType{
	ColKeyword:    catalog.TypeKeyword,
	ColText:       catalog.TypeString,
	ColBoolean:    catalog.TypeBoolean,
	ColInteger:    catalog.TypeLong,
	ColBigInteger: catalog.TypeBigInt,
	ColFloat:      catalog.TypeFloat,
	ColDouble:     catalog.TypeDouble,
	ColDecimal:    catalog.TypeDecimal,
	ColFK:         catalog.TypeRef,
	ColPK:         catalog.TypeRef,
	ColPathFK:     catalog.TypeRef,
	ColInstant:    catalog.TypeInstant,
	ColUUID:       catalog.TypeUUID,
	ColURL:        catalog.TypeURI,
	ColBytes:      catalog.TypeBytes,
}

// Col maps a store value type to its column type.
func Col(vt catalog.ValueType) ColType {
	return colTypeOf[vt]
}

// Value maps a column type back to the store value type it projects.
// The synthetic column kinds (pk, fk, path-fk) all map to ref.
func Value(ct ColType) (catalog.ValueType, bool) {
	vt, ok := valueTypeOf[ct]
	return vt, ok
}

// SentinelSymbol is the marker bound where a keyword attribute is absent.
// String-shaped types use its text form.
const sentinelText = "factgrid.nil"

// SentinelSymbol is the keyword-type sentinel.
var SentinelSymbol = edn.Symbol(sentinelText)

// epochZero is the instant-type sentinel.
var epochZero = time.Unix(0, 0).UTC()

// Sentinel returns the placeholder bound in place of an absent attribute
// value. The sentinel type-matches real values of the attribute so that
// grouping and comparison in the native query never see mixed types in one
// variable. Mutable kinds (bigint, decimal, bytes) are freshly allocated per
// call.
func Sentinel(vt catalog.ValueType) any {
	switch vt {
	case catalog.TypeKeyword:
		return SentinelSymbol
	case catalog.TypeString, catalog.TypeURI:
		return sentinelText
	case catalog.TypeBoolean:
		return false
	case catalog.TypeLong, catalog.TypeRef:
		return int64(math.MinInt64)
	case catalog.TypeBigInt:
		return big.NewInt(math.MinInt64)
	case catalog.TypeFloat:
		return float32(math.MinInt64)
	case catalog.TypeDouble:
		return float64(math.MinInt64)
	case catalog.TypeDecimal:
		return apd.New(math.MinInt64, 0)
	case catalog.TypeInstant:
		return epochZero
	case catalog.TypeUUID:
		return uuid.Nil
	case catalog.TypeBytes:
		return []byte{}
	}
	return nil
}

// IsSentinel reports whether v is the sentinel for value type vt.
func IsSentinel(vt catalog.ValueType, v any) bool {
	switch vt {
	case catalog.TypeKeyword:
		s, ok := v.(edn.Symbol)
		return ok && s == SentinelSymbol
	case catalog.TypeString, catalog.TypeURI:
		s, ok := v.(string)
		return ok && s == sentinelText
	case catalog.TypeBoolean:
		b, ok := v.(bool)
		return ok && !b
	case catalog.TypeLong, catalog.TypeRef:
		n, ok := v.(int64)
		return ok && n == math.MinInt64
	case catalog.TypeBigInt:
		n, ok := v.(*big.Int)
		return ok && n.IsInt64() && n.Int64() == math.MinInt64
	case catalog.TypeFloat:
		f, ok := v.(float32)
		return ok && f == float32(math.MinInt64)
	case catalog.TypeDouble:
		f, ok := v.(float64)
		return ok && f == float64(math.MinInt64)
	case catalog.TypeDecimal:
		d, ok := v.(*apd.Decimal)
		return ok && d.Cmp(apd.New(math.MinInt64, 0)) == 0
	case catalog.TypeInstant:
		t, ok := v.(time.Time)
		return ok && t.Equal(epochZero)
	case catalog.TypeUUID:
		u, ok := v.(uuid.UUID)
		return ok && u == uuid.Nil
	case catalog.TypeBytes:
		b, ok := v.([]byte)
		return ok && bytes.Equal(b, []byte{})
	}
	return false
}

// UnwrapOrNull is the result-time half of the protocol: sentinel values
// become nil, everything else passes through unchanged. Boolean columns are
// returned as-is, their sentinel is a legitimate false.
func UnwrapOrNull(vt catalog.ValueType, v any) any {
	if vt == catalog.TypeBoolean {
		return v
	}
	if v == nil {
		return nil
	}
	if IsSentinel(vt, v) {
		return nil
	}
	return v
}
