package compile

import (
	"math/big"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
)

// coerce lifts a filter literal into the value domain of the attribute it
// compares against. Request documents carry YAML scalars; the executor
// compares typed values, so the literal must arrive in the attribute's
// representation. A literal that cannot represent a value of the type is
// an unsupported comparison.
func coerce(v any, vt catalog.ValueType) (any, error) {
	switch vt {
	case catalog.TypeLong, catalog.TypeRef:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		}

	case catalog.TypeBigInt:
		switch n := v.(type) {
		case *big.Int:
			return n, nil
		case int64:
			return big.NewInt(n), nil
		case int:
			return big.NewInt(int64(n)), nil
		case string:
			if b, ok := new(big.Int).SetString(n, 10); ok {
				return b, nil
			}
		}

	case catalog.TypeFloat:
		switch n := v.(type) {
		case float32:
			return n, nil
		case float64:
			return float32(n), nil
		case int64:
			return float32(n), nil
		case int:
			return float32(n), nil
		}

	case catalog.TypeDouble:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		}

	case catalog.TypeDecimal:
		switch n := v.(type) {
		case *apd.Decimal:
			return n, nil
		case int64:
			return apd.New(n, 0), nil
		case int:
			return apd.New(int64(n), 0), nil
		case string:
			if d, _, err := new(apd.Decimal).SetString(n); err == nil {
				return d, nil
			}
		case float64:
			d := new(apd.Decimal)
			if _, err := d.SetFloat64(n); err == nil {
				return d, nil
			}
		}

	case catalog.TypeString, catalog.TypeURI:
		if s, ok := v.(string); ok {
			return s, nil
		}

	case catalog.TypeKeyword:
		switch k := v.(type) {
		case edn.Keyword:
			return k, nil
		case string:
			kw, err := edn.ParseKeyword(k)
			if err == nil {
				return kw, nil
			}
		}

	case catalog.TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}

	case catalog.TypeInstant:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			if ts, err := time.Parse(time.RFC3339, t); err == nil {
				return ts.UTC(), nil
			}
			if ts, err := time.Parse("2006-01-02", t); err == nil {
				return ts.UTC(), nil
			}
		}

	case catalog.TypeUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u, nil
		case string:
			if id, err := uuid.Parse(u); err == nil {
				return id, nil
			}
		}

	case catalog.TypeBytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	}

	return nil, unsupported("filter", "cannot compare a %T literal against a %s attribute", v, vt)
}
