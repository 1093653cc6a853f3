package store

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
)

// instantLayout is the canonical instant encoding: millisecond UTC, fixed
// width so encoded instants sort chronologically as text.
const instantLayout = "2006-01-02T15:04:05.000Z"

// encodeValue renders a typed value into its canonical storage text. The
// encoding is injective per value type, which is what lets the AVE index
// answer equality lookups on the encoded column.
func encodeValue(vt catalog.ValueType, v any) (string, error) {
	switch vt {
	case catalog.TypeKeyword:
		if k, ok := v.(edn.Keyword); ok {
			return k.Lexical(), nil
		}

	case catalog.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}

	case catalog.TypeBoolean:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), nil
		}

	case catalog.TypeLong, catalog.TypeRef:
		if n, ok := v.(int64); ok {
			return strconv.FormatInt(n, 10), nil
		}

	case catalog.TypeBigInt:
		if n, ok := v.(*big.Int); ok {
			return n.String(), nil
		}

	case catalog.TypeFloat:
		if f, ok := v.(float32); ok {
			return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
		}

	case catalog.TypeDouble:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}

	case catalog.TypeDecimal:
		if d, ok := v.(*apd.Decimal); ok {
			return d.Text('f'), nil
		}

	case catalog.TypeInstant:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(instantLayout), nil
		}

	case catalog.TypeUUID:
		if u, ok := v.(uuid.UUID); ok {
			return u.String(), nil
		}

	case catalog.TypeURI:
		if s, ok := v.(string); ok {
			if _, err := url.Parse(s); err != nil {
				return "", fmt.Errorf("encode uri: %w", err)
			}
			return s, nil
		}

	case catalog.TypeBytes:
		if b, ok := v.([]byte); ok {
			return base64.StdEncoding.EncodeToString(b), nil
		}
	}
	return "", fmt.Errorf("encode: %T is not a %s value", v, vt)
}

// decodeValue parses canonical storage text back into the typed value
// domain the executor and post-processor operate on.
func decodeValue(vt catalog.ValueType, s string) (any, error) {
	switch vt {
	case catalog.TypeKeyword:
		return edn.ParseKeyword(s)

	case catalog.TypeString, catalog.TypeURI:
		return s, nil

	case catalog.TypeBoolean:
		return strconv.ParseBool(s)

	case catalog.TypeLong, catalog.TypeRef:
		return strconv.ParseInt(s, 10, 64)

	case catalog.TypeBigInt:
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("decode bigint %q", s)
		}
		return n, nil

	case catalog.TypeFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		return float32(f), nil

	case catalog.TypeDouble:
		return strconv.ParseFloat(s, 64)

	case catalog.TypeDecimal:
		d, _, err := new(apd.Decimal).SetString(s)
		if err != nil {
			return nil, err
		}
		return d, nil

	case catalog.TypeInstant:
		t, err := time.Parse(instantLayout, s)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil

	case catalog.TypeUUID:
		return uuid.Parse(s)

	case catalog.TypeBytes:
		return base64.StdEncoding.DecodeString(s)
	}
	return nil, fmt.Errorf("decode: unknown value type %s", vt)
}

// fromScalar lifts a document scalar (YAML seed values, usually) into the
// typed value domain of the attribute it asserts.
func fromScalar(vt catalog.ValueType, v any) (any, error) {
	switch vt {
	case catalog.TypeKeyword:
		switch k := v.(type) {
		case edn.Keyword:
			return k, nil
		case string:
			return edn.ParseKeyword(k)
		}

	case catalog.TypeString, catalog.TypeURI:
		if s, ok := v.(string); ok {
			return s, nil
		}

	case catalog.TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}

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
		switch f := v.(type) {
		case float32:
			return f, nil
		case float64:
			return float32(f), nil
		case int:
			return float32(f), nil
		}

	case catalog.TypeDouble:
		switch f := v.(type) {
		case float64:
			return f, nil
		case float32:
			return float64(f), nil
		case int:
			return float64(f), nil
		}

	case catalog.TypeDecimal:
		switch d := v.(type) {
		case *apd.Decimal:
			return d, nil
		case string:
			dec, _, err := new(apd.Decimal).SetString(d)
			if err == nil {
				return dec, nil
			}
		case int:
			return apd.New(int64(d), 0), nil
		case int64:
			return apd.New(d, 0), nil
		case float64:
			dec := new(apd.Decimal)
			if _, err := dec.SetFloat64(d); err == nil {
				return dec, nil
			}
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
			return uuid.Parse(u)
		}

	case catalog.TypeBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return base64.StdEncoding.DecodeString(b)
		}
	}
	return nil, fmt.Errorf("cannot read a %T as a %s value", v, vt)
}
