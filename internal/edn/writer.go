package edn

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// List renders as an EDN list (...) rather than a vector [...]. Query
// documents use lists for operator forms such as (or ...) and (get-else ...).
type List []any

// Vector is a plain EDN vector. A bare []any renders identically; the named
// type exists so callers can be explicit when nesting.
type Vector []any

// Map renders as an EDN map with keys sorted by their rendered form, which
// keeps output byte-identical for identical inputs regardless of insertion
// order.
type Map map[any]any

// Marshal renders v as EDN text.
//
// Supported kinds: nil, bool, string, int/int64, float32/float64, *big.Int
// (N suffix), *apd.Decimal (M suffix), time.Time (#inst, millisecond UTC),
// uuid.UUID (#uuid), []byte (#bytes, base64), Keyword, Symbol, List, Vector,
// []any, Map. Anything else is an error: the document serializer must never
// guess.
func Marshal(v any) ([]byte, error) {
	return appendValue(nil, v)
}

// MarshalString is Marshal returning a string.
func MarshalString(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func appendValue(dst []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(dst, "nil"...), nil
	case bool:
		if val {
			return append(dst, "true"...), nil
		}
		return append(dst, "false"...), nil
	case string:
		return appendString(dst, val), nil
	case int:
		return strconv.AppendInt(dst, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(dst, val, 10), nil
	case float32:
		return appendFloat(dst, float64(val)), nil
	case float64:
		return appendFloat(dst, val), nil
	case *big.Int:
		dst = append(dst, val.String()...)
		return append(dst, 'N'), nil
	case *apd.Decimal:
		dst = append(dst, val.Text('f')...)
		return append(dst, 'M'), nil
	case time.Time:
		dst = append(dst, `#inst "`...)
		dst = val.UTC().AppendFormat(dst, "2006-01-02T15:04:05.000Z")
		return append(dst, '"'), nil
	case uuid.UUID:
		dst = append(dst, `#uuid "`...)
		dst = append(dst, val.String()...)
		return append(dst, '"'), nil
	case []byte:
		dst = append(dst, `#bytes "`...)
		dst = append(dst, base64.StdEncoding.EncodeToString(val)...)
		return append(dst, '"'), nil
	case Keyword:
		return append(dst, val.String()...), nil
	case Symbol:
		return append(dst, string(val)...), nil
	case List:
		return appendSeq(dst, []any(val), '(', ')')
	case Vector:
		return appendSeq(dst, []any(val), '[', ']')
	case []any:
		return appendSeq(dst, val, '[', ']')
	case Map:
		return appendMap(dst, val)
	default:
		return nil, fmt.Errorf("edn: unsupported value type %T", v)
	}
}

func appendSeq(dst []byte, vals []any, open, close byte) ([]byte, error) {
	dst = append(dst, open)
	for i, elem := range vals {
		if i > 0 {
			dst = append(dst, ' ')
		}
		var err error
		dst, err = appendValue(dst, elem)
		if err != nil {
			return nil, err
		}
	}
	return append(dst, close), nil
}

func appendMap(dst []byte, m Map) ([]byte, error) {
	type entry struct {
		key      string
		rendered []byte
	}
	entries := make([]entry, 0, len(m))
	for k, v := range m {
		kb, err := appendValue(nil, k)
		if err != nil {
			return nil, err
		}
		vb, err := appendValue(nil, v)
		if err != nil {
			return nil, err
		}
		rendered := make([]byte, 0, len(kb)+len(vb)+1)
		rendered = append(rendered, kb...)
		rendered = append(rendered, ' ')
		rendered = append(rendered, vb...)
		entries = append(entries, entry{key: string(kb), rendered: rendered})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	dst = append(dst, '{')
	for i, e := range entries {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = append(dst, e.rendered...)
	}
	return append(dst, '}'), nil
}

// appendString writes an NFC-normalized, quoted EDN string. strconv.Quote
// escapes exactly the characters EDN strings require escaped.
func appendString(dst []byte, s string) []byte {
	return append(dst, strconv.Quote(norm.NFC.String(s))...)
}

// appendFloat renders floating point values with a guaranteed decimal point
// or exponent so the output reads back as a float, never an integer.
func appendFloat(dst []byte, f float64) []byte {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return append(dst, s...)
}
