package edn

import (
	"fmt"
	"strings"
)

// Keyword is a namespaced EDN keyword such as :artist/name. The colon is not
// stored; String renders it. A Keyword with an empty Namespace renders as a
// bare keyword (:name).
//
// Keywords identify attributes throughout the system: the catalog keys
// attributes by keyword, data patterns in the native query document name the
// attribute position with one, and symbolic entity identifiers resolve to
// keywords.
type Keyword struct {
	Namespace string
	Name      string
}

// ParseKeyword parses "ns/name" or "name" into a Keyword. A leading colon is
// accepted and stripped. Only the first slash splits; the name part may not
// be empty.
func ParseKeyword(s string) (Keyword, error) {
	s = strings.TrimPrefix(s, ":")
	if s == "" {
		return Keyword{}, fmt.Errorf("empty keyword")
	}
	ns, name, found := strings.Cut(s, "/")
	if !found {
		return Keyword{Name: ns}, nil
	}
	if ns == "" || name == "" {
		return Keyword{}, fmt.Errorf("malformed keyword %q", s)
	}
	return Keyword{Namespace: ns, Name: name}, nil
}

// MustKeyword is ParseKeyword for statically known literals; it panics on
// malformed input.
func MustKeyword(s string) Keyword {
	k, err := ParseKeyword(s)
	if err != nil {
		panic(err)
	}
	return k
}

// String renders the keyword with its leading colon.
func (k Keyword) String() string {
	if k.Namespace == "" {
		return ":" + k.Name
	}
	return ":" + k.Namespace + "/" + k.Name
}

// Lexical renders the keyword without the leading colon, the form used for
// field display names and seed documents.
func (k Keyword) Lexical() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "/" + k.Name
}

// IsZero reports whether the keyword is the zero value.
func (k Keyword) IsZero() bool {
	return k.Namespace == "" && k.Name == ""
}

// Compare orders keywords by namespace, then name.
func (k Keyword) Compare(other Keyword) int {
	if c := strings.Compare(k.Namespace, other.Namespace); c != 0 {
		return c
	}
	return strings.Compare(k.Name, other.Name)
}

// MarshalText renders the lexical form, used by JSON/YAML output paths.
func (k Keyword) MarshalText() ([]byte, error) {
	return []byte(k.Lexical()), nil
}

// Symbol is an EDN symbol: logic variables, sentinel markers and query
// operators are symbols. Unlike keywords, symbols render without a colon.
type Symbol string

// String returns the symbol text unchanged.
func (s Symbol) String() string { return string(s) }
