package catalog

import (
	"sort"

	"github.com/factgrid/factgrid/internal/edn"
)

// ValueType enumerates the store's value types. Every attribute declares
// exactly one.
type ValueType string

const (
	TypeKeyword ValueType = "keyword"
	TypeString  ValueType = "string"
	TypeBoolean ValueType = "boolean"
	TypeLong    ValueType = "long"
	TypeBigInt  ValueType = "bigint"
	TypeFloat   ValueType = "float"
	TypeDouble  ValueType = "double"
	TypeDecimal ValueType = "decimal"
	TypeRef     ValueType = "ref"
	TypeInstant ValueType = "instant"
	TypeUUID    ValueType = "uuid"
	TypeURI     ValueType = "uri"
	TypeBytes   ValueType = "bytes"
)

// ValueTypes lists every value type in declaration order.
var ValueTypes = []ValueType{
	TypeKeyword, TypeString, TypeBoolean, TypeLong, TypeBigInt, TypeFloat,
	TypeDouble, TypeDecimal, TypeRef, TypeInstant, TypeUUID, TypeURI, TypeBytes,
}

// Valid reports whether vt is one of the declared value types.
func (vt ValueType) Valid() bool {
	switch vt {
	case TypeKeyword, TypeString, TypeBoolean, TypeLong, TypeBigInt, TypeFloat,
		TypeDouble, TypeDecimal, TypeRef, TypeInstant, TypeUUID, TypeURI, TypeBytes:
		return true
	}
	return false
}

// Numeric reports whether values of this type order numerically.
func (vt ValueType) Numeric() bool {
	switch vt {
	case TypeLong, TypeBigInt, TypeFloat, TypeDouble, TypeDecimal, TypeRef:
		return true
	}
	return false
}

// Cardinality is the number of values an attribute may carry per entity.
type Cardinality string

const (
	One  Cardinality = "one"
	Many Cardinality = "many"
)

// Attribute describes a single store attribute: its namespaced identifier,
// value type, cardinality and uniqueness. Attributes are immutable; they are
// sourced once per schema snapshot.
type Attribute struct {
	Ident       edn.Keyword
	Type        ValueType
	Cardinality Cardinality
	Unique      bool
}

// reservedNamespaces never become tables; they belong to the store's own
// bookkeeping.
var reservedNamespaces = map[string]bool{
	"db":         true,
	"db.alter":   true,
	"db.excise":  true,
	"db.install": true,
	"db.sys":     true,
	"fressian":   true,
}

// ReservedNamespace reports whether ns is internal to the store.
func ReservedNamespace(ns string) bool {
	return reservedNamespaces[ns]
}

// Catalog indexes attributes by identifier and by namespace. Read-only after
// New returns; safe for unsynchronized concurrent reads.
type Catalog struct {
	byIdent     map[string]Attribute
	byNamespace map[string][]Attribute
	namespaces  []string
}

// New builds a Catalog from a schema snapshot. Duplicate identifiers,
// unnamespaced identifiers and unknown value types are load errors: a
// half-understood schema must not reach the compiler.
func New(attrs []Attribute) (*Catalog, error) {
	c := &Catalog{
		byIdent:     make(map[string]Attribute, len(attrs)),
		byNamespace: make(map[string][]Attribute),
	}
	for _, a := range attrs {
		if a.Ident.IsZero() {
			return nil, &LoadError{Message: "attribute with empty identifier"}
		}
		if a.Ident.Namespace == "" {
			return nil, &LoadError{Ident: a.Ident.Lexical(), Message: "attribute identifier has no namespace"}
		}
		if !a.Type.Valid() {
			return nil, &LoadError{Ident: a.Ident.Lexical(), Message: "unknown value type " + string(a.Type)}
		}
		if a.Cardinality == "" {
			a.Cardinality = One
		}
		if a.Cardinality != One && a.Cardinality != Many {
			return nil, &LoadError{Ident: a.Ident.Lexical(), Message: "unknown cardinality " + string(a.Cardinality)}
		}
		key := a.Ident.Lexical()
		if _, dup := c.byIdent[key]; dup {
			return nil, &LoadError{Ident: key, Message: "duplicate attribute identifier"}
		}
		c.byIdent[key] = a
		c.byNamespace[a.Ident.Namespace] = append(c.byNamespace[a.Ident.Namespace], a)
	}
	for ns, list := range c.byNamespace {
		sort.Slice(list, func(i, j int) bool { return list[i].Ident.Compare(list[j].Ident) < 0 })
		c.namespaces = append(c.namespaces, ns)
	}
	sort.Strings(c.namespaces)
	return c, nil
}

// Attribute looks up an attribute by identifier.
func (c *Catalog) Attribute(ident edn.Keyword) (Attribute, bool) {
	a, ok := c.byIdent[ident.Lexical()]
	return a, ok
}

// Namespace returns the attributes in a namespace, ordered by identifier.
// The returned slice is a copy.
func (c *Catalog) Namespace(ns string) []Attribute {
	src := c.byNamespace[ns]
	if len(src) == 0 {
		return nil
	}
	out := make([]Attribute, len(src))
	copy(out, src)
	return out
}

// Namespaces returns every namespace present in the snapshot, sorted,
// including reserved ones. The returned slice is a copy.
func (c *Catalog) Namespaces() []string {
	out := make([]string, len(c.namespaces))
	copy(out, c.namespaces)
	return out
}

// Len returns the number of attributes in the snapshot.
func (c *Catalog) Len() int {
	return len(c.byIdent)
}
