package catalog

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/factgrid/factgrid/internal/edn"
)

// snapshotDoc is the YAML schema-snapshot document. Field names are strict:
// unknown keys are rejected so a typo cannot silently drop an attribute.
type snapshotDoc struct {
	Attributes []attributeDoc `yaml:"attributes"`
}

type attributeDoc struct {
	Ident       string `yaml:"ident"`
	Type        string `yaml:"type"`
	Cardinality string `yaml:"cardinality,omitempty"`
	Unique      bool   `yaml:"unique,omitempty"`
}

// DecodeSnapshot reads a YAML schema snapshot into attribute descriptors.
// The descriptors still pass through New, which performs the semantic
// validation; DecodeSnapshot only guarantees the document was well-formed.
func DecodeSnapshot(r io.Reader) ([]Attribute, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc snapshotDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Message: "unreadable snapshot document", Err: err}
	}
	if len(doc.Attributes) == 0 {
		return nil, &LoadError{Message: "snapshot document declares no attributes"}
	}

	attrs := make([]Attribute, 0, len(doc.Attributes))
	for _, ad := range doc.Attributes {
		ident, err := edn.ParseKeyword(ad.Ident)
		if err != nil {
			return nil, &LoadError{Ident: ad.Ident, Message: "malformed attribute identifier", Err: err}
		}
		card := Cardinality(ad.Cardinality)
		if ad.Cardinality == "" {
			card = One
		}
		attrs = append(attrs, Attribute{
			Ident:       ident,
			Type:        ValueType(ad.Type),
			Cardinality: card,
			Unique:      ad.Unique,
		})
	}
	return attrs, nil
}

// Parse builds a Catalog straight from a YAML snapshot document.
func Parse(r io.Reader) (*Catalog, error) {
	attrs, err := DecodeSnapshot(r)
	if err != nil {
		return nil, err
	}
	return New(attrs)
}
