// Package relcfg loads the custom relationship configuration: user-declared
// multi-hop paths through the entity graph that schema inference exposes as
// synthetic foreign-key fields.
//
// Configuration is CUE, loaded once at startup or re-sync and immutable for
// the life of the process. The document shape is
//
//	relationship: <source-table>: <field-name>: {
//		to:   <destination-table>
//		path: ["track/artist", "track/_artist", ...]
//	}
//
// A path element names a reference attribute to follow; a leading underscore
// on the name part ("track/_artist") walks the reference backwards, from
// value to owning entity.
package relcfg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/factgrid/factgrid/internal/edn"
)

// Hop is one step of a relationship path.
type Hop struct {
	Attr    edn.Keyword
	Reverse bool
}

// ParseHop parses a path element. The reverse form puts the underscore on
// the name part: "track/_artist".
func ParseHop(s string) (Hop, error) {
	ns, name, found := strings.Cut(strings.TrimPrefix(s, ":"), "/")
	if !found || ns == "" || name == "" {
		return Hop{}, fmt.Errorf("malformed path element %q: want ns/name or ns/_name", s)
	}
	reverse := strings.HasPrefix(name, "_")
	if reverse {
		name = name[1:]
		if name == "" {
			return Hop{}, fmt.Errorf("malformed path element %q: empty name after underscore", s)
		}
	}
	return Hop{Attr: edn.Keyword{Namespace: ns, Name: name}, Reverse: reverse}, nil
}

// String renders the hop back in path-element form.
func (h Hop) String() string {
	if h.Reverse {
		return h.Attr.Namespace + "/_" + h.Attr.Name
	}
	return h.Attr.Lexical()
}

// Relationship is one configured path: it appears on the source table as a
// field named Name, holding entity ids of the destination table.
type Relationship struct {
	Source string
	Name   string
	Dest   string
	Path   []Hop
}

// Key identifies the relationship within a config (source-scoped).
func (r Relationship) Key() string { return r.Source + "/" + r.Name }

// Config is the immutable set of configured relationships.
type Config struct {
	bySource map[string][]Relationship
	byKey    map[string]Relationship
	count    int
}

// Empty returns a configuration with no relationships.
func Empty() *Config {
	return &Config{bySource: map[string][]Relationship{}, byKey: map[string]Relationship{}}
}

// New validates and indexes a relationship list. Duplicate (source, name)
// pairs and empty paths are configuration errors.
func New(rels []Relationship) (*Config, error) {
	c := Empty()
	for _, r := range rels {
		if r.Source == "" || r.Name == "" || r.Dest == "" {
			return nil, &ConfigError{Field: r.Key(), Message: "relationship needs source, name and destination"}
		}
		if len(r.Path) == 0 {
			return nil, &ConfigError{Field: r.Key(), Message: "relationship path is empty"}
		}
		if _, dup := c.byKey[r.Key()]; dup {
			return nil, &ConfigError{Field: r.Key(), Message: "duplicate relationship"}
		}
		c.byKey[r.Key()] = r
		c.bySource[r.Source] = append(c.bySource[r.Source], r)
		c.count++
	}
	for _, list := range c.bySource {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	return c, nil
}

// ForSource returns the relationships originating at a table, ordered by
// field name. The returned slice is a copy.
func (c *Config) ForSource(table string) []Relationship {
	src := c.bySource[table]
	if len(src) == 0 {
		return nil
	}
	out := make([]Relationship, len(src))
	copy(out, src)
	return out
}

// Lookup finds a relationship by source table and field name.
func (c *Config) Lookup(source, name string) (Relationship, bool) {
	r, ok := c.byKey[source+"/"+name]
	return r, ok
}

// Len returns the number of configured relationships.
func (c *Config) Len() int { return c.count }
