package conformance

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one self-contained end-to-end conformance case: a schema
// snapshot, a seed document, optional relationship configuration, and a
// sequence of query requests with their expected outcomes. Everything is
// inlined so a scenario file reads top to bottom without chasing paths.
type Scenario struct {
	// Name uniquely identifies the scenario; it doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains which behavior the scenario pins down.
	Description string `yaml:"description"`

	// Schema is an inline attribute-snapshot document (YAML).
	Schema string `yaml:"schema"`

	// Seed is an inline seed document (YAML). Entity ids follow document
	// order, which is what makes reference cells deterministic.
	Seed string `yaml:"seed"`

	// Relationships is optional inline relationship configuration (CUE).
	Relationships string `yaml:"relationships,omitempty"`

	// NullOrdering selects the null placement policy: "last" (default)
	// or "first".
	NullOrdering string `yaml:"null_ordering,omitempty"`

	// Requests run in order against the seeded store.
	Requests []RequestStep `yaml:"requests"`
}

// RequestStep is one query request plus its expected outcome. A step with
// an empty Error must succeed; its columns and rows land in the golden
// snapshot. A step with Error set must fail with a message containing it.
type RequestStep struct {
	Name    string `yaml:"name"`
	Request string `yaml:"request"`
	Error   string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses one scenario file. Unknown fields are
// rejected so a typo cannot silently drop an expectation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in a directory, sorted by
// file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if s.Seed == "" {
		return fmt.Errorf("seed is required")
	}
	switch s.NullOrdering {
	case "", "last", "first":
	default:
		return fmt.Errorf("null_ordering must be \"last\" or \"first\", got %q", s.NullOrdering)
	}
	if len(s.Requests) == 0 {
		return fmt.Errorf("requests list is required and must be non-empty")
	}

	seen := map[string]bool{}
	for i, step := range s.Requests {
		if step.Name == "" {
			return fmt.Errorf("requests[%d]: name is required", i)
		}
		if step.Request == "" {
			return fmt.Errorf("requests[%d]: request is required", i)
		}
		if seen[step.Name] {
			return fmt.Errorf("requests[%d]: duplicate step name %q", i, step.Name)
		}
		seen[step.Name] = true
	}
	return nil
}
