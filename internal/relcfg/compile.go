package relcfg

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
)

// CompileValue parses the relationship document from a CUE value.
// The value is the document root, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`relationship: artist: tracks: {...}`)
//	cfg, err := CompileValue(v)
//
// The top-level "relationship" field is optional; a document without one
// compiles to an empty configuration.
func CompileValue(v cue.Value) (*Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	relVal := v.LookupPath(cue.ParsePath("relationship"))
	if !relVal.Exists() {
		return Empty(), nil
	}

	var rels []Relationship

	sourceIter, err := relVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for sourceIter.Next() {
		source := sourceIter.Label()

		nameIter, err := sourceIter.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for nameIter.Next() {
			rel, err := compileRelationship(source, nameIter.Label(), nameIter.Value())
			if err != nil {
				return nil, err
			}
			rels = append(rels, rel)
		}
	}

	return New(rels)
}

func compileRelationship(source, name string, v cue.Value) (Relationship, error) {
	rel := Relationship{Source: source, Name: name}

	toVal := v.LookupPath(cue.ParsePath("to"))
	if !toVal.Exists() {
		return rel, &ConfigError{
			Field:   rel.Key() + ".to",
			Message: "destination table is required",
			Pos:     v.Pos(),
		}
	}
	dest, err := toVal.String()
	if err != nil {
		return rel, formatCUEError(err)
	}
	rel.Dest = dest

	pathVal := v.LookupPath(cue.ParsePath("path"))
	if !pathVal.Exists() {
		return rel, &ConfigError{
			Field:   rel.Key() + ".path",
			Message: "path is required",
			Pos:     v.Pos(),
		}
	}
	hopIter, err := pathVal.List()
	if err != nil {
		return rel, formatCUEError(err)
	}
	for hopIter.Next() {
		elem, err := hopIter.Value().String()
		if err != nil {
			return rel, formatCUEError(err)
		}
		hop, err := ParseHop(elem)
		if err != nil {
			return rel, &ConfigError{
				Field:   rel.Key() + ".path",
				Message: err.Error(),
				Pos:     hopIter.Value().Pos(),
			}
		}
		rel.Path = append(rel.Path, hop)
	}
	if len(rel.Path) == 0 {
		return rel, &ConfigError{
			Field:   rel.Key() + ".path",
			Message: "path must have at least one element",
			Pos:     pathVal.Pos(),
		}
	}

	return rel, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &ConfigError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
