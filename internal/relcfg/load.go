package relcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load reads every CUE file in a directory and compiles the unified
// relationship document. A missing or empty directory is not an error;
// it yields an empty configuration, since relationships are optional.
func Load(dir string) (*Config, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return Empty(), nil
	}
	if err != nil {
		return nil, &ConfigError{Field: "dir", Message: fmt.Sprintf("accessing %s: %v", dir, err)}
	}
	if !info.IsDir() {
		return nil, &ConfigError{Field: "dir", Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &ConfigError{Field: "dir", Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(cueFiles) == 0 {
		return Empty(), nil
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return Empty(), nil
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, &ConfigError{Field: "load", Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	return CompileValue(value)
}

// LoadSource compiles a relationship document from CUE source text.
// Used by the conformance harness and tests; Load is the file path.
func LoadSource(src string) (*Config, error) {
	ctx := cuecontext.New()
	return CompileValue(ctx.CompileString(src))
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
