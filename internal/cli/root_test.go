package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and captures its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeFile drops content into a temp file and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testSchema = `
attributes:
  - ident: db/ident
    type: keyword
    unique: true
  - ident: artist/name
    type: string
  - ident: artist/startYear
    type: long
  - ident: track/artist
    type: ref
  - ident: track/name
    type: string
`

const testSeed = `
entities:
  - id: dylan
    attrs:
      artist/name: "Bob Dylan"
      artist/startYear: 1961
  - attrs:
      track/name: "Hurricane"
      track/artist: "@dylan"
`

// loadedDB prepares a store file with the test schema and seed loaded.
func loadedDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "facts.db")
	schemaFile := writeFile(t, dir, "schema.yaml", testSchema)
	seedFile := writeFile(t, dir, "seed.yaml", testSeed)

	out, _, err := execute(t, "load", "--db", db, "--schema", schemaFile, "--seed", seedFile)
	require.NoError(t, err)
	require.Contains(t, out, "5 attribute(s)")
	return db
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "tables", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestLoadRequiresInput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "facts.db")
	_, errOut, err := execute(t, "load", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "nothing to load")
}

func TestTablesCommand(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "tables", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "artist")
	assert.Contains(t, out, "track")
	// Reserved namespaces are not tables.
	assert.NotContains(t, out, "db.sys")
}

func TestColumnsCommand(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "columns", "artist", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "startYear")
	assert.Contains(t, out, "artist/name")
}

func TestColumnsCommandUnknownTable(t *testing.T) {
	db := loadedDB(t)

	_, errOut, err := execute(t, "columns", "venue", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "venue")
}

func TestCompileCommand(t *testing.T) {
	db := loadedDB(t)
	request := writeFile(t, t.TempDir(), "request.yaml", `
table: track
fields:
  - column: name
`)

	out, _, err := execute(t, "compile", request, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, ":find")
	assert.Contains(t, out, "?track")
	assert.Contains(t, out, ":track/name")
}

func TestQueryCommand(t *testing.T) {
	db := loadedDB(t)
	request := writeFile(t, t.TempDir(), "request.yaml", `
table: track
fields:
  - column: name
  - fk:
      via: track/artist
      column: artist/name
`)

	out, _, err := execute(t, "query", request, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Hurricane")
	assert.Contains(t, out, "Bob Dylan")
	assert.Contains(t, out, "1 row(s)")
}

func TestQueryCommandJSON(t *testing.T) {
	db := loadedDB(t)
	request := writeFile(t, t.TempDir(), "request.yaml", `
table: artist
fields:
  - column: name
order:
  - column: name
`)

	out, _, err := execute(t, "query", request, "--db", db, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, `"Bob Dylan"`)
}

func TestQueryCommandUnsupported(t *testing.T) {
	db := loadedDB(t)
	request := writeFile(t, t.TempDir(), "request.yaml", `
table: track
aggregations:
  - op: count
`)

	_, errOut, err := execute(t, "query", request, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitQueryError, GetExitCode(err))
	assert.Contains(t, errOut, "unsupported")
}
