package relcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factgrid/factgrid/internal/edn"
)

func TestParseHop(t *testing.T) {
	tests := []struct {
		input   string
		want    Hop
		wantErr bool
	}{
		{
			input: "track/artist",
			want:  Hop{Attr: edn.Keyword{Namespace: "track", Name: "artist"}},
		},
		{
			input: "track/_artist",
			want:  Hop{Attr: edn.Keyword{Namespace: "track", Name: "artist"}, Reverse: true},
		},
		{
			input: ":release/media",
			want:  Hop{Attr: edn.Keyword{Namespace: "release", Name: "media"}},
		},
		{input: "artist", wantErr: true},
		{input: "/name", wantErr: true},
		{input: "track/", wantErr: true},
		{input: "track/_", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			hop, err := ParseHop(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, hop)
		})
	}
}

func TestHopString(t *testing.T) {
	forward := Hop{Attr: edn.Keyword{Namespace: "track", Name: "artist"}}
	assert.Equal(t, "track/artist", forward.String())

	reverse := Hop{Attr: edn.Keyword{Namespace: "track", Name: "artist"}, Reverse: true}
	assert.Equal(t, "track/_artist", reverse.String())
}

func TestCompileValueBasic(t *testing.T) {
	cfg, err := LoadSource(`
		relationship: artist: tracks: {
			to: "track"
			path: ["track/_artist"]
		}
		relationship: release: tracks: {
			to: "track"
			path: ["release/media", "medium/tracks"]
		}
	`)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Len())

	rel, ok := cfg.Lookup("artist", "tracks")
	require.True(t, ok)
	assert.Equal(t, "track", rel.Dest)
	require.Len(t, rel.Path, 1)
	assert.True(t, rel.Path[0].Reverse)
	assert.Equal(t, edn.MustKeyword("track/artist"), rel.Path[0].Attr)

	rel, ok = cfg.Lookup("release", "tracks")
	require.True(t, ok)
	require.Len(t, rel.Path, 2)
	assert.False(t, rel.Path[0].Reverse)
	assert.Equal(t, edn.MustKeyword("release/media"), rel.Path[0].Attr)
	assert.Equal(t, edn.MustKeyword("medium/tracks"), rel.Path[1].Attr)
}

func TestCompileValueNoRelationships(t *testing.T) {
	cfg, err := LoadSource(`other: 42`)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Len())
	assert.Nil(t, cfg.ForSource("artist"))
}

func TestCompileValueMissingTo(t *testing.T) {
	_, err := LoadSource(`
		relationship: artist: tracks: {
			path: ["track/_artist"]
		}
	`)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "artist/tracks.to", ce.Field)
	assert.True(t, IsConfigError(err))
}

func TestCompileValueMissingPath(t *testing.T) {
	_, err := LoadSource(`
		relationship: artist: tracks: {
			to: "track"
		}
	`)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "artist/tracks.path", ce.Field)
}

func TestCompileValueEmptyPath(t *testing.T) {
	_, err := LoadSource(`
		relationship: artist: tracks: {
			to: "track"
			path: []
		}
	`)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestCompileValueMalformedHop(t *testing.T) {
	_, err := LoadSource(`
		relationship: artist: tracks: {
			to: "track"
			path: ["noslash"]
		}
	`)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "noslash")
}

func TestCompileValueBadCUE(t *testing.T) {
	_, err := LoadSource(`relationship: artist: tracks: { to: 42, path: ["a/b"] }`)
	require.Error(t, err)
}

func TestForSourceOrdering(t *testing.T) {
	cfg, err := LoadSource(`
		relationship: artist: {
			zz_last: { to: "track", path: ["track/_artist"] }
			aa_first: { to: "release", path: ["release/_artists"] }
		}
	`)
	require.NoError(t, err)

	rels := cfg.ForSource("artist")
	require.Len(t, rels, 2)
	assert.Equal(t, "aa_first", rels[0].Name)
	assert.Equal(t, "zz_last", rels[1].Name)
}

func TestNewRejectsDuplicates(t *testing.T) {
	hop := Hop{Attr: edn.MustKeyword("track/artist"), Reverse: true}
	_, err := New([]Relationship{
		{Source: "artist", Name: "tracks", Dest: "track", Path: []Hop{hop}},
		{Source: "artist", Name: "tracks", Dest: "track", Path: []Hop{hop}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	src := `relationship: artist: tracks: {
	to: "track"
	path: ["track/_artist"]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relationships.cue"), []byte(src), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Len())

	rel, ok := cfg.Lookup("artist", "tracks")
	require.True(t, ok)
	assert.Equal(t, "track", rel.Dest)
}

func TestLoadMissingDirectory(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Len())
}

func TestLoadEmptyDirectory(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Len())
}
