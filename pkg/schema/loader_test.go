package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrokit/runtool/pkg/schema/provider"
)

const sampleSchemas = `
version: "1"
tools:
  dmcopy:
    help: copy and filter a data file
    required:
      - name: infile
        type: filename
        help: input file
      - name: outfile
        type: filename
        help: output file
    optional:
      - name: clobber
        type: boolean
        default: "no"
      - name: verbose
        type: i
        default: "0"
        min: "0"
        max: "5"
  dmstat:
    no_par_file: true
    required:
      - name: infile
        type: filename
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(sampleSchemas))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Count())

	dmcopy, err := reg.Lookup("dmcopy")
	require.NoError(t, err)
	assert.Equal(t, "dmcopy", dmcopy.Name)
	assert.Len(t, dmcopy.Required, 2)
	assert.Len(t, dmcopy.Optional, 2)
	assert.False(t, dmcopy.NoParFile)

	// the shorthand "i" tag normalizes on load
	verbose, ok := dmcopy.FindDecl("verbose")
	require.True(t, ok)
	assert.Equal(t, TypeInteger, verbose.Type)
	assert.Equal(t, "5", verbose.Max)

	dmstat, err := reg.Lookup("dmstat")
	require.NoError(t, err)
	assert.True(t, dmstat.NoParFile)
}

func TestParse_NameKeyMismatch(t *testing.T) {
	data := []byte(`
tools:
  dmcopy:
    name: dmstat
    required:
      - name: infile
        type: filename
`)
	_, err := Parse(data)
	assert.Error(t, err)
}

func TestParse_JSONFallback(t *testing.T) {
	data := []byte(`{"tools": {"dmstat": {"required": [{"name": "infile", "type": "filename"}]}}}`)
	reg, err := Parse(data)
	require.NoError(t, err)

	ts, err := reg.Lookup("dmstat")
	require.NoError(t, err)
	assert.Equal(t, "infile", ts.Required[0].Name)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("DEFAULT_KERNEL", "fits")

	data := []byte(`
tools:
  dmcopy:
    optional:
      - name: kernel
        type: string
        default: "${DEFAULT_KERNEL}"
      - name: fallback
        type: string
        default: "${MISSING_VAR:-ascii}"
`)
	reg, err := Parse(data)
	require.NoError(t, err)

	ts, err := reg.Lookup("dmcopy")
	require.NoError(t, err)

	kernel, ok := ts.FindDecl("kernel")
	require.True(t, ok)
	assert.Equal(t, "fits", kernel.Default)

	fallback, ok := ts.FindDecl("fallback")
	require.True(t, ok)
	assert.Equal(t, "ascii", fallback.Default)
}

func TestParse_InvalidSchema(t *testing.T) {
	data := []byte(`
tools:
  broken:
    required:
      - name: x
        type: complex
`)
	_, err := Parse(data)
	assert.Error(t, err)
}

func TestLoader_FileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSchemas), 0o644))

	p, err := provider.New(provider.Config{Type: provider.TypeFile, Path: path})
	require.NoError(t, err)

	loader := NewLoader(p)
	defer loader.Close()

	reg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Count())
}
