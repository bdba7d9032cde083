package scope

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePar(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+parExt)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o444))
	return path
}

func TestEnter_FreshDirAndEnv(t *testing.T) {
	shared := t.TempDir()
	t.Setenv(EnvVar, ";"+shared)

	s, err := Enter()
	require.NoError(t, err)
	defer s.Exit()

	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	value := os.Getenv(EnvVar)
	private, sharedDirs := splitSearchPath(value)
	require.NotEmpty(t, private)
	assert.Equal(t, s.Dir(), private[0])
	assert.Equal(t, []string{shared}, sharedDirs)
}

func TestEnter_SeedsFromSharedPath(t *testing.T) {
	shared := t.TempDir()
	writePar(t, shared, "dmcopy", "infile = \nmode = h\n")
	t.Setenv(EnvVar, ";"+shared)

	s, err := Enter("dmcopy")
	require.NoError(t, err)
	defer s.Exit()

	copied := filepath.Join(s.Dir(), "dmcopy"+parExt)
	info, err := os.Stat(copied)
	require.NoError(t, err)

	// the copy is writable even though the shared file was read-only
	assert.NotZero(t, info.Mode().Perm()&0o200)

	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Contains(t, string(data), "infile")
}

func TestEnter_MissingSeed(t *testing.T) {
	t.Setenv(EnvVar, ";"+t.TempDir())

	_, err := Enter("nosuch")
	var sErr *ScopeError
	require.ErrorAs(t, err, &sErr)
}

func TestEnter_CarriesPrivateOnlyFiles(t *testing.T) {
	private := t.TempDir()
	shared := t.TempDir()
	writePar(t, private, "localtool", "x = 1\n")
	writePar(t, shared, "sharedtool", "y = 2\n")
	t.Setenv(EnvVar, private+";"+shared)

	s, err := Enter()
	require.NoError(t, err)
	defer s.Exit()

	_, err = os.Stat(filepath.Join(s.Dir(), "localtool"+parExt))
	assert.NoError(t, err, "private-only file should be carried into the scope")

	_, err = os.Stat(filepath.Join(s.Dir(), "sharedtool"+parExt))
	assert.True(t, os.IsNotExist(err), "shared files are reachable via the shared path, not copied")
}

func TestExit_RestoresAndRemoves(t *testing.T) {
	t.Setenv(EnvVar, "/orig/private;/orig/shared")

	s, err := Enter()
	require.NoError(t, err)
	dir := s.Dir()

	require.NoError(t, s.Exit())
	assert.Equal(t, "/orig/private;/orig/shared", os.Getenv(EnvVar))

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// double Exit is a no-op
	assert.NoError(t, s.Exit())
}

func TestExit_UnsetsWhenPreviouslyUnset(t *testing.T) {
	// t.Setenv registers cleanup even though we unset immediately
	t.Setenv(EnvVar, "placeholder")
	require.NoError(t, os.Unsetenv(EnvVar))

	s, err := Enter()
	require.NoError(t, err)
	require.NoError(t, s.Exit())

	_, present := os.LookupEnv(EnvVar)
	assert.False(t, present)
}

func TestNesting_LIFO(t *testing.T) {
	t.Setenv(EnvVar, ";"+t.TempDir())
	orig := os.Getenv(EnvVar)

	outer, err := Enter()
	require.NoError(t, err)
	afterOuter := os.Getenv(EnvVar)

	inner, err := Enter()
	require.NoError(t, err)

	assert.NotEqual(t, outer.Dir(), inner.Dir())

	// inner sees outer's dir on its private path
	private, _ := splitSearchPath(os.Getenv(EnvVar))
	assert.Contains(t, private, outer.Dir())

	require.NoError(t, inner.Exit())
	assert.Equal(t, afterOuter, os.Getenv(EnvVar))

	require.NoError(t, outer.Exit())
	assert.Equal(t, orig, os.Getenv(EnvVar))
}

func TestWith_ReleasesOnError(t *testing.T) {
	t.Setenv(EnvVar, ";"+t.TempDir())
	orig := os.Getenv(EnvVar)

	var dir string
	err := With(nil, func(s *Scope) error {
		dir = s.Dir()
		return os.ErrClosed
	})
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Equal(t, orig, os.Getenv(EnvVar))

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSearchPathRoundTrip(t *testing.T) {
	tests := []struct {
		value   string
		private []string
		shared  []string
	}{
		{value: "", private: nil, shared: nil},
		{value: "/a", private: []string{"/a"}, shared: nil},
		{value: "/a:/b;/c", private: []string{"/a", "/b"}, shared: []string{"/c"}},
		{value: ";/c:/d", private: nil, shared: []string{"/c", "/d"}},
	}

	for _, tt := range tests {
		private, shared := splitSearchPath(tt.value)
		assert.Equal(t, tt.private, private, "value %q", tt.value)
		assert.Equal(t, tt.shared, shared, "value %q", tt.value)
	}

	assert.Equal(t, "/a:/b;/c", joinSearchPath([]string{"/a", "/b"}, []string{"/c"}))
	assert.Equal(t, "/a", joinSearchPath([]string{"/a"}, nil))
}

func TestEnter_ParallelScopesDistinct(t *testing.T) {
	// Scopes share the process env, so "concurrent" here means two live
	// scopes at once; the uuid component guarantees distinct dirs.
	t.Setenv(EnvVar, ";"+t.TempDir())

	a, err := Enter()
	require.NoError(t, err)
	b, err := Enter()
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir(), b.Dir())
	assert.True(t, strings.HasPrefix(filepath.Base(a.Dir()), "runtool-scope-"))

	require.NoError(t, b.Exit())
	require.NoError(t, a.Exit())
}