package param

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrokit/runtool/pkg/schema"
)

func testSchema() *schema.ToolSchema {
	return &schema.ToolSchema{
		Name: "dmcopy",
		Required: []schema.Decl{
			{Name: "infile", Type: schema.TypeFilename},
			{Name: "outfile", Type: schema.TypeFilename},
		},
		Optional: []schema.Decl{
			{Name: "clobber", Type: schema.TypeBoolean, Default: "no"},
			{Name: "verbose", Type: schema.TypeInteger, Default: "0", Min: "0", Max: "5"},
			{Name: "kernel", Type: schema.TypeString, Default: "default",
				Options: []string{"default", "fits", "ascii"}},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(testSchema())
	require.NoError(t, err)
	return s
}

func TestNewStore_SeedsDefaults(t *testing.T) {
	s := newTestStore(t)

	v, err := s.Get("clobber")
	require.NoError(t, err)
	assert.Equal(t, Bool(false), v)

	v, err = s.Get("verbose")
	require.NoError(t, err)
	assert.Equal(t, Int(0), v)

	v, err = s.Get("infile")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestNewStore_BadDefault(t *testing.T) {
	ts := &schema.ToolSchema{
		Name: "broken",
		Optional: []schema.Decl{
			{Name: "verbose", Type: schema.TypeInteger, Default: "lots"},
		},
	}
	_, err := NewStore(ts)
	assert.Error(t, err)
}

func TestResolveName(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "exact", input: "verbose", want: "verbose"},
		{name: "unique prefix", input: "ver", want: "verbose"},
		{name: "single letter unique", input: "c", want: "clobber"},
		{name: "another unique prefix", input: "in", want: "infile"},
		{name: "unknown", input: "nosuch", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ResolveName(tt.input)
			if tt.wantErr {
				var unkErr *UnknownNameError
				require.ErrorAs(t, err, &unkErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveName_Ambiguous(t *testing.T) {
	ts := &schema.ToolSchema{
		Name: "t",
		Optional: []schema.Decl{
			{Name: "output", Type: schema.TypeString},
			{Name: "outfile", Type: schema.TypeString},
		},
	}
	s, err := NewStore(ts)
	require.NoError(t, err)

	_, err = s.ResolveName("out")
	var ambErr *AmbiguousNameError
	require.ErrorAs(t, err, &ambErr)
	assert.Len(t, ambErr.Candidates, 2)
}

func TestResolveName_ExactWinsOverPrefix(t *testing.T) {
	ts := &schema.ToolSchema{
		Name: "t",
		Optional: []schema.Decl{
			{Name: "out", Type: schema.TypeString},
			{Name: "outfile", Type: schema.TypeString},
		},
	}
	s, err := NewStore(ts)
	require.NoError(t, err)

	got, err := s.ResolveName("out")
	require.NoError(t, err)
	assert.Equal(t, "out", got)
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("infile", "evt2.fits"))
	require.NoError(t, s.Set("verb", "3")) // prefix resolution on set
	require.NoError(t, s.Set("clobber", "yes"))

	v, err := s.Get("infile")
	require.NoError(t, err)
	str, ok := v.AsString()
	require.True(t, ok)
	assert.Equal(t, "evt2.fits", str)

	v, err = s.Get("verbose")
	require.NoError(t, err)
	assert.Equal(t, Int(3), v)

	v, err = s.Get("clobber")
	require.NoError(t, err)
	assert.Equal(t, Bool(true), v)
}

func TestSet_ValidationFailureLeavesValue(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("verbose", 3))

	err := s.Set("verbose", 99)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	v, err := s.Get("verbose")
	require.NoError(t, err)
	assert.Equal(t, Int(3), v)
}

func TestRedirect_Resolve(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("infile", "evt2.fits"))
	require.NoError(t, s.Set("outfile", ")infile"))

	// Get returns the redirect untouched
	v, err := s.Get("outfile")
	require.NoError(t, err)
	assert.True(t, v.IsRedirect())
	assert.Equal(t, "infile", v.RedirectTarget())

	// Resolve follows it
	v, err = s.Resolve("outfile")
	require.NoError(t, err)
	str, ok := v.AsString()
	require.True(t, ok)
	assert.Equal(t, "evt2.fits", str)
}

func TestRedirect_UnknownTarget(t *testing.T) {
	s := newTestStore(t)
	err := s.Set("outfile", ")nosuch")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestRedirect_CycleDetected(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("infile", ")outfile"))
	require.NoError(t, s.Set("outfile", ")infile"))

	_, err := s.Resolve("infile")
	assert.True(t, errors.Is(err, ErrRedirectCycle))

	_, err = s.Resolve("outfile")
	assert.True(t, errors.Is(err, ErrRedirectCycle))
}

func TestReset_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("verbose", 5))
	require.NoError(t, s.Set("infile", "evt2.fits"))

	s.Reset()
	first := s.Iterate()

	s.Reset()
	second := s.Iterate()

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].Value.Equal(second[i].Value),
			"parameter %s differs after second reset", first[i].Name)
	}

	v, err := s.Get("verbose")
	require.NoError(t, err)
	assert.Equal(t, Int(0), v)
}

func TestIterate_DeclarationOrder(t *testing.T) {
	s := newTestStore(t)

	var names []string
	for _, e := range s.Iterate() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"infile", "outfile", "clobber", "verbose", "kernel"}, names)

	// snapshot is independent of later mutation
	snapshot := s.Iterate()
	require.NoError(t, s.Set("verbose", 4))
	assert.Equal(t, Int(0), snapshot[3].Value)
}

func TestDefault(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("kernel", "fits"))

	def, err := s.Default("kernel")
	require.NoError(t, err)
	str, ok := def.AsString()
	require.True(t, ok)
	assert.Equal(t, "default", str)
}
