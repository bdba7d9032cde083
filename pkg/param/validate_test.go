package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrokit/runtool/pkg/schema"
)

func TestCoerce_Boolean(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		in      interface{}
		want    Value
		wantErr bool
	}{
		{in: true, want: Bool(true)},
		{in: "yes", want: Bool(true)},
		{in: "TRUE", want: Bool(true)},
		{in: "on", want: Bool(true)},
		{in: "1", want: Bool(true)},
		{in: "no", want: Bool(false)},
		{in: "False", want: Bool(false)},
		{in: "off", want: Bool(false)},
		{in: "0", want: Bool(false)},
		{in: "", want: Null()},
		{in: "INDEF", want: Null()},
		{in: "indef", want: Null()},
		{in: nil, want: Null()},
		{in: "maybe", wantErr: true},
		{in: 3.14, wantErr: true},
	}

	d, ok := s.Schema().FindDecl("clobber")
	require.True(t, ok)

	for _, tt := range tests {
		got, err := s.Validate(d, tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.in)
			continue
		}
		require.NoError(t, err, "input %v", tt.in)
		assert.True(t, got.Equal(tt.want), "input %v: got %#v, want %#v", tt.in, got, tt.want)
	}
}

func TestCoerce_Integer(t *testing.T) {
	s := newTestStore(t)
	d, ok := s.Schema().FindDecl("verbose")
	require.True(t, ok)

	tests := []struct {
		in      interface{}
		want    Value
		wantErr bool
	}{
		{in: 3, want: Int(3)},
		{in: int64(4), want: Int(4)},
		{in: "2", want: Int(2)},
		{in: 5.0, want: Int(5)},
		{in: "INDEF", want: Null()},
		{in: "indef", want: Null()},
		{in: "", want: Int(0)}, // empty integer field reads as 0
		{in: nil, want: Null()},
		{in: 2.5, wantErr: true},
		{in: "2.5", wantErr: true},
		{in: "many", wantErr: true},
		{in: true, wantErr: true},
	}

	for _, tt := range tests {
		got, err := s.Validate(d, tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.in)
			continue
		}
		require.NoError(t, err, "input %v", tt.in)
		assert.True(t, got.Equal(tt.want), "input %v: got %#v, want %#v", tt.in, got, tt.want)
	}
}

func TestCoerce_Real(t *testing.T) {
	ts := &schema.ToolSchema{
		Name: "t",
		Optional: []schema.Decl{
			{Name: "scale", Type: schema.TypeReal},
		},
	}
	s, err := NewStore(ts)
	require.NoError(t, err)
	d, _ := s.Schema().FindDecl("scale")

	tests := []struct {
		in      interface{}
		want    Value
		wantErr bool
	}{
		{in: 2.5, want: Real(2.5)},
		{in: 3, want: Real(3)},
		{in: "1.5e3", want: Real(1500)},
		{in: "INDEF", want: Null()},
		{in: "", want: Real(0)}, // empty real field reads as 0.0
		{in: "wide", wantErr: true},
	}

	for _, tt := range tests {
		got, err := s.Validate(d, tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.in)
			continue
		}
		require.NoError(t, err, "input %v", tt.in)
		assert.True(t, got.Equal(tt.want), "input %v: got %#v, want %#v", tt.in, got, tt.want)
	}
}

func TestCoerce_StringStack(t *testing.T) {
	s := newTestStore(t)
	d, _ := s.Schema().FindDecl("infile")

	got, err := s.Validate(d, []string{"a.fits", "b.fits", "c.fits"})
	require.NoError(t, err)
	str, ok := got.AsString()
	require.True(t, ok)
	assert.Equal(t, "a.fits,b.fits,c.fits", str)

	got, err = s.Validate(d, []interface{}{"a.fits", 2})
	require.NoError(t, err)
	str, _ = got.AsString()
	assert.Equal(t, "a.fits,2", str)
}

func TestRange_Bounds(t *testing.T) {
	s := newTestStore(t)

	// inclusive at both bounds
	require.NoError(t, s.Set("verbose", 0))
	require.NoError(t, s.Set("verbose", 5))

	var vErr *ValidationError
	require.ErrorAs(t, s.Set("verbose", -1), &vErr)
	require.ErrorAs(t, s.Set("verbose", 6), &vErr)

	// null bypasses the range check
	require.NoError(t, s.Set("verbose", "INDEF"))
}

func TestRange_OpenBound(t *testing.T) {
	ts := &schema.ToolSchema{
		Name: "t",
		Optional: []schema.Decl{
			{Name: "scale", Type: schema.TypeReal, Min: "0", Max: "INDEF"},
		},
	}
	s, err := NewStore(ts)
	require.NoError(t, err)

	require.NoError(t, s.Set("scale", 1e12))
	assert.Error(t, s.Set("scale", -0.1))
}

func TestRange_RedirectBound(t *testing.T) {
	ts := &schema.ToolSchema{
		Name: "t",
		Optional: []schema.Decl{
			{Name: "y", Type: schema.TypeReal, Default: "10"},
			{Name: "x", Type: schema.TypeReal, Min: ")y"},
		},
	}
	s, err := NewStore(ts)
	require.NoError(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, s.Set("x", 9), &vErr)
	require.NoError(t, s.Set("x", 11))

	// moving the bound parameter moves the bound
	require.NoError(t, s.Set("y", 20))
	require.ErrorAs(t, s.Set("x", 11), &vErr)
	require.NoError(t, s.Set("x", 25))
}

func TestOptions(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "exact option", in: "fits", want: "fits"},
		{name: "unique prefix normalizes", in: "f", want: "fits"},
		{name: "another unique prefix", in: "asc", want: "ascii"},
		{name: "unknown option", in: "hdf5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Set("kernel", tt.in)
			if tt.wantErr {
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				return
			}
			require.NoError(t, err)
			v, err := s.Get("kernel")
			require.NoError(t, err)
			str, ok := v.AsString()
			require.True(t, ok)
			assert.Equal(t, tt.want, str)
		})
	}
}

func TestOptions_AmbiguousPrefix(t *testing.T) {
	ts := &schema.ToolSchema{
		Name: "t",
		Optional: []schema.Decl{
			{Name: "method", Type: schema.TypeString,
				Options: []string{"linear", "linlog", "loglog"}},
		},
	}
	s, err := NewStore(ts)
	require.NoError(t, err)

	err = s.Set("method", "lin")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "linear")
	assert.Contains(t, vErr.Error(), "linlog")

	require.NoError(t, s.Set("method", "line"))
	v, _ := s.Get("method")
	str, _ := v.AsString()
	assert.Equal(t, "linear", str)
}

func TestOptions_RedirectCheckedAgainstTarget(t *testing.T) {
	ts := &schema.ToolSchema{
		Name: "t",
		Optional: []schema.Decl{
			{Name: "src", Type: schema.TypeString, Default: "fits"},
			{Name: "kernel", Type: schema.TypeString,
				Options: []string{"fits", "ascii"}},
		},
	}
	s, err := NewStore(ts)
	require.NoError(t, err)

	// redirect stays a redirect; the target's value passes the check
	require.NoError(t, s.Set("kernel", ")src"))
	v, err := s.Get("kernel")
	require.NoError(t, err)
	assert.True(t, v.IsRedirect())

	resolved, err := s.Resolve("kernel")
	require.NoError(t, err)
	str, _ := resolved.AsString()
	assert.Equal(t, "fits", str)
}
