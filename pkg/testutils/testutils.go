// Package testutils provides shared fixtures for runtool tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/astrokit/runtool/pkg/param"
	"github.com/astrokit/runtool/pkg/schema"
)

// TestToolSchema returns a small schema exercising every parameter type
// plus a range and an options constraint.
func TestToolSchema() *schema.ToolSchema {
	return &schema.ToolSchema{
		Name: "dmcopy",
		Help: "copy and filter a data file",
		Required: []schema.Decl{
			{Name: "infile", Type: schema.TypeFilename, Help: "input file"},
			{Name: "outfile", Type: schema.TypeFilename, Help: "output file"},
		},
		Optional: []schema.Decl{
			{Name: "clobber", Type: schema.TypeBoolean, Help: "overwrite existing output", Default: "no"},
			{Name: "verbose", Type: schema.TypeInteger, Help: "verbosity level", Default: "0", Min: "0", Max: "5"},
			{Name: "scale", Type: schema.TypeReal, Help: "scale factor", Default: "1.0"},
			{Name: "kernel", Type: schema.TypeString, Help: "output kernel", Default: "default",
				Options: []string{"default", "fits", "ascii"}},
		},
	}
}

// TestStore returns a fresh store over TestToolSchema.
func TestStore(t *testing.T) *param.Store {
	t.Helper()
	store, err := param.NewStore(TestToolSchema())
	if err != nil {
		t.Fatalf("failed to build test store: %v", err)
	}
	return store
}

// TestSchema builds a store from an arbitrary schema, failing the test on
// schema errors.
func TestSchema(t *testing.T, ts *schema.ToolSchema) *param.Store {
	t.Helper()
	store, err := param.NewStore(ts)
	if err != nil {
		t.Fatalf("failed to build store for %s: %v", ts.Name, err)
	}
	return store
}

// WriteScript drops an executable shell script into dir and returns its
// path. Used to fake external tools.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write script %s: %v", name, err)
	}
	return path
}
