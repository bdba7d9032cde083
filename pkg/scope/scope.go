// Package scope isolates concurrent tool invocations from each other's
// ancillary parameter files. Tools locate their private parameter
// directory through a two-part search path environment variable
// ("priv1:priv2;shared1:shared2"); a Scope swaps in a fresh private
// directory for the duration of a batch and restores the previous value
// on exit.
package scope

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EnvVar is the search path variable external tools consult for their
// parameter files.
const EnvVar = "PFILES"

// parExt is the parameter file suffix in ancillary namespace directories.
const parExt = ".par"

// ScopeError reports a failure while setting up or tearing down a scope
// directory.
type ScopeError struct {
	Op   string
	Path string
	Err  error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ScopeError) Unwrap() error {
	return e.Err
}

// Scope is a live private-directory overlay. Exit must be called on every
// code path once Enter succeeds; scopes nest strictly LIFO.
type Scope struct {
	dir      string
	prev     string
	hadPrev  bool
	released bool
}

// Dir returns the private directory this scope owns.
func (s *Scope) Dir() string {
	return s.dir
}

// Enter creates a fresh private directory, seeds it, and points EnvVar's
// private part at it. Each name in seeds must resolve to a parameter file
// somewhere on the current search path; a seed that cannot be copied is a
// ScopeError. Files already on the private path but absent from the
// shared path are carried over too, tolerating files that vanish during
// the scan.
func Enter(seeds ...string) (*Scope, error) {
	prev, hadPrev := os.LookupEnv(EnvVar)
	private, shared := splitSearchPath(prev)

	dir := filepath.Join(os.TempDir(), "runtool-scope-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ScopeError{Op: "create", Path: dir, Err: err}
	}

	for _, seed := range seeds {
		src := findParFile(seed, private, shared)
		if src == "" {
			os.RemoveAll(dir)
			return nil, &ScopeError{Op: "seed", Path: seed + parExt,
				Err: fmt.Errorf("not found on search path")}
		}
		if err := copyFile(src, filepath.Join(dir, seed+parExt)); err != nil {
			os.RemoveAll(dir)
			return nil, &ScopeError{Op: "seed", Path: src, Err: err}
		}
	}

	carryPrivateFiles(dir, private, shared)

	value := joinSearchPath(append([]string{dir}, private...), shared)
	if err := os.Setenv(EnvVar, value); err != nil {
		os.RemoveAll(dir)
		return nil, &ScopeError{Op: "setenv", Path: EnvVar, Err: err}
	}

	return &Scope{dir: dir, prev: prev, hadPrev: hadPrev}, nil
}

// Exit restores the previous EnvVar value and removes the scope
// directory. Safe to call more than once.
func (s *Scope) Exit() error {
	if s.released {
		return nil
	}
	s.released = true

	var err error
	if s.hadPrev {
		err = os.Setenv(EnvVar, s.prev)
	} else {
		err = os.Unsetenv(EnvVar)
	}
	if err != nil {
		return &ScopeError{Op: "restore", Path: EnvVar, Err: err}
	}

	if err := os.RemoveAll(s.dir); err != nil {
		slog.Warn("failed to remove scope directory", "dir", s.dir, "error", err)
	}
	return nil
}

// With runs fn inside a scope and guarantees release on every path.
func With(seeds []string, fn func(*Scope) error) error {
	s, err := Enter(seeds...)
	if err != nil {
		return err
	}
	defer s.Exit()
	return fn(s)
}

// carryPrivateFiles copies parameter files that exist only on the active
// private path into the new directory. A file vanishing between the scan
// and the copy is a race with another scope winding down, not an error.
func carryPrivateFiles(dir string, private, shared []string) {
	copied := make(map[string]bool)
	for _, privDir := range private {
		entries, err := os.ReadDir(privDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, parExt) || copied[name] {
				continue
			}
			if foundInDirs(name, shared) {
				continue
			}
			src := filepath.Join(privDir, name)
			if err := copyFile(src, filepath.Join(dir, name)); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				slog.Warn("failed to carry private parameter file",
					"file", src, "error", err)
				continue
			}
			copied[name] = true
		}
	}
}

// findParFile locates a seed's parameter file, private path first.
func findParFile(name string, private, shared []string) string {
	file := name + parExt
	for _, dir := range append(append([]string{}, private...), shared...) {
		candidate := filepath.Join(dir, file)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func foundInDirs(file string, dirs []string) bool {
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, file)); err == nil {
			return true
		}
	}
	return false
}

// copyFile copies src to dst, forcing the copy writable regardless of the
// source's permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// splitSearchPath parses a "priv1:priv2;shared1:shared2" value. A value
// with no semicolon is all private.
func splitSearchPath(value string) (private, shared []string) {
	if value == "" {
		return nil, nil
	}
	privPart, sharedPart, found := strings.Cut(value, ";")
	private = splitDirs(privPart)
	if found {
		shared = splitDirs(sharedPart)
	}
	return private, shared
}

// joinSearchPath is the inverse of splitSearchPath.
func joinSearchPath(private, shared []string) string {
	priv := strings.Join(private, ":")
	if len(shared) == 0 {
		return priv
	}
	return priv + ";" + strings.Join(shared, ":")
}

func splitDirs(part string) []string {
	var dirs []string
	for _, d := range strings.Split(part, ":") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}
