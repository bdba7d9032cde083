// Package pfile maps a parameter store to and from the line-oriented
// parameter file format consumed by external tools:
//
//	name = value  # help text
//
// Values longer than MaxFieldLen spill to sibling stack files referenced
// by an "@-<path>" token. A trailing "mode = h" line forces tools into
// non-interactive mode.
package pfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/astrokit/runtool/pkg/param"
	"github.com/astrokit/runtool/pkg/schema"
)

const (
	// MaxFieldLen is the longest value written inline; anything longer
	// spills to a stack file.
	MaxFieldLen = 1023

	// ModeParam is the reserved parameter forced to ModeValue on every
	// write so the tool never prompts.
	ModeParam = "mode"
	ModeValue = "h"

	indefToken    = "INDEF"
	helpSeparator = "  # "
)

// OverflowMap records which parameters spilled to stack files during a
// write: parameter name to stack file path. The caller owns deletion of
// the listed files, on success and failure paths alike.
type OverflowMap map[string]string

// Paths returns the stack file paths in the map.
func (m OverflowMap) Paths() []string {
	paths := make([]string, 0, len(m))
	for _, p := range m {
		paths = append(paths, p)
	}
	return paths
}

// Write serializes the store into a parameter file at path. The returned
// OverflowMap is meaningful even when err is non-nil: stack files created
// before the failure are listed so the caller can delete them.
func Write(store *param.Store, path string) (OverflowMap, error) {
	overflow := OverflowMap{}

	f, err := os.Create(path)
	if err != nil {
		return overflow, &WriteError{Path: path, Err: err}
	}

	w := bufio.NewWriter(f)
	for _, entry := range store.Iterate() {
		if entry.Name == ModeParam {
			continue
		}
		d, ok := store.Schema().FindDecl(entry.Name)
		if !ok {
			continue
		}

		serialized := formatValue(d, entry.Value)
		if len(serialized) > MaxFieldLen {
			stackPath, serr := writeStackFile(path, entry.Name, serialized)
			if stackPath != "" {
				overflow[entry.Name] = stackPath
			}
			if serr != nil {
				f.Close()
				return overflow, &WriteError{Path: path, Err: serr}
			}
			serialized = StackRefPrefix + stackPath
		}

		if _, err := w.WriteString(formatLine(entry.Name, serialized, d.Help)); err != nil {
			f.Close()
			return overflow, &WriteError{Path: path, Err: err}
		}
	}

	if _, err := w.WriteString(formatLine(ModeParam, ModeValue, "run in non-interactive mode")); err != nil {
		f.Close()
		return overflow, &WriteError{Path: path, Err: err}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return overflow, &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return overflow, &WriteError{Path: path, Err: err}
	}
	return overflow, nil
}

// Read loads a parameter file back into the store. Each on-disk value
// goes through store.Set so the same validation applies whether a value
// arrives from user code or from the tool. Stack references are expanded
// from their files first.
func Read(store *param.Store, path string) error {
	entries, err := parseFile(path)
	if err != nil {
		return err
	}

	for _, d := range store.Decls() {
		if d.Name == ModeParam {
			continue
		}
		raw, ok := entries[d.Name]
		if !ok {
			continue
		}
		if IsStackRef(raw) {
			expanded, err := readStackFile(StackPath(raw))
			if err != nil {
				return &ReadError{Path: path, Err: err}
			}
			raw = expanded
		}
		if err := store.Set(d.Name, raw); err != nil {
			return err
		}
	}
	return nil
}

// Verify re-opens the file and compares each parameter's on-disk value
// against what the store would write. Redirect and environment tokens
// are resolved before comparison. Mismatches are logged as warnings, not
// raised: redirects and env expansion legitimately produce differences,
// so this is a best-effort check.
func Verify(store *param.Store, path string, overflow OverflowMap) error {
	entries, err := parseFile(path)
	if err != nil {
		return err
	}

	for _, entry := range store.Iterate() {
		if entry.Name == ModeParam {
			continue
		}
		d, ok := store.Schema().FindDecl(entry.Name)
		if !ok {
			continue
		}

		expected := formatValue(d, entry.Value)
		if stackPath, ok := overflow[entry.Name]; ok {
			expected = StackRefPrefix + stackPath
		}

		got, ok := entries[entry.Name]
		if !ok {
			slog.Warn("parameter missing from file",
				"tool", store.ToolName(), "param", entry.Name, "path", path)
			continue
		}
		if got == expected {
			continue
		}
		if resolveTokens(store, d, got) == resolveTokens(store, d, expected) {
			continue
		}
		slog.Warn("parameter file value differs from store",
			"tool", store.ToolName(), "param", entry.Name,
			"expected", expected, "got", got)
	}
	return nil
}

// FormatValue renders a value in its on-disk string form: booleans as
// yes/no, null numerics as INDEF, null strings as empty, redirects as
// their ")name" token.
func FormatValue(d *schema.Decl, v param.Value) string {
	return formatValue(d, v)
}

func formatValue(d *schema.Decl, v param.Value) string {
	if v.IsRedirect() {
		return ")" + v.RedirectTarget()
	}
	if v.IsNull() {
		if d.Type.IsStringLike() {
			return ""
		}
		return indefToken
	}
	switch d.Type {
	case schema.TypeBoolean:
		if b, ok := v.AsBool(); ok && b {
			return "yes"
		}
		return "no"
	case schema.TypeInteger:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10)
	case schema.TypeReal:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		s, _ := v.AsString()
		return s
	}
}

func formatLine(name, value, help string) string {
	if help == "" {
		return fmt.Sprintf("%s = %s\n", name, value)
	}
	return fmt.Sprintf("%s = %s%s%s\n", name, value, helpSeparator, help)
}

// parseFile reads a parameter file into a name to raw-value map. Help
// comments are stripped; blank and comment-only lines are skipped. The
// format has no escaping, so a value containing the literal help
// separator is truncated at it, same as the tools themselves parse.
func parseFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	entries := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		idx := strings.Index(line, " = ")
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		rest := line[idx+3:]
		if h := strings.Index(rest, helpSeparator); h >= 0 {
			rest = rest[:h]
		}
		entries[name] = strings.TrimRight(rest, " \t")
	}
	if err := scanner.Err(); err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return entries, nil
}

var envCallPattern = regexp.MustCompile(`\$ENV\{([^}]+)\}`)

// resolveTokens normalizes a value for comparison: redirects resolve
// through the store to the target's on-disk form, and environment tokens
// expand against the current environment.
func resolveTokens(store *param.Store, d *schema.Decl, value string) string {
	if target, ok := strings.CutPrefix(value, ")"); ok {
		exact, err := store.ResolveName(target)
		if err != nil {
			return value
		}
		resolved, err := store.Resolve(exact)
		if err != nil {
			return value
		}
		if td, ok := store.Schema().FindDecl(exact); ok {
			d = td
		}
		return formatValue(d, resolved)
	}
	value = envCallPattern.ReplaceAllStringFunc(value, func(m string) string {
		return os.Getenv(envCallPattern.FindStringSubmatch(m)[1])
	})
	return schema.ExpandEnvVars(value)
}
