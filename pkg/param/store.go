package param

import (
	"fmt"
	"strings"

	"github.com/astrokit/runtool/pkg/schema"
)

// Entry pairs a parameter name with its current value, in declaration
// order.
type Entry struct {
	Name  string
	Value Value
}

// Store holds the current values for one tool's parameter schema.
//
// A Store belongs to a single logical thread of control; concurrent
// invocations each get their own Store.
type Store struct {
	schema   *schema.ToolSchema
	decls    []schema.Decl
	index    map[string]int
	values   map[string]Value
	defaults map[string]Value
}

// NewStore builds a Store from a tool schema, seeding every parameter
// with its declared default.
func NewStore(ts *schema.ToolSchema) (*Store, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}

	decls := ts.Decls()
	s := &Store{
		schema:   ts,
		decls:    decls,
		index:    make(map[string]int, len(decls)),
		values:   make(map[string]Value, len(decls)),
		defaults: make(map[string]Value, len(decls)),
	}

	for i := range decls {
		d := &decls[i]
		s.index[d.Name] = i

		def, err := s.coerce(d, d.Default)
		if err != nil {
			return nil, fmt.Errorf("tool '%s': bad default for parameter '%s': %w", ts.Name, d.Name, err)
		}
		s.defaults[d.Name] = def
		s.values[d.Name] = def
	}

	return s, nil
}

// ToolName returns the name of the tool this store belongs to.
func (s *Store) ToolName() string {
	return s.schema.Name
}

// Schema returns the underlying tool schema.
func (s *Store) Schema() *schema.ToolSchema {
	return s.schema
}

// Decls returns the declarations in order (required first, then optional).
func (s *Store) Decls() []schema.Decl {
	return s.decls
}

// ResolveName maps a name or unique prefix to the exact declared name.
// Matching is case-sensitive. An exact match always wins, even when it is
// also a prefix of other names.
func (s *Store) ResolveName(prefix string) (string, error) {
	if prefix == "" {
		return "", &UnknownNameError{Tool: s.schema.Name, Name: prefix}
	}

	if _, ok := s.index[prefix]; ok {
		return prefix, nil
	}

	var candidates []string
	for i := range s.decls {
		if strings.HasPrefix(s.decls[i].Name, prefix) {
			candidates = append(candidates, s.decls[i].Name)
		}
	}

	switch len(candidates) {
	case 0:
		return "", &UnknownNameError{Tool: s.schema.Name, Name: prefix}
	case 1:
		return candidates[0], nil
	default:
		return "", &AmbiguousNameError{Tool: s.schema.Name, Name: prefix, Candidates: candidates}
	}
}

// Get returns the current value for a name or unique prefix. Redirect
// values are returned as-is; use Resolve to follow them.
func (s *Store) Get(name string) (Value, error) {
	exact, err := s.ResolveName(name)
	if err != nil {
		return Value{}, err
	}
	return s.values[exact], nil
}

// Resolve returns the current value with redirects recursively followed.
// A cycle yields a ValidationError wrapping ErrRedirectCycle.
func (s *Store) Resolve(name string) (Value, error) {
	exact, err := s.ResolveName(name)
	if err != nil {
		return Value{}, err
	}
	return s.resolveValue(exact, s.values[exact], make(map[string]bool))
}

// resolveValue follows redirect values until a literal is reached,
// guarding against cycles with a visited set.
func (s *Store) resolveValue(name string, v Value, visited map[string]bool) (Value, error) {
	for v.IsRedirect() {
		target, err := s.ResolveName(v.RedirectTarget())
		if err != nil {
			return Value{}, newValidationError(s.schema.Name, name, err,
				"redirect to unknown parameter ')%s'", v.RedirectTarget())
		}
		if visited[target] {
			return Value{}, newValidationError(s.schema.Name, name, ErrRedirectCycle,
				"redirect ')%s'", target)
		}
		visited[target] = true
		v = s.values[target]
	}
	return v, nil
}

// Set validates a value and stores it under the resolved exact name.
// Accepted inputs: Value, native Go scalars, strings in the on-disk
// conventions (yes/no, INDEF, ")redirect"), or slices joined into a
// comma-separated stack.
func (s *Store) Set(name string, raw interface{}) error {
	exact, err := s.ResolveName(name)
	if err != nil {
		return err
	}

	d := &s.decls[s.index[exact]]
	v, err := s.Validate(d, raw)
	if err != nil {
		return err
	}

	s.values[exact] = v
	return nil
}

// Reset restores every parameter to its declared default ("unlearn").
// Calling it repeatedly is a no-op after the first call.
func (s *Store) Reset() {
	for name, def := range s.defaults {
		s.values[name] = def
	}
}

// Default returns the declared default value for a name or unique prefix.
func (s *Store) Default(name string) (Value, error) {
	exact, err := s.ResolveName(name)
	if err != nil {
		return Value{}, err
	}
	return s.defaults[exact], nil
}

// Iterate returns a snapshot of (name, value) pairs in declaration order.
// The snapshot is independent of later mutation, so callers may restart
// or interleave iteration freely.
func (s *Store) Iterate() []Entry {
	entries := make([]Entry, len(s.decls))
	for i := range s.decls {
		entries[i] = Entry{Name: s.decls[i].Name, Value: s.values[s.decls[i].Name]}
	}
	return entries
}
