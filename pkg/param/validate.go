package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/astrokit/runtool/pkg/schema"
)

// indefToken is the on-disk marker for a null numeric value or an
// unset range bound.
const indefToken = "INDEF"

// Validate coerces a raw value to the declaration's type and applies its
// range or options constraint. The returned value is the normalized form
// that Set stores (e.g. a unique option prefix expanded to the full
// option).
//
// Redirect values bypass coercion but are resolved to a concrete value
// before any constraint check.
func (s *Store) Validate(d *schema.Decl, raw interface{}) (Value, error) {
	v, err := s.coerce(d, raw)
	if err != nil {
		return Value{}, err
	}
	return s.checkConstraints(d, v)
}

// coerce converts a raw input into a typed Value without constraint
// checking.
func (s *Store) coerce(d *schema.Decl, raw interface{}) (Value, error) {
	if v, ok := raw.(Value); ok {
		if v.IsRedirect() {
			return s.normalizeRedirect(d, v)
		}
		return s.coerce(d, v.Interface())
	}

	if str, ok := raw.(string); ok && strings.HasPrefix(str, ")") {
		return s.normalizeRedirect(d, RedirectTo(str))
	}

	switch d.Type {
	case schema.TypeBoolean:
		return s.coerceBool(d, raw)
	case schema.TypeInteger:
		return s.coerceInt(d, raw)
	case schema.TypeReal:
		return s.coerceReal(d, raw)
	case schema.TypeString, schema.TypeFilename:
		return s.coerceString(d, raw)
	default:
		return Value{}, newValidationError(s.schema.Name, d.Name, nil, "unknown type %q", d.Type)
	}
}

// normalizeRedirect checks that a redirect points at a declared parameter
// and rewrites the target to its exact name.
func (s *Store) normalizeRedirect(d *schema.Decl, v Value) (Value, error) {
	target, err := s.ResolveName(v.RedirectTarget())
	if err != nil {
		return Value{}, newValidationError(s.schema.Name, d.Name, err,
			"redirect to unknown parameter ')%s'", v.RedirectTarget())
	}
	return RedirectTo(target), nil
}

func (s *Store) coerceBool(d *schema.Decl, raw interface{}) (Value, error) {
	switch b := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(b), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "yes", "true", "on", "1":
			return Bool(true), nil
		case "no", "false", "off", "0":
			return Bool(false), nil
		case "", "indef":
			return Null(), nil
		default:
			return Value{}, newValidationError(s.schema.Name, d.Name, nil,
				"%q is not a boolean (expected yes/no, true/false, on/off, 1/0)", b)
		}
	default:
		return Value{}, newValidationError(s.schema.Name, d.Name, nil,
			"%v (%T) is not a boolean", raw, raw)
	}
}

func (s *Store) coerceInt(d *schema.Decl, raw interface{}) (Value, error) {
	switch n := raw.(type) {
	case nil:
		return Null(), nil
	case int:
		return Int(int64(n)), nil
	case int32:
		return Int(int64(n)), nil
	case int64:
		return Int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return Value{}, newValidationError(s.schema.Name, d.Name, nil,
				"%v has a fractional part", n)
		}
		return Int(int64(n)), nil
	case string:
		t := strings.TrimSpace(n)
		if t == "" {
			// Historical convention: empty integer field reads as 0.
			return Int(0), nil
		}
		if strings.EqualFold(t, indefToken) {
			return Null(), nil
		}
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return Value{}, newValidationError(s.schema.Name, d.Name, nil, "%q is not an integer", n)
		}
		return Int(i), nil
	default:
		return Value{}, newValidationError(s.schema.Name, d.Name, nil,
			"%v (%T) is not an integer", raw, raw)
	}
}

func (s *Store) coerceReal(d *schema.Decl, raw interface{}) (Value, error) {
	switch n := raw.(type) {
	case nil:
		return Null(), nil
	case int:
		return Real(float64(n)), nil
	case int64:
		return Real(float64(n)), nil
	case float32:
		return Real(float64(n)), nil
	case float64:
		return Real(n), nil
	case string:
		t := strings.TrimSpace(n)
		if t == "" {
			// Historical convention: empty real field reads as 0.0.
			return Real(0), nil
		}
		if strings.EqualFold(t, indefToken) {
			return Null(), nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return Value{}, newValidationError(s.schema.Name, d.Name, nil, "%q is not a real number", n)
		}
		return Real(f), nil
	default:
		return Value{}, newValidationError(s.schema.Name, d.Name, nil,
			"%v (%T) is not a real number", raw, raw)
	}
}

func (s *Store) coerceString(d *schema.Decl, raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Str(""), nil
	case string:
		return Str(t), nil
	case []string:
		// Multi-value inputs become a comma-separated stack, the external
		// tool convention.
		return Str(strings.Join(t, ",")), nil
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = fmt.Sprint(item)
		}
		return Str(strings.Join(parts, ",")), nil
	default:
		return Value{}, newValidationError(s.schema.Name, d.Name, nil,
			"%v (%T) is not a string", raw, raw)
	}
}

// checkConstraints applies the declaration's range or options constraint
// to a coerced value, resolving redirects first. For literal string
// values a unique option prefix is normalized to the full option.
func (s *Store) checkConstraints(d *schema.Decl, v Value) (Value, error) {
	resolved, err := s.resolveValue(d.Name, v, make(map[string]bool))
	if err != nil {
		return Value{}, err
	}

	if d.HasRange() {
		if err := s.checkRange(d, resolved); err != nil {
			return Value{}, err
		}
		return v, nil
	}

	if d.HasOptions() {
		normalized, err := s.checkOptions(d, resolved)
		if err != nil {
			return Value{}, err
		}
		if !v.IsRedirect() {
			return normalized, nil
		}
		return v, nil
	}

	return v, nil
}

func (s *Store) checkRange(d *schema.Decl, v Value) error {
	if v.IsNull() {
		return nil
	}

	f, ok := v.AsFloat()
	if !ok {
		return newValidationError(s.schema.Name, d.Name, nil,
			"range check requires a numeric value, got %v", v.Interface())
	}

	lo, hasLo, err := s.resolveBound(d, d.Min)
	if err != nil {
		return err
	}
	hi, hasHi, err := s.resolveBound(d, d.Max)
	if err != nil {
		return err
	}

	if hasLo && f < lo {
		return newValidationError(s.schema.Name, d.Name, nil, "%v is below the minimum %v", f, lo)
	}
	if hasHi && f > hi {
		return newValidationError(s.schema.Name, d.Name, nil, "%v is above the maximum %v", f, hi)
	}
	return nil
}

// resolveBound evaluates a declared bound: a number, INDEF/empty ("no
// limit"), or a redirect to another parameter whose current value supplies
// the bound.
func (s *Store) resolveBound(d *schema.Decl, bound string) (float64, bool, error) {
	if bound == "" || strings.EqualFold(bound, indefToken) {
		return 0, false, nil
	}

	if target, ok := strings.CutPrefix(bound, ")"); ok {
		exact, err := s.ResolveName(target)
		if err != nil {
			return 0, false, newValidationError(s.schema.Name, d.Name, err,
				"bound redirects to unknown parameter ')%s'", target)
		}
		v, err := s.resolveValue(d.Name, s.values[exact], make(map[string]bool))
		if err != nil {
			return 0, false, err
		}
		if v.IsNull() {
			return 0, false, nil
		}
		f, ok := v.AsFloat()
		if !ok {
			return 0, false, newValidationError(s.schema.Name, d.Name, nil,
				"bound parameter ')%s' holds a non-numeric value", target)
		}
		return f, true, nil
	}

	f, err := strconv.ParseFloat(bound, 64)
	if err != nil {
		return 0, false, newValidationError(s.schema.Name, d.Name, nil, "bad bound %q", bound)
	}
	return f, true, nil
}

// checkOptions matches a value against the declared option set: an exact
// match, or a unique prefix of exactly one option.
func (s *Store) checkOptions(d *schema.Decl, v Value) (Value, error) {
	if v.IsNull() {
		return v, nil
	}

	text, ok := v.AsString()
	if !ok {
		return Value{}, newValidationError(s.schema.Name, d.Name, nil,
			"options check requires a string value, got %v", v.Interface())
	}

	var candidates []string
	for _, opt := range d.Options {
		if opt == text {
			return Str(opt), nil
		}
		if strings.HasPrefix(opt, text) {
			candidates = append(candidates, opt)
		}
	}

	switch len(candidates) {
	case 1:
		return Str(candidates[0]), nil
	case 0:
		return Value{}, newValidationError(s.schema.Name, d.Name, nil,
			"%q is not one of the allowed options (%s)", text, strings.Join(d.Options, ", "))
	default:
		return Value{}, newValidationError(s.schema.Name, d.Name, nil,
			"%q matches multiple options (%s)", text, strings.Join(candidates, ", "))
	}
}
