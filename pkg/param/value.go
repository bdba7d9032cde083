// Package param implements the in-memory parameter store for one tool:
// typed values keyed by declared parameter name, with unique-prefix name
// resolution, validation against the declared constraints, and redirect
// (")name") resolution.
//
// A Store holds state only; it performs no I/O. The pfile package maps a
// Store to and from the on-disk parameter-file format.
package param

import (
	"fmt"
	"strings"
)

// Value is the in-memory form of one parameter value. It is either a
// literal (typed Go value, possibly null) or a redirect naming another
// parameter in the same store.
type Value struct {
	redirect string
	lit      interface{} // bool, int64, float64, or string
	null     bool
}

// Null returns the null value (INDEF for numerics, unset for strings).
func Null() Value {
	return Value{null: true}
}

// Bool returns a boolean literal value.
func Bool(b bool) Value {
	return Value{lit: b}
}

// Int returns an integer literal value.
func Int(i int64) Value {
	return Value{lit: i}
}

// Real returns a real literal value.
func Real(f float64) Value {
	return Value{lit: f}
}

// Str returns a string literal value.
func Str(s string) Value {
	return Value{lit: s}
}

// RedirectTo returns a redirect value naming another parameter.
// The target is stored without the leading ")".
func RedirectTo(target string) Value {
	return Value{redirect: strings.TrimPrefix(target, ")")}
}

// IsRedirect reports whether the value is a redirect.
func (v Value) IsRedirect() bool {
	return v.redirect != ""
}

// RedirectTarget returns the redirect target name ("" for literals).
func (v Value) RedirectTarget() string {
	return v.redirect
}

// IsNull reports whether the value is the null literal. The empty string
// counts as null for string parameters.
func (v Value) IsNull() bool {
	if v.null {
		return true
	}
	if s, ok := v.lit.(string); ok {
		return s == ""
	}
	return false
}

// AsBool returns the boolean literal, if the value holds one.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.lit.(bool)
	return b, ok
}

// AsInt returns the integer literal, if the value holds one.
func (v Value) AsInt() (int64, bool) {
	i, ok := v.lit.(int64)
	return i, ok
}

// AsFloat returns the numeric literal widened to float64.
func (v Value) AsFloat() (float64, bool) {
	switch n := v.lit.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// AsString returns the string literal; null yields "".
func (v Value) AsString() (string, bool) {
	if v.null {
		return "", true
	}
	s, ok := v.lit.(string)
	return s, ok
}

// Interface exposes the underlying literal (nil when null; the ")target"
// form for redirects).
func (v Value) Interface() interface{} {
	if v.IsRedirect() {
		return ")" + v.redirect
	}
	if v.null {
		return nil
	}
	return v.lit
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	return v.redirect == o.redirect && v.null == o.null && v.lit == o.lit
}

// GoString makes test failures readable.
func (v Value) GoString() string {
	switch {
	case v.IsRedirect():
		return fmt.Sprintf("param.RedirectTo(%q)", v.redirect)
	case v.null:
		return "param.Null()"
	default:
		return fmt.Sprintf("param.Value(%#v)", v.lit)
	}
}
