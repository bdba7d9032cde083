package param

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRedirectCycle is wrapped by the ValidationError raised when redirect
// resolution revisits a parameter.
var ErrRedirectCycle = errors.New("redirect cycle detected")

// UnknownNameError reports a name (or prefix) matching no declared
// parameter.
type UnknownNameError struct {
	Tool string
	Name string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("tool '%s' has no parameter matching '%s'", e.Tool, e.Name)
}

// AmbiguousNameError reports a prefix matching more than one declared
// parameter.
type AmbiguousNameError struct {
	Tool       string
	Name       string
	Candidates []string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("parameter prefix '%s' for tool '%s' is ambiguous (matches: %s)",
		e.Name, e.Tool, strings.Join(e.Candidates, ", "))
}

// ValidationError reports a value rejected by type coercion or a
// constraint check. Redirect cycles wrap ErrRedirectCycle.
type ValidationError struct {
	Tool    string
	Name    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value for %s.%s: %s: %v", e.Tool, e.Name, e.Message, e.Err)
	}
	return fmt.Sprintf("invalid value for %s.%s: %s", e.Tool, e.Name, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(tool, name string, err error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Tool:    tool,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
