package runtool

import (
	"fmt"
	"strings"
)

// ToolExecutionError carries a tool's nonzero exit and its full combined
// output, indented for display.
type ToolExecutionError struct {
	Tool     string
	ExitCode int
	Output   string
}

func (e *ToolExecutionError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d:\n%s", e.Tool, e.ExitCode, indent(e.Output))
}

// indent prefixes every line of s with two spaces.
func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// BindError reports arguments that cannot be mapped onto a tool's
// declarations.
type BindError struct {
	Tool    string
	Message string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("cannot bind arguments for %s: %s", e.Tool, e.Message)
}
