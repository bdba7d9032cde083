package pfile

import (
	"os"
	"path/filepath"
	"strings"
)

// StackRefPrefix marks a parameter-file value that lives in a sibling
// stack file instead of inline.
const StackRefPrefix = "@-"

// writeStackFile spills an overlong comma-separated value into a temp
// file next to the parameter file, one element per line. Returns the
// stack file path.
func writeStackFile(pfilePath, name, value string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(pfilePath), name+"-*.stk")
	if err != nil {
		return "", err
	}
	path := f.Name()

	for _, elem := range strings.Split(value, ",") {
		if _, err := f.WriteString(elem + "\n"); err != nil {
			f.Close()
			return path, err
		}
	}
	if err := f.Close(); err != nil {
		return path, err
	}
	return path, nil
}

// readStackFile re-expands a stack file back into the comma-separated
// value it was written from.
func readStackFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	return strings.Join(lines, ","), nil
}

// IsStackRef reports whether an on-disk value is a stack file reference.
func IsStackRef(value string) bool {
	return strings.HasPrefix(value, StackRefPrefix)
}

// StackPath extracts the stack file path from a reference token.
func StackPath(value string) string {
	return strings.TrimPrefix(value, StackRefPrefix)
}
