package artifact

import (
	"fmt"
	"strings"
)

// ValidationError reports a generation response that cannot be classified.
type ValidationError struct {
	Missing  []string
	TestType string
	Reason   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("generation response invalid")
	if e.TestType != "" {
		fmt.Fprintf(&b, " (testType=%q)", e.TestType)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// FileSystemError wraps a failed filesystem operation on Path.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}
