package runner

import (
	"fmt"
	"strings"
)

// DirectoryNotFoundError means the execution directory does not exist.
type DirectoryNotFoundError struct {
	Dir string
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("test directory not found: %s", e.Dir)
}

// MissingArtifactError names the required artifact files absent from Dir.
type MissingArtifactError struct {
	Dir     string
	Missing []string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing required files in %s: %s", e.Dir, strings.Join(e.Missing, ", "))
}

// SpawnError means the runner process could not be started. It is reported
// through Result.RawOutput, never returned.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ResultParseError means the runner's JSON result file was absent or malformed.
type ResultParseError struct {
	Path string
	Err  error
}

func (e *ResultParseError) Error() string {
	return fmt.Sprintf("could not parse test results %s: %v", e.Path, e.Err)
}

func (e *ResultParseError) Unwrap() error {
	return e.Err
}
