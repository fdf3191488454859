package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"testassist/internal/telemetry"
)

// Logical file names used as keys in Set.Files.
const (
	LogicalFeature = "feature"
	LogicalSteps   = "steps"
	LogicalPages   = "pages"
)

// Set is the on-disk result of writing a Classified artifact.
type Set struct {
	Directory string
	// Files maps logical name to path relative to Directory, in write order.
	Files *orderedmap.OrderedMap[string, string]
}

// Paths returns the absolute-or-base-relative path of every written file, in order.
func (s Set) Paths() []string {
	var out []string
	for p := s.Files.Oldest(); p != nil; p = p.Next() {
		out = append(out, filepath.Join(s.Directory, p.Value))
	}
	return out
}

// Writer persists classified artifacts under a base directory.
type Writer struct {
	// WriteFile defaults to os.WriteFile.
	WriteFile func(name string, data []byte, perm os.FileMode) error
}

// NewWriter returns a Writer backed by the real filesystem.
func NewWriter() *Writer {
	return &Writer{WriteFile: os.WriteFile}
}

// Collides reports whether dir already holds a generated feature.
func (w *Writer) Collides(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FeatureFile))
	return err == nil
}

// Write creates base/<type>/<slug> and writes the feature, the steps and, for
// ui artifacts only, the pages file, in that order. A failure part-way leaves
// the files already written in place.
func (w *Writer) Write(c Classified, base, story string) (Set, error) {
	dir := Dir(base, c.Type, story)
	if err := os.MkdirAll(dir, 0755); err != nil {
		telemetry.LogError("Failed to create artifact directory", err, "dir", dir)
		return Set{}, &FileSystemError{Op: "mkdir", Path: dir, Err: err}
	}

	files := orderedmap.New[string, string]()
	files.Set(LogicalFeature, FeatureFile)
	files.Set(LogicalSteps, StepsFile)
	contents := map[string]string{
		LogicalFeature: c.FeatureText,
		LogicalSteps:   c.StepsText,
	}
	if c.Type == UI {
		files.Set(LogicalPages, PagesFile)
		contents[LogicalPages] = c.PagesText
	}

	writeFile := w.WriteFile
	if writeFile == nil {
		writeFile = os.WriteFile
	}

	for p := files.Oldest(); p != nil; p = p.Next() {
		path := filepath.Join(dir, p.Value)
		if err := writeFile(path, []byte(contents[p.Key]), 0644); err != nil {
			telemetry.LogError("Failed to write artifact file", err, "path", path)
			return Set{}, &FileSystemError{Op: "write", Path: path, Err: err}
		}
		telemetry.LogDebug("Wrote artifact file", "path", path)
	}

	return Set{Directory: dir, Files: files}, nil
}

// Load reconstructs the Set for an existing directory from the files present.
// It returns fs.ErrNotExist when the directory is missing.
func Load(dir string) (Set, TestType, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Set{}, "", err
	}
	if !info.IsDir() {
		return Set{}, "", &FileSystemError{Op: "stat", Path: dir, Err: errors.New("not a directory")}
	}

	files := orderedmap.New[string, string]()
	for _, f := range []struct{ key, name string }{
		{LogicalFeature, FeatureFile},
		{LogicalSteps, StepsFile},
		{LogicalPages, PagesFile},
	} {
		if _, err := os.Stat(filepath.Join(dir, f.name)); err == nil {
			files.Set(f.key, f.name)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Set{}, "", &FileSystemError{Op: "stat", Path: filepath.Join(dir, f.name), Err: err}
		}
	}

	tt := API
	if _, ok := files.Get(LogicalPages); ok {
		tt = UI
	}
	return Set{Directory: dir, Files: files}, tt, nil
}
