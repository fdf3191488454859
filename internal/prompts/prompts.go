package prompts

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed templates/*.md
var templateFS embed.FS

// List of available prompt templates
const (
	Gherkin  = "gherkin"
	Triage   = "triage"
	TestData = "testdata"
)

// OverrideEnv names the environment variable consulted when OverrideDir is empty.
const OverrideEnv = "TESTASSIST_PROMPTS_DIR"

// OverrideDir, when set, is checked for <name>.md before the embedded copy.
var OverrideDir string

func overrideDir() string {
	if OverrideDir != "" {
		return OverrideDir
	}
	return os.Getenv(OverrideEnv)
}

// Get loads a template and injects variables.
// A file in the override directory takes precedence over the embedded template.
func Get(name string, vars map[string]string) (string, error) {
	var content []byte

	if dir := overrideDir(); dir != "" {
		if c, err := os.ReadFile(filepath.Join(dir, name+".md")); err == nil {
			content = c
		}
	}

	if len(content) == 0 {
		c, err := templateFS.ReadFile(path.Join("templates", name+".md"))
		if err != nil {
			return "", fmt.Errorf("failed to read prompt template %s: %w", name, err)
		}
		content = c
	}

	prompt := string(content)
	for k, v := range vars {
		prompt = strings.ReplaceAll(prompt, "{"+k+"}", v)
	}
	return prompt, nil
}
