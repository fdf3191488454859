package artifact

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// TestType is the classification tag of a generated artifact.
type TestType string

const (
	API TestType = "api"
	UI  TestType = "ui"
)

// ParseTestType accepts exactly "api" or "ui".
func ParseTestType(s string) (TestType, error) {
	switch TestType(s) {
	case API, UI:
		return TestType(s), nil
	}
	return "", fmt.Errorf("unknown test type %q (want api or ui)", s)
}

// Display is the upper-case label used in logs and reports.
func (t TestType) Display() string {
	return strings.ToUpper(string(t))
}

// File names inside an artifact directory.
const (
	FeatureFile = "generated.feature"
	StepsFile   = "steps.generated.ts"
	PagesFile   = "pages.generated.ts"
)

// Classified is a validated generation response. Values are only produced by
// Classify, so Type is always api or ui and the fields it requires are set.
type Classified struct {
	Type        TestType
	FeatureText string
	StepsText   string
	// PagesText is empty for api artifacts.
	PagesText string
}

// response is the wire shape returned by the generative backend.
type response struct {
	TestType    string `json:"testType"`
	FeatureText string `json:"featureText"`
	StepsText   string `json:"stepsText"`
	PagesText   string `json:"pagesText"`
}

// Classify validates a backend response and tags it. The testType field is
// authoritative: a ui response without pagesText is rejected, never
// reclassified as api.
func Classify(raw json.RawMessage) (Classified, error) {
	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return Classified{}, &ValidationError{Reason: fmt.Sprintf("response is not a JSON object: %v", err)}
	}

	var missing []string
	if strings.TrimSpace(r.FeatureText) == "" {
		missing = append(missing, "featureText")
	}
	if strings.TrimSpace(r.StepsText) == "" {
		missing = append(missing, "stepsText")
	}

	tt, err := ParseTestType(r.TestType)
	switch {
	case r.TestType == "":
		missing = append(missing, "testType")
	case err != nil:
		return Classified{}, &ValidationError{Missing: missing, TestType: r.TestType, Reason: err.Error()}
	case tt == UI && strings.TrimSpace(r.PagesText) == "":
		missing = append(missing, "pagesText")
	}

	if len(missing) > 0 {
		return Classified{}, &ValidationError{Missing: missing, TestType: r.TestType}
	}

	c := Classified{Type: tt, FeatureText: r.FeatureText, StepsText: r.StepsText}
	if tt == UI {
		c.PagesText = r.PagesText
	}
	return c, nil
}

// ResponseSchema is the JSON Schema sent to the backend to constrain its output.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"testType", "featureText", "stepsText"},
		"properties": map[string]any{
			"testType":    map[string]any{"type": "string", "enum": []string{string(API), string(UI)}},
			"featureText": map[string]any{"type": "string"},
			"stepsText":   map[string]any{"type": "string"},
			"pagesText":   map[string]any{"type": "string"},
		},
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives the directory name from the first line of a story. Stories
// sharing a first line share a slug.
func Slug(story string) string {
	first, _, _ := strings.Cut(story, "\n")
	return nonAlnum.ReplaceAllString(strings.ToLower(first), "-")
}

// Dir is base/<type>/<slug>.
func Dir(base string, t TestType, story string) string {
	return filepath.Join(base, string(t), Slug(story))
}
