package report

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"testassist/internal/artifact"
	"testassist/internal/notify"
	"testassist/internal/runner"
	"testassist/internal/scaffold"
	"testassist/internal/telemetry"
)

//go:embed templates/index.html.tmpl
var templateFS embed.FS

// Output files, relative to the run directory.
const (
	SummaryJSON = "reports/summary.json"
	SummaryMD   = "reports/summary.md"
	IndexHTML   = "reports/index.html"
)

// artifactPattern matches the raw files the runner and the world module leave behind.
const artifactPattern = scaffold.ReportsDir + "/**/*.{json,html,xml,png}"

// CollectionError is a failed report step. The orchestrator only logs it.
type CollectionError struct {
	Dir   string
	Stage string
	Err   error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("report %s failed for %s: %v", e.Stage, e.Dir, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// Totals are the aggregate scenario counts of a run.
type Totals struct {
	Scenarios int  `json:"scenarios"`
	Passed    uint `json:"passed"`
	Failed    uint `json:"failed"`
}

// ScenarioRow is one scenario in the consolidated report.
type ScenarioRow struct {
	Feature    string `json:"feature"`
	Name       string `json:"name"`
	Passed     bool   `json:"passed"`
	Steps      int    `json:"steps"`
	FailedStep string `json:"failedStep,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Summary is the content of summary.json.
type Summary struct {
	RunID       string            `json:"runId"`
	ProjectName string            `json:"projectName"`
	Browser     string            `json:"browser"`
	TestType    artifact.TestType `json:"testType"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Success     bool              `json:"success"`
	ExitCode    int               `json:"exitCode"`
	DurationMs  uint64            `json:"durationMs"`
	Totals      Totals            `json:"totals"`
	Scenarios   []ScenarioRow     `json:"scenarios"`
	// Artifacts are relative to the reports directory.
	Artifacts []string `json:"artifacts"`
}

// Collector writes summary.json, summary.md and index.html next to the raw
// runner output and optionally announces the run.
type Collector struct {
	Notifier notify.Notifier
	Now      func() time.Time
	NewID    func() string
}

// NewCollector returns a Collector posting to n, which may be nil.
func NewCollector(n notify.Notifier) *Collector {
	return &Collector{Notifier: n, Now: time.Now, NewID: uuid.NewString}
}

// Collect implements runner.Collector.
func (c *Collector) Collect(ctx context.Context, p runner.ReportParams) error {
	resultsPath := filepath.Join(p.Directory, filepath.FromSlash(scaffold.ReportJSON))
	counts, err := runner.ParseReport(resultsPath)
	if err != nil {
		return &CollectionError{Dir: p.Directory, Stage: "parse", Err: err}
	}

	artifacts, err := discover(p.Directory)
	if err != nil {
		return &CollectionError{Dir: p.Directory, Stage: "discover", Err: err}
	}

	s := c.summarize(p, counts, artifacts)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &CollectionError{Dir: p.Directory, Stage: "encode", Err: err}
	}
	html, err := renderHTML(s)
	if err != nil {
		return &CollectionError{Dir: p.Directory, Stage: "render", Err: err}
	}

	for _, f := range []struct {
		name string
		data []byte
	}{
		{SummaryJSON, data},
		{SummaryMD, []byte(Markdown(s))},
		{IndexHTML, html},
	} {
		target := filepath.Join(p.Directory, filepath.FromSlash(f.name))
		if err := os.WriteFile(target, f.data, 0644); err != nil {
			return &CollectionError{Dir: p.Directory, Stage: "write", Err: err}
		}
	}
	telemetry.LogInfo("Reports generated", "dir", p.Directory, "index", IndexHTML, "run_id", s.RunID)

	if c.Notifier != nil {
		if err := c.Notifier.Notify(ctx, Headline(s)); err != nil {
			return &CollectionError{Dir: p.Directory, Stage: "notify", Err: err}
		}
	}
	return nil
}

func (c *Collector) summarize(p runner.ReportParams, counts runner.Counts, artifacts []string) Summary {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	newID := uuid.NewString
	if c.NewID != nil {
		newID = c.NewID
	}
	project := p.ProjectName
	if project == "" {
		project = "GenAI Test Assistant"
	}

	s := Summary{
		RunID:       newID(),
		ProjectName: project,
		Browser:     p.Browser,
		TestType:    p.TestType,
		GeneratedAt: now().UTC(),
		Success:     p.Result.Success,
		ExitCode:    p.Result.ExitCode,
		DurationMs:  p.Result.DurationMs,
		Totals: Totals{
			Scenarios: len(counts.Scenarios),
			Passed:    counts.Passed,
			Failed:    counts.Failed,
		},
		Scenarios: make([]ScenarioRow, 0, len(counts.Scenarios)),
		Artifacts: artifacts,
	}
	for _, sc := range counts.Scenarios {
		s.Scenarios = append(s.Scenarios, ScenarioRow{
			Feature:    sc.Feature,
			Name:       sc.Name,
			Passed:     sc.Passed,
			Steps:      sc.Steps,
			FailedStep: sc.FailedStep,
			Error:      sc.Error,
			DurationMs: sc.Duration.Milliseconds(),
		})
	}
	return s
}

// discover lists raw runner artifacts relative to the reports directory,
// leaving out the files Collect itself writes.
func discover(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), artifactPattern)
	if err != nil {
		return nil, err
	}
	own := map[string]bool{SummaryJSON: true, IndexHTML: true}

	out := []string{}
	for _, m := range matches {
		if own[m] {
			continue
		}
		out = append(out, strings.TrimPrefix(m, scaffold.ReportsDir+"/"))
	}
	sort.Strings(out)
	return out, nil
}

func renderHTML(s Summary) ([]byte, error) {
	tpl, err := template.ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := tpl.ExecuteTemplate(&b, "index.html.tmpl", s); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Headline is the one-line notification text for a run.
func Headline(s Summary) string {
	status := "PASSED"
	if !s.Success {
		status = "FAILED"
	}
	return fmt.Sprintf("%s: %s tests %s on %s (%d passed, %d failed, %dms)",
		s.ProjectName, s.TestType.Display(), status, s.Browser, s.Totals.Passed, s.Totals.Failed, s.DurationMs)
}

// Markdown renders the human-readable summary.
func Markdown(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.ProjectName)
	fmt.Fprintf(&b, "%s\n\n", Headline(s))
	fmt.Fprintf(&b, "- Run: `%s`\n", s.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Exit code: %d\n\n", s.ExitCode)

	b.WriteString("## Scenarios\n\n")
	if len(s.Scenarios) == 0 {
		b.WriteString("No scenarios were recorded.\n")
	} else {
		b.WriteString("| Feature | Scenario | Status | Failed step |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, sc := range s.Scenarios {
			status := "passed"
			if !sc.Passed {
				status = "**failed**"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(sc.Feature), cell(sc.Name), status, cell(sc.FailedStep))
		}
	}

	if len(s.Artifacts) > 0 {
		b.WriteString("\n## Raw artifacts\n\n")
		for _, a := range s.Artifacts {
			fmt.Fprintf(&b, "- [%s](%s)\n", a, a)
		}
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
