package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"testassist/internal/artifact"
	"testassist/internal/runner"
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func status(ok bool) string {
	if ok {
		return successStyle.Render("PASSED")
	}
	return failureStyle.Render("FAILED")
}

// RenderResult draws the outcome of an execution.
func RenderResult(r runner.Result) string {
	rows := []string{
		titleStyle.Render(r.TestType.Display() + " test run"),
		"",
		row("Status", status(r.Success)),
		row("Passed", fmt.Sprintf("%d", r.TestsPassed)),
		row("Failed", fmt.Sprintf("%d", r.TestsFailed)),
		row("Duration", fmt.Sprintf("%dms", r.DurationMs)),
		row("Exit code", fmt.Sprintf("%d", r.ExitCode)),
	}
	if r.Directory != "" {
		rows = append(rows, row("Directory", r.Directory))
	}
	if r.Success && r.TestsFailed > 0 {
		rows = append(rows, "", warnStyle.Render("Runner exited 0 although scenarios failed"))
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}

// RenderSet draws the files written for a generated artifact.
func RenderSet(c artifact.Classified, set artifact.Set) string {
	rows := []string{
		titleStyle.Render(c.Type.Display() + " tests generated"),
		"",
		row("Directory", set.Directory),
	}
	for p := set.Files.Oldest(); p != nil; p = p.Next() {
		rows = append(rows, row(p.Key, filepath.Join(set.Directory, p.Value)))
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}

// Suite is one entry of the list command.
type Suite struct {
	Name     string
	Type     artifact.TestType
	Dir      string
	Files    []string
	Complete bool
	HasRun   bool
}

// RenderSuites draws a table of generated suites.
func RenderSuites(suites []Suite) string {
	if len(suites) == 0 {
		return subtleStyle.Render("No generated suites found.")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d suite(s)", len(suites))))
	b.WriteString("\n\n")
	for _, s := range suites {
		mark := successStyle.Render("✓")
		if !s.Complete {
			mark = failureStyle.Render("✗")
		}
		line := fmt.Sprintf("%s %-4s %s", mark, s.Type, s.Name)
		meta := strings.Join(s.Files, ", ")
		if s.HasRun {
			meta += ", reports"
		}
		b.WriteString(line + "  " + subtleStyle.Render(meta) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
