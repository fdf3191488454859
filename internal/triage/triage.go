// Package triage turns a raw test log into a Markdown failure summary.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"testassist/internal/agent"
	"testassist/internal/prompts"
	"testassist/internal/telemetry"
)

// NoOutput is written when the backend returns nothing usable.
const NoOutput = "# No output"

// Stats describes a written summary.
type Stats struct {
	Bytes int `json:"bytes"`
}

// Summarizer asks the backend to triage a log.
type Summarizer struct {
	Agent  agent.JSONCompleter
	Prompt func(name string, vars map[string]string) (string, error)
}

// New returns a Summarizer calling a.
func New(a agent.JSONCompleter) *Summarizer {
	return &Summarizer{Agent: a, Prompt: prompts.Get}
}

// UserContent is the user message sent for a log.
func UserContent(log string) string {
	return "Analyze this log and produce the required Markdown sections.\n\nLOG:\n" + log
}

// Schema constrains the backend response to a single markdown field.
func Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"required":   []string{"markdown"},
		"properties": map[string]any{"markdown": map[string]any{"type": "string"}},
	}
}

// Summarize reads logPath and writes the Markdown summary to outFile.
func (s *Summarizer) Summarize(ctx context.Context, logPath, outFile string) (Stats, error) {
	log, err := os.ReadFile(logPath)
	if err != nil {
		return Stats{}, fmt.Errorf("read log: %w", err)
	}

	load := s.Prompt
	if load == nil {
		load = prompts.Get
	}
	system, err := load(prompts.Triage, nil)
	if err != nil {
		return Stats{}, err
	}

	telemetry.LogInfo("Triaging test log", "log", logPath, "bytes", len(log))
	resp, err := s.Agent.CompleteJSON(ctx, agent.Completion{
		System:     system,
		User:       UserContent(string(log)),
		Schema:     Schema(),
		SchemaName: "triage_summary",
	})
	if err != nil {
		return Stats{}, fmt.Errorf("generative backend: %w", err)
	}

	md := Markdown(resp)
	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return Stats{}, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outFile, []byte(md), 0644); err != nil {
		return Stats{}, fmt.Errorf("write %s: %w", outFile, err)
	}
	return Stats{Bytes: len(md)}, nil
}

// Markdown picks the summary out of a response: a JSON string as-is,
// otherwise the markdown field, then the output field, then NoOutput.
func Markdown(resp json.RawMessage) string {
	var str string
	if err := json.Unmarshal(resp, &str); err == nil {
		return str
	}

	var obj struct {
		Markdown string `json:"markdown"`
		Output   any    `json:"output"`
	}
	if err := json.Unmarshal(resp, &obj); err != nil {
		return NoOutput
	}
	if strings.TrimSpace(obj.Markdown) != "" {
		return obj.Markdown
	}
	if out, ok := obj.Output.(string); ok && strings.TrimSpace(out) != "" {
		return out
	}
	return NoOutput
}
