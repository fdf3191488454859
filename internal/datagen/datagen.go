// Package datagen asks the generative backend for records matching a JSON
// Schema and keeps the ones that validate.
package datagen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"testassist/internal/agent"
	"testassist/internal/prompts"
	"testassist/internal/telemetry"
)

// DefaultCount is the number of records requested when none is given.
const DefaultCount = 20

const systemPrompt = "You are a data generator that strictly follows JSON Schemas."

// schemaURL is the resource name the schema is registered under.
const schemaURL = "testassist://schema.json"

// SynthesisRequest is the input of one synthesis.
type SynthesisRequest struct {
	SchemaPath string
	N          int
	OutFile    string
}

// Stats reports how many records were asked for, returned and kept.
type Stats struct {
	Requested int `json:"requested"`
	Generated int `json:"generated"`
	Valid     int `json:"valid"`
}

// Synthesizer generates schema-conforming test data.
type Synthesizer struct {
	Agent  agent.JSONCompleter
	Prompt func(name string, vars map[string]string) (string, error)
}

// New returns a Synthesizer calling a.
func New(a agent.JSONCompleter) *Synthesizer {
	return &Synthesizer{Agent: a, Prompt: prompts.Get}
}

// Synthesize writes the valid records to req.OutFile as an indented JSON array.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (Stats, error) {
	n := req.N
	if n <= 0 {
		n = DefaultCount
	}
	stats := Stats{Requested: n}

	raw, err := os.ReadFile(req.SchemaPath)
	if err != nil {
		return stats, fmt.Errorf("read schema: %w", err)
	}
	schema, err := compile(raw)
	if err != nil {
		return stats, fmt.Errorf("compile schema %s: %w", req.SchemaPath, err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return stats, fmt.Errorf("schema %s is not valid JSON: %w", req.SchemaPath, err)
	}

	load := s.Prompt
	if load == nil {
		load = prompts.Get
	}
	instructions, err := load(prompts.TestData, nil)
	if err != nil {
		return stats, err
	}

	telemetry.LogInfo("Synthesizing test data", "schema", req.SchemaPath, "n", n)
	resp, err := s.Agent.CompleteJSON(ctx, agent.Completion{
		System: systemPrompt,
		User:   instructions + "\n\nSchema:\n" + compact.String() + "\n\nGenerate " + strconv.Itoa(n) + " items.",
	})
	if err != nil {
		return stats, fmt.Errorf("generative backend: %w", err)
	}

	items := Items(resp)
	stats.Generated = len(items)

	valid := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		v, err := decode(item)
		if err != nil {
			telemetry.LogDebug("Dropping unparsable record", "index", i, "error", err)
			continue
		}
		if err := schema.Validate(v); err != nil {
			telemetry.LogDebug("Dropping invalid record", "index", i, "error", err)
			continue
		}
		valid = append(valid, item)
	}
	stats.Valid = len(valid)

	out, err := json.MarshalIndent(valid, "", "  ")
	if err != nil {
		return stats, err
	}
	if err := writeOut(req.OutFile, out); err != nil {
		return stats, err
	}

	telemetry.LogInfo("Test data written", "out", req.OutFile, "generated", stats.Generated, "valid", stats.Valid)
	return stats, nil
}

// Items pulls the record array out of a response: a bare array, or the
// items or output field of an object. Anything else yields no records.
func Items(resp json.RawMessage) []json.RawMessage {
	var arr []json.RawMessage
	if err := json.Unmarshal(resp, &arr); err == nil {
		return arr
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(resp, &obj); err != nil {
		return nil
	}
	for _, key := range []string{"items", "output"} {
		if v, ok := obj[key]; ok {
			if err := json.Unmarshal(v, &arr); err == nil {
				return arr
			}
		}
	}
	return nil
}

// decode keeps numbers as json.Number so integer and multipleOf checks
// see the exact literal.
func decode(item json.RawMessage) (any, error) {
	d := json.NewDecoder(bytes.NewReader(item))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func compile(raw []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
}

func writeOut(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
