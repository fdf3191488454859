package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// fencedJSONPattern matches JSON inside markdown code blocks.
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\[{].*[\\]}])\\s*```")
	// jsonObjectPattern matches the outermost-looking JSON object (greedy).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// jsonArrayPattern matches the outermost-looking JSON array (greedy).
	jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON object or array out of an LLM response that wraps
// it in prose or a markdown fence, and drops trailing commas. It returns ""
// when nothing JSON-shaped is found.
func ExtractJSON(content string) string {
	var raw string
	if m := fencedJSONPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else if m := jsonObjectPattern.FindString(content); m != "" {
		raw = m
	} else if m := jsonArrayPattern.FindString(content); m != "" {
		raw = m
	}
	if raw == "" {
		return ""
	}
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

// ToJSON turns a completion's text content into a JSON document. Content that
// cannot be recovered as JSON is wrapped as {"output": content}.
func ToJSON(content string) json.RawMessage {
	trimmed := strings.TrimSpace(content)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	if extracted := ExtractJSON(trimmed); extracted != "" && json.Valid([]byte(extracted)) {
		return json.RawMessage(extracted)
	}
	wrapped, _ := json.Marshal(map[string]string{"output": content})
	return wrapped
}
