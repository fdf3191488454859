package datagen

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testassist/internal/agent"
)

const userSchema = `{
  "type": "object",
  "required": ["email", "age"],
  "properties": {
    "email": {"type": "string", "minLength": 3},
    "age": {"type": "integer", "minimum": 18}
  }
}`

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user.schema.json")
	require.NoError(t, os.WriteFile(path, []byte(userSchema), 0644))
	return path
}

func TestSynthesize_KeepsValidRecords(t *testing.T) {
	mock := agent.NewMockAgent()
	mock.SetResponse(`{"items":[
		{"email":"a@example.com","age":30},
		{"email":"b@example.com","age":12},
		{"age":40},
		{"email":"c@example.com","age":18}
	]}`)
	out := filepath.Join(t.TempDir(), "data", "users.json")

	stats, err := New(mock).Synthesize(context.Background(), SynthesisRequest{SchemaPath: writeSchema(t), N: 4, OutFile: out})
	require.NoError(t, err)
	assert.Equal(t, Stats{Requested: 4, Generated: 4, Valid: 2}, stats)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "a@example.com", records[0]["email"])
	assert.Equal(t, "c@example.com", records[1]["email"])
	assert.Contains(t, string(data), "\n  {")

	completions := mock.Completions()
	require.Len(t, completions, 1)
	assert.Equal(t, systemPrompt, completions[0].System)
	assert.Contains(t, completions[0].User, "Schema:\n{\"type\":\"object\"")
	assert.True(t, strings.HasSuffix(completions[0].User, "\n\nGenerate 4 items."))
}

func TestSynthesize_DefaultCountAndNonArrayResponse(t *testing.T) {
	mock := agent.NewMockAgent()
	mock.SetResponse(`I could not do that.`)
	out := filepath.Join(t.TempDir(), "users.json")

	stats, err := New(mock).Synthesize(context.Background(), SynthesisRequest{SchemaPath: writeSchema(t), OutFile: out})
	require.NoError(t, err)
	assert.Equal(t, Stats{Requested: DefaultCount}, stats)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSynthesize_Errors(t *testing.T) {
	mock := agent.NewMockAgent()
	_, err := New(mock).Synthesize(context.Background(), SynthesisRequest{SchemaPath: "/nonexistent/schema.json", OutFile: "x"})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"type": 12}`), 0644))
	_, err = New(mock).Synthesize(context.Background(), SynthesisRequest{SchemaPath: bad, OutFile: "x"})
	assert.Error(t, err)

	mock.SetError(errors.New("rate limited"))
	_, err = New(mock).Synthesize(context.Background(), SynthesisRequest{SchemaPath: writeSchema(t), OutFile: filepath.Join(t.TempDir(), "o.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestItems(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"array", `[{"a":1},{"a":2}]`, 2},
		{"items field", `{"items":[1,2,3]}`, 3},
		{"output field", `{"output":[{}]}`, 1},
		{"output string", `{"output":"sorry"}`, 0},
		{"scalar", `42`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Items(json.RawMessage(tt.in)), tt.want)
		})
	}
}

func TestSynthesize_ValidatesDecodedNumbers(t *testing.T) {
	mock := agent.NewMockAgent()
	mock.SetResponse(`[
		{"email":"a@example.com","age":30.5},
		{"email":"b@example.com","age":9007199254740993},
		{"email":"c@example.com","age":21.0},
		{"email":"d@example.com","age":"21"}
	]`)
	out := filepath.Join(t.TempDir(), "users.json")

	stats, err := New(mock).Synthesize(context.Background(), SynthesisRequest{SchemaPath: writeSchema(t), N: 4, OutFile: out})
	require.NoError(t, err)
	assert.Equal(t, Stats{Requested: 4, Generated: 4, Valid: 2}, stats)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "9007199254740993")
	assert.Contains(t, string(data), "c@example.com")
	assert.NotContains(t, string(data), "a@example.com")
}

func TestDecode(t *testing.T) {
	v, err := decode(json.RawMessage(`{"age":18}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("18"), v.(map[string]any)["age"])

	_, err = decode(json.RawMessage(`{"age":`))
	assert.Error(t, err)
}
