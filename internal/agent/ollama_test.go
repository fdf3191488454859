package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClient_CompleteJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		fmt.Fprint(w, `{"message":{"content":"hello"},"done":true}`)
	}))
	defer server.Close()

	client := NewOllamaClient(Config{BaseURL: server.URL + "/", Model: "llama3"})
	raw, err := client.CompleteJSON(context.Background(), Completion{User: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"output":"hello"}`, string(raw))
}

func TestOllamaClient_CompleteJSON_Format(t *testing.T) {
	var formats []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		formats = append(formats, req.Format)
		fmt.Fprint(w, `{"message":{"content":"{\"markdown\":\"# ok\"}"},"done":true}`)
	}))
	defer server.Close()

	client := NewOllamaClient(Config{BaseURL: server.URL, Model: "llama3"})

	raw, err := client.CompleteJSON(context.Background(), Completion{User: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"markdown":"# ok"}`, string(raw))

	_, err = client.CompleteJSON(context.Background(), Completion{User: "x", Schema: map[string]any{"type": "object"}})
	require.NoError(t, err)

	require.Len(t, formats, 2)
	assert.Equal(t, "json", formats[0])
	assert.Equal(t, map[string]any{"type": "object"}, formats[1])
}

func TestOllamaClient_CompleteJSON_Streams(t *testing.T) {
	var req ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fmt.Fprintln(w, `{"message":{"content":"{\"a\":"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"1}"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer server.Close()

	client := NewOllamaClient(Config{BaseURL: server.URL, Model: "llama3"})
	var chunks []string
	raw, err := client.CompleteJSON(context.Background(), Completion{
		User:    "hi",
		OnChunk: func(s string) { chunks = append(chunks, s) },
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))
	assert.Equal(t, []string{`{"a":`, `1}`}, chunks)
	assert.True(t, req.Stream)
	assert.Equal(t, "json", req.Format)
}

func TestOllamaClient_MissingModel(t *testing.T) {
	client := NewOllamaClient(Config{})
	assert.Equal(t, defaultOllamaURL, client.baseURL)

	_, err := client.CompleteJSON(context.Background(), Completion{User: "hi"})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}
