package generate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testassist/internal/agent"
	"testassist/internal/artifact"
)

// spyCompleter records completions and replays a canned response.
type spyCompleter struct {
	calls    []agent.Completion
	response string
	err      error
}

func (s *spyCompleter) CompleteJSON(ctx context.Context, c agent.Completion) (json.RawMessage, error) {
	s.calls = append(s.calls, c)
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.response), nil
}

func TestRequester_Request(t *testing.T) {
	spy := &spyCompleter{response: `{"testType":"api","featureText":"Feature: w","stepsText":"s"}`}
	r := NewRequester(spy)
	r.Prompt = func(name string, vars map[string]string) (string, error) { return "SYSTEM:" + name, nil }

	got, err := r.Request(context.Background(), GenerationRequest{
		StoryText: "As a user I want to search weather by city",
		Backend:   BackendConfig{Provider: "mock"},
	})
	require.NoError(t, err)
	assert.Equal(t, artifact.API, got.Type)

	require.Len(t, spy.calls, 1)
	call := spy.calls[0]
	assert.Equal(t, "SYSTEM:gherkin", call.System)
	assert.Equal(t, "USER STORY & AC:\n\nAs a user I want to search weather by city\n\nFollow the instructions strictly.", call.User)
	assert.Equal(t, artifact.ResponseSchema(), call.Schema)
}

func TestRequester_ValidationError(t *testing.T) {
	spy := &spyCompleter{response: `{"testType":"ui","featureText":"f","stepsText":"s"}`}
	r := NewRequester(spy)

	_, err := r.Request(context.Background(), GenerationRequest{StoryText: "Login"})
	var ve *artifact.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"pagesText"}, ve.Missing)
}

func TestRequester_EmptyStorySkipsBackend(t *testing.T) {
	spy := &spyCompleter{}
	r := NewRequester(spy)

	_, err := r.Request(context.Background(), GenerationRequest{StoryText: " \n "})
	var ve *artifact.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Empty(t, spy.calls)
}

func TestRequester_BackendError(t *testing.T) {
	spy := &spyCompleter{err: errors.New("connection refused")}
	r := NewRequester(spy)

	_, err := r.Request(context.Background(), GenerationRequest{StoryText: "story"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRequester_WithMockAgent(t *testing.T) {
	m := agent.NewMockAgent()
	require.NoError(t, m.SetJSON(map[string]string{
		"testType":    "ui",
		"featureText": "Feature: login",
		"stepsText":   "steps",
		"pagesText":   "pages",
	}))

	got, err := NewRequester(m).Request(context.Background(), GenerationRequest{StoryText: "Login"})
	require.NoError(t, err)
	assert.Equal(t, artifact.UI, got.Type)
	assert.Equal(t, "pages", got.PagesText)
	assert.Contains(t, m.Completions()[0].System, "Gherkin")
}

func TestRequester_UntitledStorySkipsBackend(t *testing.T) {
	for _, story := range []string{"\nAs a user I want to log in", "!!!\nAs a user I want to log in"} {
		spy := &spyCompleter{}
		_, err := NewRequester(spy).Request(context.Background(), GenerationRequest{StoryText: story})

		var ve *artifact.ValidationError
		require.True(t, errors.As(err, &ve), story)
		assert.Equal(t, []string{"storyTitle"}, ve.Missing)
		assert.Empty(t, spy.calls)
	}
}

func TestRequester_StreamsToOnChunk(t *testing.T) {
	m := agent.NewMockAgent()
	require.NoError(t, m.SetJSON(map[string]string{"testType": "api", "featureText": "f", "stepsText": "s"}))

	var received int
	_, err := NewRequester(m).Request(context.Background(), GenerationRequest{
		StoryText: "Weather",
		OnChunk:   func(chunk string) { received += len(chunk) },
	})
	require.NoError(t, err)
	assert.Positive(t, received)
	require.Len(t, m.Completions(), 1)
	assert.NotNil(t, m.Completions()[0].OnChunk)
}
