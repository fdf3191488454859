package generate

import (
	"context"
	"fmt"
	"strings"

	"testassist/internal/agent"
	"testassist/internal/artifact"
	"testassist/internal/prompts"
	"testassist/internal/telemetry"
)

// BackendConfig selects the generative backend for one request.
type BackendConfig struct {
	Provider string
	Model    string
}

// GenerationRequest is the input of one generation.
type GenerationRequest struct {
	StoryText     string
	OutputBaseDir string
	Backend       BackendConfig
	// OnChunk, when set, receives the backend response as it streams in.
	OnChunk func(chunk string)
}

// Requester turns a story into a classified artifact. It writes nothing.
type Requester struct {
	Agent agent.JSONCompleter
	// Prompt loads a prompt template; defaults to prompts.Get.
	Prompt func(name string, vars map[string]string) (string, error)
}

// NewRequester returns a Requester calling a.
func NewRequester(a agent.JSONCompleter) *Requester {
	return &Requester{Agent: a, Prompt: prompts.Get}
}

// UserContent is the user message sent for a story.
func UserContent(story string) string {
	return "USER STORY & AC:\n\n" + story + "\n\nFollow the instructions strictly."
}

// Request asks the backend for an artifact and classifies the response.
func (r *Requester) Request(ctx context.Context, req GenerationRequest) (artifact.Classified, error) {
	if strings.TrimSpace(req.StoryText) == "" {
		err := &artifact.ValidationError{Missing: []string{"storyText"}, Reason: "story is empty"}
		telemetry.LogError("Refusing to generate from an empty story", err)
		return artifact.Classified{}, err
	}
	slug := artifact.Slug(req.StoryText)
	if strings.Trim(slug, "-") == "" {
		err := &artifact.ValidationError{Missing: []string{"storyTitle"}, Reason: "the first line of the story names the output directory and has no letters or digits"}
		telemetry.LogError("Refusing to generate without a story title", err)
		return artifact.Classified{}, err
	}

	load := r.Prompt
	if load == nil {
		load = prompts.Get
	}
	system, err := load(prompts.Gherkin, nil)
	if err != nil {
		return artifact.Classified{}, fmt.Errorf("load system prompt: %w", err)
	}

	telemetry.LogInfo("Requesting test artifacts",
		"provider", req.Backend.Provider,
		"model", req.Backend.Model,
		"slug", slug)

	raw, err := r.Agent.CompleteJSON(ctx, agent.Completion{
		System:     system,
		User:       UserContent(req.StoryText),
		Schema:     artifact.ResponseSchema(),
		SchemaName: "classified_artifact",
		OnChunk:    req.OnChunk,
	})
	if err != nil {
		telemetry.TrackGeneration("", false)
		telemetry.LogError("Generative backend call failed", err, "provider", req.Backend.Provider)
		return artifact.Classified{}, fmt.Errorf("generative backend: %w", err)
	}

	c, err := artifact.Classify(raw)
	if err != nil {
		telemetry.TrackGeneration("", false)
		telemetry.LogError("AI response missing required fields", err, "response", truncate(string(raw), 500))
		return artifact.Classified{}, err
	}

	telemetry.TrackGeneration(string(c.Type), true)
	telemetry.LogInfo("Classified generated artifact", "test_type", c.Type.Display())
	return c, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
