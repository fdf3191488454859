package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Completion is one schema-constrained request: a system instruction, the
// user content and an optional JSON Schema the response must follow.
type Completion struct {
	System     string
	User       string
	Schema     map[string]any
	SchemaName string
	// OnChunk, when set, switches the request to streaming and receives each
	// content delta as it arrives. A retry re-streams from the start.
	OnChunk func(chunk string)
}

// JSONCompleter returns a JSON document for a completion. A response that is
// not valid JSON is wrapped as {"output": "<content>"}.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, c Completion) (json.RawMessage, error)
}

// Client is what every provider implementation offers.
type Client interface {
	JSONCompleter
}

// Config describes how to construct a provider client. The caller owns the
// client's lifecycle; nothing here is cached globally.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// NewAgent is a factory function that returns a Client based on the provider.
func NewAgent(cfg Config) (Client, error) {
	if cfg.Provider == "openrouter" && cfg.Model != "" && !strings.Contains(cfg.Model, "/") {
		cfg.Model = openRouterModel(cfg.Model)
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg), nil
	case "openrouter":
		return NewOpenRouterClient(cfg), nil
	case "ollama":
		return NewOllamaClient(cfg), nil
	case "mock":
		return NewMockAgent(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// openRouterModel prefixes bare model names with their vendor namespace.
func openRouterModel(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt-"):
		return "openai/" + model
	case strings.HasPrefix(model, "claude-"):
		return "anthropic/" + model
	case strings.HasPrefix(model, "gemini-"):
		return "google/" + model
	case strings.HasPrefix(model, "llama-"):
		return "meta-llama/" + model
	case strings.HasPrefix(model, "mistral-"), strings.HasPrefix(model, "mixtral-"):
		return "mistralai/" + model
	}
	return model
}
