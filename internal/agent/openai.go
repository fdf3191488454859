package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient implements Client for OpenAI and any API speaking the same
// chat-completions dialect.
type OpenAIClient struct {
	BaseClient
	apiKey     string
	model      string
	httpClient *http.Client
	apiURL     string
	headers    map[string]string
	// mockResponder is used for testing to bypass real API calls
	mockResponder func(string) (string, error)
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg Config) *OpenAIClient {
	return newOpenAICompatible("openai", cfg, openAIURL)
}

func newOpenAICompatible(provider string, cfg Config, defaultURL string) *OpenAIClient {
	apiURL := cfg.BaseURL
	if apiURL == "" {
		apiURL = defaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		BaseClient: NewBaseClient(provider, cfg.MaxRetries),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
	}
}

// WithMockResponder sets a mock responder for testing
func (c *OpenAIClient) WithMockResponder(fn func(string) (string, error)) *OpenAIClient {
	c.mockResponder = fn
	return c
}

func (c *OpenAIClient) getConfig() HTTPClientConfig {
	return HTTPClientConfig{
		APIKey:        c.apiKey,
		Model:         c.model,
		APIURL:        c.apiURL,
		HTTPClient:    c.httpClient,
		MockResponder: c.mockResponder,
		Headers:       c.headers,
	}
}

// CompleteJSON sends a system+user completion constrained by response_format.
// It streams when req.OnChunk is set.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, req Completion) (json.RawMessage, error) {
	format := responseFormat(req)

	var (
		content string
		err     error
	)
	if req.OnChunk != nil {
		content, err = c.SendStreamWithRetry(ctx, req.User, func(ctx context.Context, p string, onChunk func(string)) (string, error) {
			return SendStreamOnce(ctx, c.getConfig(), userMessages(req.System, p), format, onChunk)
		}, req.OnChunk)
	} else {
		content, err = c.SendWithRetry(ctx, req.User, func(ctx context.Context, p string) (string, error) {
			return SendOnce(ctx, c.getConfig(), userMessages(req.System, p), format)
		})
	}
	if err != nil {
		return nil, err
	}
	return ToJSON(content), nil
}
