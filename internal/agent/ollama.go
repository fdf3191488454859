package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaClient implements Client for a local Ollama service
type OllamaClient struct {
	BaseClient
	baseURL    string
	model      string
	httpClient *http.Client
	// mockResponder is used for testing to bypass real API calls
	mockResponder func(string) (string, error)
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   any           `json:"format,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// NewOllamaClient creates a new Ollama client. BaseURL defaults to
// http://localhost:11434.
func NewOllamaClient(cfg Config) *OllamaClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		BaseClient: NewBaseClient("ollama", cfg.MaxRetries),
		baseURL:    baseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithMockResponder sets a mock responder for testing
func (c *OllamaClient) WithMockResponder(fn func(string) (string, error)) *OllamaClient {
	c.mockResponder = fn
	return c
}

// CompleteJSON asks Ollama for a JSON response. The schema, when present, is
// passed as the structured-output format. With req.OnChunk set the
// newline-delimited stream is read instead.
func (c *OllamaClient) CompleteJSON(ctx context.Context, req Completion) (json.RawMessage, error) {
	var format any = "json"
	if req.Schema != nil {
		format = req.Schema
	}

	var (
		content string
		err     error
	)
	if req.OnChunk != nil {
		content, err = c.SendStreamWithRetry(ctx, req.User, func(ctx context.Context, p string, onChunk func(string)) (string, error) {
			return c.sendStreamOnce(ctx, userMessages(req.System, p), format, onChunk)
		}, req.OnChunk)
	} else {
		content, err = c.SendWithRetry(ctx, req.User, func(ctx context.Context, p string) (string, error) {
			return c.sendOnce(ctx, userMessages(req.System, p), format)
		})
	}
	if err != nil {
		return nil, err
	}
	return ToJSON(content), nil
}

func (c *OllamaClient) newRequest(ctx context.Context, body ollamaRequest) (*http.Request, error) {
	if c.model == "" {
		return nil, NewFatalError(fmt.Errorf("model is required for Ollama"))
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *OllamaClient) sendOnce(ctx context.Context, messages []chatMessage, format any) (string, error) {
	if c.mockResponder != nil {
		return c.mockResponder(messages[len(messages)-1].Content)
	}

	req, err := c.newRequest(ctx, ollamaRequest{Model: c.model, Messages: messages, Format: format})
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var response ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode Ollama response: %w", err)
	}
	return response.Message.Content, nil
}

func (c *OllamaClient) sendStreamOnce(ctx context.Context, messages []chatMessage, format any, onChunk func(string)) (string, error) {
	if c.mockResponder != nil {
		resp, err := c.mockResponder(messages[len(messages)-1].Content)
		if err == nil && onChunk != nil {
			onChunk(resp)
		}
		return resp, err
	}

	req, err := c.newRequest(ctx, ollamaRequest{Model: c.model, Messages: messages, Stream: true, Format: format})
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Message.Content != "" {
			full.WriteString(chunk.Message.Content)
			if onChunk != nil {
				onChunk(chunk.Message.Content)
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading stream: %w", err)
	}
	return full.String(), nil
}
