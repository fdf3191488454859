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
)

// HTTPClientConfig defines the configuration for the shared
// OpenAI-compatible chat completion logic.
type HTTPClientConfig struct {
	APIKey        string
	Model         string
	APIURL        string
	HTTPClient    *http.Client
	MockResponder func(string) (string, error)
	Headers       map[string]string
	MaxTokens     int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Stream         bool           `json:"stream,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

// userMessages builds the message list for a completion.
func userMessages(system, user string) []chatMessage {
	var msgs []chatMessage
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	return append(msgs, chatMessage{Role: "user", Content: user})
}

// responseFormat builds the OpenAI response_format for an optional schema.
func responseFormat(c Completion) map[string]any {
	if c.Schema == nil {
		return map[string]any{"type": "json_object"}
	}
	name := c.SchemaName
	if name == "" {
		name = "schema"
	}
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   name,
			"schema": c.Schema,
		},
	}
}

func newChatRequest(ctx context.Context, cfg HTTPClientConfig, body chatRequest) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// SendOnce performs a single non-streaming request
func SendOnce(ctx context.Context, cfg HTTPClientConfig, messages []chatMessage, format map[string]any) (string, error) {
	if cfg.MockResponder != nil {
		return cfg.MockResponder(messages[len(messages)-1].Content)
	}

	if cfg.APIKey == "" {
		return "", NewFatalError(fmt.Errorf("API key is required"))
	}

	req, err := newChatRequest(ctx, cfg, chatRequest{
		Model:          cfg.Model,
		Messages:       messages,
		MaxTokens:      cfg.MaxTokens,
		ResponseFormat: format,
	})
	if err != nil {
		return "", err
	}

	resp, err := cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return response.Choices[0].Message.Content, nil
}

// SendStreamOnce performs a single streaming request
func SendStreamOnce(ctx context.Context, cfg HTTPClientConfig, messages []chatMessage, format map[string]any, onChunk func(string)) (string, error) {
	if cfg.MockResponder != nil {
		resp, err := cfg.MockResponder(messages[len(messages)-1].Content)
		if err == nil && onChunk != nil {
			onChunk(resp)
		}
		return resp, err
	}

	if cfg.APIKey == "" {
		return "", NewFatalError(fmt.Errorf("API key is required"))
	}

	req, err := newChatRequest(ctx, cfg, chatRequest{
		Model:          cfg.Model,
		Messages:       messages,
		Stream:         true,
		MaxTokens:      cfg.MaxTokens,
		ResponseFormat: format,
	})
	if err != nil {
		return "", err
	}

	resp, err := cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var fullResponse strings.Builder
	reader := bufio.NewReader(resp.Body)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("error reading stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var streamResp struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}

		if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
			continue // Skip malformed lines
		}

		if len(streamResp.Choices) > 0 {
			content := streamResp.Choices[0].Delta.Content
			if content != "" {
				fullResponse.WriteString(content)
				if onChunk != nil {
					onChunk(content)
				}
			}
		}
	}

	return fullResponse.String(), nil
}
