package agent

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterClient implements Client for OpenRouter. The wire format is the
// OpenAI one plus attribution headers.
type OpenRouterClient struct {
	*OpenAIClient
}

// NewOpenRouterClient creates a new OpenRouter client
func NewOpenRouterClient(cfg Config) *OpenRouterClient {
	c := newOpenAICompatible("openrouter", cfg, openRouterURL)
	c.headers = map[string]string{
		"HTTP-Referer": "https://github.com/testassist/testassist",
		"X-Title":      "testassist",
	}
	return &OpenRouterClient{OpenAIClient: c}
}

// WithMockResponder sets a mock responder for testing
func (c *OpenRouterClient) WithMockResponder(fn func(string) (string, error)) *OpenRouterClient {
	c.OpenAIClient.WithMockResponder(fn)
	return c
}
