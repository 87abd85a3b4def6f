// Package openai implements llm.Client using an OpenAI-compatible Chat
// Completions API. OpenRouter is reached through the same client with its base URL.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/prompt"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "gpt-4o"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenRouterModel   = "google/gemini-2.0-flash-001"
)

// Client implements llm.Client for OpenAI-compatible endpoints.
type Client struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	headers map[string]string
	gen     llm.GenerationConfig
	client  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithName overrides the provider name reported by Name.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithHeader adds a header to every request, e.g. OpenRouter's X-Title.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.headers[key] = value
		}
	}
}

// New creates a client. Empty model and baseURL use the OpenAI defaults.
func New(apiKey, model, baseURL string, gen llm.GenerationConfig, timeout time.Duration, opts ...Option) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	c := &Client{
		name:    "openai",
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: map[string]string{},
		gen:     gen,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate calls /chat/completions.
func (c *Client) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	var msgs []message
	if p.System != "" {
		msgs = append(msgs, message{Role: "system", Content: p.System})
	}
	msgs = append(msgs, message{Role: "user", Content: p.User})

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.gen.MaxOutputTokens,
		Temperature: c.gen.Temperature,
		TopP:        c.gen.TopP,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	for k, v := range c.headers {
		headers[k] = v
	}

	var result chatResponse
	if err := llm.DoJSON(ctx, c.client, c.baseURL+"/chat/completions", headers, reqBody, &result); err != nil {
		return "", fmt.Errorf("%s API: %w", c.name, err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s API: %w", c.name, llm.ErrEmptyResponse)
	}
	choice := result.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%s API: %w", c.name, llm.ErrBlocked)
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s API: %w", c.name, llm.ErrEmptyResponse)
	}
	return text, nil
}
