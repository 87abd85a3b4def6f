// Package gemini implements llm.Client using the Gemini generateContent REST API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/prompt"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash"
	// DefaultBaseURL is the public Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Client implements llm.Client for Gemini.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	gen     llm.GenerationConfig
	client  *http.Client
}

// New creates a client for the Gemini API.
func New(apiKey, model, baseURL string, gen llm.GenerationConfig, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		gen:     gen,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return "gemini" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate calls models/{model}:generateContent.
func (c *Client) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: p.User}}}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: c.gen.MaxOutputTokens,
			Temperature:     c.gen.Temperature,
			TopP:            c.gen.TopP,
			TopK:            c.gen.TopK,
		},
	}
	if p.System != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: p.System}}}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	var resp generateResponse
	err := llm.DoJSON(ctx, c.client, endpoint, map[string]string{"x-goog-api-key": c.apiKey}, req, &resp)
	if err != nil {
		return "", fmt.Errorf("gemini API: %w", err)
	}
	return extractText(resp)
}

func extractText(resp generateResponse) (string, error) {
	if r := resp.PromptFeedback.BlockReason; r != "" {
		return "", fmt.Errorf("gemini API: %w (%s)", llm.ErrBlocked, r)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini API: %w", llm.ErrEmptyResponse)
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		switch cand.FinishReason {
		case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "SPII":
			return "", fmt.Errorf("gemini API: %w (%s)", llm.ErrBlocked, cand.FinishReason)
		}
		return "", fmt.Errorf("gemini API: %w", llm.ErrEmptyResponse)
	}
	return text, nil
}
