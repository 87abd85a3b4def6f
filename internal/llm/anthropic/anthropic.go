// Package anthropic implements llm.Client on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/prompt"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// Client implements llm.Client using the official Anthropic SDK.
type Client struct {
	api   sdk.Client
	model string
	gen   llm.GenerationConfig
}

// New creates a client for the Anthropic API. baseURL overrides the API
// root, e.g. for a proxy; leave it empty for api.anthropic.com.
func New(apiKey, model, baseURL string, gen llm.GenerationConfig, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		// Provider calls are never retried; the user re-submits.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: sdk.NewClient(opts...), model: model, gen: gen}
}

// Name returns the provider name.
func (c *Client) Name() string { return "anthropic" }

func (c *Client) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	maxTokens := c.gen.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
		Temperature: sdk.Float(c.gen.Temperature),
	}
	if p.System != "" {
		params.System = []sdk.TextBlockParam{{Text: p.System}}
	}
	if c.gen.TopK > 0 {
		params.TopK = sdk.Int(int64(c.gen.TopK))
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("anthropic API: %w", &llm.StatusError{Code: apiErr.StatusCode, Body: apiErr.Error()})
		}
		return "", fmt.Errorf("anthropic API: %w", err)
	}
	if msg.StopReason == "refusal" {
		return "", fmt.Errorf("anthropic API: %w", llm.ErrBlocked)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("anthropic API: %w", llm.ErrEmptyResponse)
	}
	return text, nil
}
