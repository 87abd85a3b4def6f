// Package ollama implements llm.Client for a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JexSrs/go-ollama"

	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/prompt"
)

const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3.1"
)

// Client implements llm.Client using Ollama's generate endpoint.
type Client struct {
	client *ollama.Ollama
	model  string
	host   string
	opts   ollama.Options
}

// New creates a client for the Ollama server at host. timeout bounds each
// HTTP call so an abandoned generation cannot hang forever.
func New(host, model string, gen llm.GenerationConfig, timeout time.Duration) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client := ollama.New(*u)
	client.Http = &http.Client{Timeout: timeout}
	return &Client{
		client: client,
		model:  model,
		host:   host,
		opts:   options(gen),
	}, nil
}

func options(gen llm.GenerationConfig) ollama.Options {
	var o ollama.Options
	temp := gen.Temperature
	o.Temperature = &temp
	if gen.TopP > 0 {
		topP := gen.TopP
		o.TopP = &topP
	}
	if gen.TopK > 0 {
		topK := gen.TopK
		o.TopK = &topK
	}
	if gen.MaxOutputTokens > 0 {
		n := gen.MaxOutputTokens
		o.NumPredict = &n
	}
	return o
}

// Name returns the provider name.
func (c *Client) Name() string { return "ollama" }

type result struct {
	text string
	err  error
}

// Generate runs a single non-streaming generation. The underlying library has
// no context support, so cancellation abandons the in-flight call, which then
// ends at the HTTP client timeout.
func (c *Client) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	done := make(chan result, 1)
	go func() {
		text, err := c.generate(p)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("ollama API: %w", ctx.Err())
	case r := <-done:
		return r.text, r.err
	}
}

func (c *Client) generate(p prompt.Prompt) (string, error) {
	res, err := c.client.Generate(
		c.client.Generate.WithModel(c.model),
		c.client.Generate.WithSystem(p.System),
		c.client.Generate.WithPrompt(p.User),
		c.client.Generate.WithOptions(c.opts),
	)
	if err != nil {
		return "", fmt.Errorf("ollama API at %s: %w", c.host, err)
	}
	if !res.Done {
		return "", fmt.Errorf("ollama API: generation did not complete")
	}
	text := strings.TrimSpace(res.Response)
	if text == "" {
		return "", fmt.Errorf("ollama API: %w", llm.ErrEmptyResponse)
	}
	return text, nil
}
