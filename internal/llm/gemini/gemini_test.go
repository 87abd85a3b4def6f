package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/prompt"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "sys" {
			t.Errorf("system instruction = %+v", req.SystemInstruction)
		}
		if req.Contents[0].Parts[0].Text != "user" {
			t.Errorf("contents = %+v", req.Contents)
		}
		if req.GenerationConfig.MaxOutputTokens != 8192 || req.GenerationConfig.TopK != 40 {
			t.Errorf("generation config = %+v", req.GenerationConfig)
		}

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  hello "},{"text":"world\n"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := New("key", "test-model", srv.URL, llm.DefaultGenerationConfig(), time.Second)
	got, err := c.Generate(context.Background(), prompt.Prompt{System: "sys", User: "user"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "hello world" {
		t.Errorf("Generate = %q", got)
	}
}

func TestGenerateBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	c := New("key", "", srv.URL, llm.DefaultGenerationConfig(), time.Second)
	_, err := c.Generate(context.Background(), prompt.Prompt{User: "x"})
	if !errors.Is(err, llm.ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("key", "", srv.URL, llm.DefaultGenerationConfig(), time.Second)
	_, err := c.Generate(context.Background(), prompt.Prompt{User: "x"})
	if !errors.Is(err, llm.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestExtractTextEmpty(t *testing.T) {
	var resp generateResponse
	if _, err := extractText(resp); !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("no candidates: %v", err)
	}

	resp.Candidates = append(resp.Candidates, struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	}{FinishReason: "SAFETY"})
	if _, err := extractText(resp); !errors.Is(err, llm.ErrBlocked) {
		t.Errorf("safety finish: %v", err)
	}
}
