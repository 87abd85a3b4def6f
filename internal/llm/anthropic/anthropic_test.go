package anthropic

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

func newServer(t *testing.T, status int, body string, check func(*http.Request, map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	srv := newServer(t, http.StatusOK,
		`{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[{"type":"text","text":"answer"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`,
		func(r *http.Request, req map[string]any) {
			if r.URL.Path != "/v1/messages" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if r.Header.Get("X-Api-Key") != "ak" {
				t.Errorf("x-api-key = %q", r.Header.Get("X-Api-Key"))
			}
			if req["model"] != DefaultModel {
				t.Errorf("model = %v", req["model"])
			}
			sys, _ := req["system"].([]any)
			if len(sys) != 1 {
				t.Errorf("system = %v", req["system"])
			}
		})

	c := New("ak", "", srv.URL, llm.DefaultGenerationConfig(), time.Second)
	got, err := c.Generate(context.Background(), prompt.Prompt{System: "sys", User: "u"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "answer" {
		t.Errorf("Generate = %q", got)
	}
}

func TestGenerateEmpty(t *testing.T) {
	srv := newServer(t, http.StatusOK,
		`{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn"}`, nil)

	c := New("ak", "", srv.URL, llm.DefaultGenerationConfig(), time.Second)
	if _, err := c.Generate(context.Background(), prompt.Prompt{User: "u"}); !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("error = %v", err)
	}
}

func TestGenerateRefusal(t *testing.T) {
	srv := newServer(t, http.StatusOK,
		`{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"refusal"}`, nil)

	c := New("ak", "", srv.URL, llm.DefaultGenerationConfig(), time.Second)
	if _, err := c.Generate(context.Background(), prompt.Prompt{User: "u"}); !errors.Is(err, llm.ErrBlocked) {
		t.Errorf("error = %v", err)
	}
}

func TestGenerateStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, llm.ErrRateLimited},
		{http.StatusUnauthorized, llm.ErrAuth},
	}
	for _, tt := range tests {
		srv := newServer(t, tt.status, `{"type":"error","error":{"type":"x","message":"nope"}}`, nil)
		c := New("ak", "", srv.URL, llm.DefaultGenerationConfig(), time.Second)
		if _, err := c.Generate(context.Background(), prompt.Prompt{User: "u"}); !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
	}
}
