package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/devgenie/internal/analysis"
	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/identity"
	"github.com/ashureev/devgenie/internal/prompt"
	"github.com/ashureev/devgenie/internal/store"
)

type fakeClient struct{ reply string }

func (c fakeClient) Generate(context.Context, prompt.Prompt) (string, error) { return c.reply, nil }
func (c fakeClient) Name() string { return "fake" }

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newTestServer(t *testing.T, limiter Limiter) (*httptest.Server, *Conns) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "live.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	err = repo.SaveAnalysis(context.Background(), &domain.Analysis{
		ID:             "root",
		UserID:         "u1",
		SessionID:      "s1",
		Mode:           domain.ModeExplain,
		Language:       domain.LanguagePython,
		OutputLanguage: domain.OutputOriginal,
		Code:           "x = 1",
		Result:         "Assigns one.",
		CreatedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	svc := analysis.NewService(fakeClient{reply: "Because."}, repo, analysis.Options{})
	conns := NewConns()
	h := NewHandler(svc, limiter, conns, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), "u1", "s1")))
	}))
	t.Cleanup(srv.Close)
	return srv, conns
}

func dial(t *testing.T, srv *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "") })
	return ws, ctx
}

func read(t *testing.T, ctx context.Context, ws *websocket.Conn) Frame {
	t.Helper()
	var f Frame
	if err := wsjson.Read(ctx, ws, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestPingPong(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ws, ctx := dial(t, srv)

	if err := wsjson.Write(ctx, ws, Frame{Type: TypePing}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := read(t, ctx, ws); f.Type != TypePong {
		t.Errorf("frame type = %q, want pong", f.Type)
	}
}

func TestAskAnswers(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ws, ctx := dial(t, srv)

	if err := wsjson.Write(ctx, ws, Frame{Type: TypeAsk, AnalysisID: "root", Question: "Why one?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := read(t, ctx, ws); f.Type != TypeThinking {
		t.Fatalf("first frame = %q, want thinking", f.Type)
	}
	f := read(t, ctx, ws)
	if f.Type != TypeAnswer || f.Analysis == nil {
		t.Fatalf("second frame = %+v, want answer", f)
	}
	if f.Analysis.Result != "Because." || f.Analysis.ParentID != "root" || f.Analysis.ResultHTML == "" {
		t.Errorf("answer = %+v", f.Analysis)
	}
}

func TestAskErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ws, ctx := dial(t, srv)

	_ = wsjson.Write(ctx, ws, Frame{Type: TypeAsk, AnalysisID: "missing", Question: "q"})
	_ = read(t, ctx, ws) // thinking
	if f := read(t, ctx, ws); f.Type != TypeError || f.Error != "analysis not found" {
		t.Errorf("frame = %+v, want not found error", f)
	}

	_ = wsjson.Write(ctx, ws, Frame{Type: TypeAsk, AnalysisID: "root", OutputLanguage: "xx"})
	if f := read(t, ctx, ws); f.Type != TypeError {
		t.Errorf("frame = %+v, want error for bad output language", f)
	}

	_ = wsjson.Write(ctx, ws, Frame{Type: "shout"})
	if f := read(t, ctx, ws); f.Type != TypeError {
		t.Errorf("frame = %+v, want error for unknown type", f)
	}
}

func TestAskRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, denyAll{})
	ws, ctx := dial(t, srv)

	_ = wsjson.Write(ctx, ws, Frame{Type: TypeAsk, AnalysisID: "root", Question: "q"})
	if f := read(t, ctx, ws); f.Type != TypeError || !strings.Contains(f.Error, "Too many requests") {
		t.Errorf("frame = %+v, want rate limit error", f)
	}
}

func TestConnsReplaceAndUnregister(t *testing.T) {
	srv, conns := newTestServer(t, nil)
	ws, ctx := dial(t, srv)

	// A round trip guarantees the server side has registered.
	_ = wsjson.Write(ctx, ws, Frame{Type: TypePing})
	_ = read(t, ctx, ws)
	if n := conns.Len(); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}

	ws2, ctx2 := dial(t, srv)
	_ = wsjson.Write(ctx2, ws2, Frame{Type: TypePing})
	_ = read(t, ctx2, ws2)
	if n := conns.Len(); n != 1 {
		t.Errorf("Len after replacement = %d, want 1", n)
	}

	// The replaced connection is closed by the server.
	var f Frame
	if err := wsjson.Read(ctx, ws, &f); err == nil {
		t.Error("replaced connection should be closed")
	}
}

func TestHostPatterns(t *testing.T) {
	got := hostPatterns([]string{"https://app.example:8443", "*.example.com", ""})
	if len(got) != 2 || got[0] != "app.example:8443" || got[1] != "*.example.com" {
		t.Errorf("hostPatterns = %v", got)
	}
	if got := hostPatterns(nil); len(got) != 1 || got[0] != "*" {
		t.Errorf("hostPatterns(nil) = %v", got)
	}
}
