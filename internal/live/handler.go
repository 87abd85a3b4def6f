package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/devgenie/internal/analysis"
	"github.com/ashureev/devgenie/internal/api"
	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/identity"
)

const (
	writeTimeout = 10 * time.Second
	readLimit    = 64 << 10
)

// Frame types.
const (
	TypeAsk      = "ask"
	TypePing     = "ping"
	TypePong     = "pong"
	TypeThinking = "thinking"
	TypeAnswer   = "answer"
	TypeError    = "error"
)

// Frame is a message in either direction.
type Frame struct {
	Type           string            `json:"type"`
	AnalysisID     string            `json:"analysis_id,omitempty"`
	Question       string            `json:"question,omitempty"`
	OutputLanguage string            `json:"output_language,omitempty"`
	Analysis       *api.AnalysisView `json:"analysis,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// Limiter decides whether a user may make another model call.
type Limiter interface {
	Allow(key string) bool
}

// Handler upgrades /ws/followup and answers follow-up questions on it.
type Handler struct {
	svc            *analysis.Service
	limiter        Limiter
	conns          *Conns
	originPatterns []string
}

// NewHandler creates a follow-up WebSocket handler. limiter may be nil.
func NewHandler(svc *analysis.Service, limiter Limiter, conns *Conns, originPatterns []string) *Handler {
	return &Handler{svc: svc, limiter: limiter, conns: conns, originPatterns: hostPatterns(originPatterns)}
}

// hostPatterns turns configured CORS origins into the host patterns
// websocket.Accept matches against.
func hostPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()
	ws.SetReadLimit(readLimit)

	if h.conns != nil {
		h.conns.Register(userID, sessionID, ws)
		defer h.conns.Unregister(userID, sessionID, ws)
	}

	slog.Info("Live follow-up connected", "user_id", userID, "session_id", sessionID)
	h.readLoop(r.Context(), ws, userID, sessionID)
	slog.Info("Live follow-up disconnected", "user_id", userID, "session_id", sessionID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, userID, sessionID string) {
	for {
		var in Frame
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var err error
		switch in.Type {
		case TypePing:
			err = write(ctx, ws, Frame{Type: TypePong})
		case TypeAsk:
			err = h.ask(ctx, ws, userID, sessionID, in)
		default:
			err = write(ctx, ws, Frame{Type: TypeError, Error: "unknown message type"})
		}
		if err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", userID)
			return
		}
	}
}

func (h *Handler) ask(ctx context.Context, ws *websocket.Conn, userID, sessionID string, in Frame) error {
	if h.limiter != nil && !h.limiter.Allow(userID) {
		return write(ctx, ws, Frame{Type: TypeError, Error: "Too many requests. Please wait a moment and try again."})
	}

	var outLang domain.OutputLanguage
	if in.OutputLanguage != "" {
		var err error
		if outLang, err = domain.ParseOutputLanguage(in.OutputLanguage); err != nil {
			return write(ctx, ws, Frame{Type: TypeError, AnalysisID: in.AnalysisID, Error: err.Error()})
		}
	}

	if err := write(ctx, ws, Frame{Type: TypeThinking, AnalysisID: in.AnalysisID}); err != nil {
		return err
	}

	a, err := h.svc.FollowUp(ctx, analysis.FollowUpRequest{
		UserID:         userID,
		SessionID:      sessionID,
		AnalysisID:     in.AnalysisID,
		Question:       in.Question,
		OutputLanguage: outLang,
	})
	if err != nil {
		_, msg := api.StatusFor(err)
		return write(ctx, ws, Frame{Type: TypeError, AnalysisID: in.AnalysisID, Error: msg})
	}

	view := api.NewAnalysisView(a)
	return write(ctx, ws, Frame{Type: TypeAnswer, AnalysisID: a.ParentID, Analysis: &view})
}

func write(ctx context.Context, ws *websocket.Conn, f Frame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, f)
}
