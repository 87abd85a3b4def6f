package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/devgenie/internal/analysis"
	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/identity"
	"github.com/ashureev/devgenie/internal/validate"
)

// RegisterRoutes registers the read-only and history routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/options", h.Options)
	r.Get("/api/me", h.GetMe)
	r.Get("/api/history", h.History)
	r.Delete("/api/history", h.ClearHistory)
	r.Get("/api/analyses/{id}", h.GetAnalysis)
	r.Get("/api/analyses/{id}/report", h.Report)
	r.Post("/api/upload", h.Upload)
}

// RegisterModelRoutes registers the routes that call the model. Callers
// typically wrap them with a rate limiter.
func (h *Handler) RegisterModelRoutes(r chi.Router) {
	r.Post("/api/analyze", h.Analyze)
	r.Post("/api/analyses/{id}/followup", h.FollowUp)
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options returns the selectable modes, languages and input limits.
func (h *Handler) Options(w http.ResponseWriter, _ *http.Request) {
	modes := make([]option, 0, len(domain.Modes))
	for _, m := range domain.Modes {
		modes = append(modes, option{string(m), m.Label()})
	}
	langs := make([]option, 0, len(domain.CodeLanguages))
	for _, l := range domain.CodeLanguages {
		langs = append(langs, option{string(l), l.Label()})
	}
	outs := make([]option, 0, len(domain.OutputLanguages))
	for _, o := range domain.OutputLanguages {
		outs = append(outs, option{string(o), o.Label()})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"modes":            modes,
		"code_languages":   langs,
		"output_languages": outs,
		"limits": map[string]interface{}{
			"max_code_length":  h.cfg.Limits.MaxCodeLength,
			"max_file_size":    h.cfg.Limits.MaxFileSize,
			"max_upload_files": h.cfg.Limits.MaxUploadFiles,
		},
		"allowed_extensions": validate.AllowedExtensions,
		"provider":           h.svc.Provider(),
		"configured":         h.svc.Configured(),
	})
}

// GetMe returns the caller's anonymous identity and how long their history lives.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	user, err := h.repo.GetUser(ctx, userID)
	if err != nil || user == nil {
		slog.Error("Failed to load user", "error", err, "user_id", userID)
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"username":    user.Username,
		"session_id":  identity.SessionIDFromContext(ctx),
		"history_ttl": int64(user.SessionTTL(h.cfg.SessionTTL).Seconds()),
	})
}

type analyzeRequest struct {
	Code           string `json:"code"`
	Mode           string `json:"mode"`
	Language       string `json:"language"`
	OutputLanguage string `json:"output_language"`
	FileName       string `json:"file_name"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Limits.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if status, msg := StatusFor(err); status == http.StatusRequestEntityTooLarge {
			Error(w, status, msg)
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Analyze runs a new analysis.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}

	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	lang, err := domain.ParseCodeLanguage(req.Language)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	outLang, err := domain.ParseOutputLanguage(req.OutputLanguage)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ctx := r.Context()
	a, err := h.svc.Analyze(ctx, analysis.Request{
		UserID:         identity.UserIDFromContext(ctx),
		SessionID:      identity.SessionIDFromContext(ctx),
		Code:           req.Code,
		FileName:       req.FileName,
		Mode:           mode,
		Language:       lang,
		OutputLanguage: outLang,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, NewAnalysisView(a))
}

type followUpRequest struct {
	Question       string `json:"question"`
	OutputLanguage string `json:"output_language"`
}

// FollowUp answers a question about an earlier analysis.
func (h *Handler) FollowUp(w http.ResponseWriter, r *http.Request) {
	var req followUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	// An empty output language keeps the one chosen for the original analysis.
	var outLang domain.OutputLanguage
	if req.OutputLanguage != "" {
		var err error
		if outLang, err = domain.ParseOutputLanguage(req.OutputLanguage); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	ctx := r.Context()
	a, err := h.svc.FollowUp(ctx, analysis.FollowUpRequest{
		UserID:         identity.UserIDFromContext(ctx),
		SessionID:      identity.SessionIDFromContext(ctx),
		AnalysisID:     chi.URLParam(r, "id"),
		Question:       req.Question,
		OutputLanguage: outLang,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, NewAnalysisView(a))
}

// History returns the session's recent analyses, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.svc.History(ctx, identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]AnalysisView, 0, len(list))
	for _, a := range list {
		views = append(views, NewAnalysisView(a))
	}
	JSON(w, http.StatusOK, map[string]interface{}{"history": views})
}

// ClearHistory deletes the session's history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.svc.Clear(ctx, identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"status": "cleared", "deleted": n})
}

// GetAnalysis returns one analysis with its thread.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	thread, err := h.svc.Thread(ctx, identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	followUps := make([]AnalysisView, 0, len(thread.FollowUps))
	for _, f := range thread.FollowUps {
		followUps = append(followUps, NewAnalysisView(f))
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"analysis":  NewAnalysisView(thread.Root),
		"followups": followUps,
	})
}

// Report downloads an analysis as markdown.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := h.svc.Get(ctx, identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	body, filename := analysis.Report(a)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Debug("Failed to write report", "analysis_id", a.ID, "error", err)
	}
}
