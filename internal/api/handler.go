// Package api provides HTTP handlers for the DevGenie API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/devgenie/internal/analysis"
	"github.com/ashureev/devgenie/internal/config"
	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/render"
	"github.com/ashureev/devgenie/internal/store"
	"github.com/ashureev/devgenie/internal/validate"
)

// Handler serves the analysis endpoints.
type Handler struct {
	svc  *analysis.Service
	repo store.Repository
	cfg  *config.Config
}

// NewHandler creates a new Handler.
func NewHandler(svc *analysis.Service, repo store.Repository, cfg *config.Config) *Handler {
	return &Handler{svc: svc, repo: repo, cfg: cfg}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// AnalysisView is an analysis as returned to clients.
type AnalysisView struct {
	*domain.Analysis
	ResultHTML  string `json:"result_html"`
	CodePreview string `json:"code_preview"`
	ModeLabel   string `json:"mode_label"`
}

const historyPreviewLength = 200

// NewAnalysisView renders a for the web UI.
func NewAnalysisView(a *domain.Analysis) AnalysisView {
	html, err := render.Markdown(a.Result)
	if err != nil {
		slog.Warn("Failed to render analysis markdown", "analysis_id", a.ID, "error", err)
	}
	return AnalysisView{
		Analysis:    a,
		ResultHTML:  html,
		CodePreview: a.Preview(historyPreviewLength),
		ModeLabel:   a.Mode.Label(),
	}
}

// StatusFor maps a service error to an HTTP status and user-facing message.
func StatusFor(err error) (int, string) {
	var me *analysis.ModelError
	var mbe *http.MaxBytesError
	switch {
	case errors.Is(err, validate.ErrEmptyCode),
		errors.Is(err, validate.ErrCodeTooLong),
		errors.Is(err, validate.ErrEmptyQuestion):
		return http.StatusBadRequest, validate.UserMessage(err)
	case errors.Is(err, domain.ErrUnknownMode),
		errors.Is(err, domain.ErrUnknownLanguage),
		errors.Is(err, domain.ErrUnknownOutputLanguage):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &mbe), errors.Is(err, validate.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, analysis.ErrNotFound):
		return http.StatusNotFound, "analysis not found"
	case errors.Is(err, analysis.ErrThreadBusy):
		return http.StatusConflict, err.Error()
	case errors.Is(err, analysis.ErrNoHistory), errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable, llm.UserMessage(err)
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, llm.UserMessage(err)
	case errors.As(err, &me):
		return http.StatusBadGateway, llm.UserMessage(me.Err)
	}
	return http.StatusInternalServerError, "internal error"
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		slog.Error("Request failed", "status", status, "error", err)
	}
	Error(w, status, msg)
}
