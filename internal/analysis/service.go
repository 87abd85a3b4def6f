// Package analysis runs code analyses against the model and keeps session history.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/devgenie/internal/detect"
	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/prompt"
	"github.com/ashureev/devgenie/internal/shared"
	"github.com/ashureev/devgenie/internal/store"
	"github.com/ashureev/devgenie/internal/validate"
)

// maxThreadTurns bounds how many earlier follow-ups are replayed into a prompt.
const maxThreadTurns = 5

var (
	// ErrNotFound is returned when an analysis does not exist in the caller's session.
	ErrNotFound = errors.New("analysis not found")
	// ErrNoHistory is returned for history operations on a service without a store.
	ErrNoHistory = errors.New("history is not available")
	// ErrThreadBusy is returned when a follow-up on the same thread is already running.
	ErrThreadBusy = errors.New("a follow-up on this analysis is already in progress")
)

// ModelError wraps a failed model call so callers can tell it apart from input errors.
type ModelError struct {
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Options configures a Service.
type Options struct {
	MaxCodeLength int
	HistoryLimit  int
	Timeout       time.Duration
	SaveRetries   int
	RetryDelay    time.Duration
}

// Service runs analyses and follow-ups.
type Service struct {
	client llm.Client
	repo   store.Repository
	opts   Options
	now    func() time.Time
	newID  func() string

	// busy holds the root IDs of threads with a follow-up in flight.
	busyMu sync.Mutex
	busy   map[string]struct{}
}

// NewService creates a Service. repo may be nil, in which case analyses are
// not persisted and follow-ups are unavailable.
func NewService(client llm.Client, repo store.Repository, opts Options) *Service {
	if opts.MaxCodeLength <= 0 {
		opts.MaxCodeLength = validate.DefaultMaxCodeLength
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	return &Service{
		client: client,
		repo:   repo,
		opts:   opts,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		busy:   make(map[string]struct{}),
	}
}

// Provider returns the name of the model provider.
func (s *Service) Provider() string { return s.client.Name() }

// Configured reports whether the model client has credentials.
func (s *Service) Configured() bool { return llm.IsConfigured(s.client) }

// Request is a new analysis submission.
type Request struct {
	UserID         string
	SessionID      string
	Code           string
	FileName       string
	Mode           domain.Mode
	Language       domain.CodeLanguage
	OutputLanguage domain.OutputLanguage
}

// FollowUpRequest asks a question about an earlier analysis.
type FollowUpRequest struct {
	UserID         string
	SessionID      string
	AnalysisID     string
	Question       string
	OutputLanguage domain.OutputLanguage
}

// Thread is a root analysis with its follow-ups, oldest first.
type Thread struct {
	Root      *domain.Analysis   `json:"root"`
	FollowUps []*domain.Analysis `json:"followups"`
}

// Analyze validates the submission, calls the model and records the result.
func (s *Service) Analyze(ctx context.Context, req Request) (*domain.Analysis, error) {
	warnings, err := validate.Code(req.Code, s.opts.MaxCodeLength)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		slog.Warn("Suspicious code pattern detected", "user_id", req.UserID, "session_id", req.SessionID)
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ModeExplain
	}
	lang := detect.Resolve(req.Language, req.FileName, req.Code)
	outLang := req.OutputLanguage
	if outLang == "" {
		outLang = domain.OutputOriginal
	}

	result, err := s.generate(ctx, prompt.Request{
		Mode:           mode,
		Language:       lang,
		OutputLanguage: outLang,
		Code:           req.Code,
	})
	if err != nil {
		return nil, err
	}

	a := &domain.Analysis{
		ID:             s.newID(),
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		Mode:           mode,
		Language:       lang,
		OutputLanguage: outLang,
		FileName:       req.FileName,
		Code:           req.Code,
		Result:         result,
		Provider:       s.client.Name(),
		Warnings:       warnings,
		CreatedAt:      s.now(),
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}

	slog.Info("Analysis complete",
		"user_id", req.UserID,
		"session_id", req.SessionID,
		"analysis_id", a.ID,
		"mode", mode,
		"language", lang,
		"provider", a.Provider,
	)
	return a, nil
}

// FollowUp answers a question about an earlier analysis in the same session.
// Follow-ups always attach to the root analysis of the thread.
func (s *Service) FollowUp(ctx context.Context, req FollowUpRequest) (*domain.Analysis, error) {
	if s.repo == nil {
		return nil, ErrNoHistory
	}
	if err := validate.Question(req.Question); err != nil {
		return nil, err
	}

	thread, err := s.Thread(ctx, req.UserID, req.SessionID, req.AnalysisID)
	if err != nil {
		return nil, err
	}
	root := thread.Root

	if !s.acquireThread(root.ID) {
		return nil, ErrThreadBusy
	}
	defer s.releaseThread(root.ID)

	var turns []prompt.Turn
	prior := thread.FollowUps
	if len(prior) > maxThreadTurns {
		prior = prior[len(prior)-maxThreadTurns:]
	}
	for _, f := range prior {
		turns = append(turns, prompt.Turn{Question: f.Question, Answer: f.Result})
	}

	outLang := req.OutputLanguage
	if outLang == "" {
		outLang = root.OutputLanguage
	}
	question := strings.TrimSpace(req.Question)

	result, err := s.generate(ctx, prompt.Request{
		Mode:           domain.ModeFollowUp,
		Language:       root.Language,
		OutputLanguage: outLang,
		Code:           root.Code,
		Question:       question,
		PriorMode:      root.Mode,
		PriorResult:    root.Result,
		History:        turns,
	})
	if err != nil {
		return nil, err
	}

	a := &domain.Analysis{
		ID:             s.newID(),
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		ParentID:       root.ID,
		Mode:           domain.ModeFollowUp,
		Language:       root.Language,
		OutputLanguage: outLang,
		FileName:       root.FileName,
		Code:           root.Code,
		Question:       question,
		Result:         result,
		Provider:       s.client.Name(),
		CreatedAt:      s.now(),
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}

	slog.Info("Follow-up answered",
		"user_id", req.UserID,
		"session_id", req.SessionID,
		"analysis_id", a.ID,
		"root_id", root.ID,
		"turns", len(turns),
	)
	return a, nil
}

// Get returns one analysis from the caller's session.
func (s *Service) Get(ctx context.Context, userID, sessionID, analysisID string) (*domain.Analysis, error) {
	if s.repo == nil {
		return nil, ErrNoHistory
	}
	a, err := s.repo.GetAnalysis(ctx, userID, analysisID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis: %w", err)
	}
	if a.SessionID != sessionID {
		return nil, ErrNotFound
	}
	return a, nil
}

// Thread returns the thread containing analysisID.
func (s *Service) Thread(ctx context.Context, userID, sessionID, analysisID string) (*Thread, error) {
	a, err := s.Get(ctx, userID, sessionID, analysisID)
	if err != nil {
		return nil, err
	}
	root := a
	if a.IsFollowUp() {
		if root, err = s.Get(ctx, userID, sessionID, a.ParentID); err != nil {
			return nil, fmt.Errorf("load thread root: %w", err)
		}
	}
	followUps, err := s.repo.ListThread(ctx, root.ID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return &Thread{Root: root, FollowUps: followUps}, nil
}

// History returns the session's most recent analyses, newest first.
func (s *Service) History(ctx context.Context, userID, sessionID string) ([]*domain.Analysis, error) {
	if s.repo == nil {
		return nil, nil
	}
	list, err := s.repo.ListAnalyses(ctx, userID, sessionID, s.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return list, nil
}

// Clear deletes the session's history.
func (s *Service) Clear(ctx context.Context, userID, sessionID string) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	n, err := s.repo.DeleteSessionAnalyses(ctx, userID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	slog.Info("Session history cleared", "user_id", userID, "session_id", sessionID, "deleted", n)
	return n, nil
}

func (s *Service) acquireThread(rootID string) bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if _, ok := s.busy[rootID]; ok {
		return false
	}
	s.busy[rootID] = struct{}{}
	return true
}

func (s *Service) releaseThread(rootID string) {
	s.busyMu.Lock()
	delete(s.busy, rootID)
	s.busyMu.Unlock()
}

func (s *Service) generate(ctx context.Context, req prompt.Request) (string, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := s.now()
	text, err := s.client.Generate(ctx, prompt.Build(req))
	if err != nil {
		slog.Error("Model call failed",
			"provider", s.client.Name(),
			"mode", req.Mode,
			"language", req.Language,
			"error", err,
		)
		return "", &ModelError{Provider: s.client.Name(), Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ModelError{Provider: s.client.Name(), Err: llm.ErrEmptyResponse}
	}

	slog.Debug("Model call succeeded",
		"provider", s.client.Name(),
		"mode", req.Mode,
		"duration", time.Since(start),
		"result_length", len(text),
	)
	return text, nil
}

func (s *Service) save(ctx context.Context, a *domain.Analysis) error {
	if s.repo == nil {
		return nil
	}
	err := shared.RetryOnConflict(ctx, s.opts.SaveRetries, s.opts.RetryDelay, func() error {
		return s.repo.SaveAnalysis(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}
