// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/devgenie/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for persisting users and their session history.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns nil, nil if absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SaveAnalysis appends an analysis to its session's history.
	SaveAnalysis(ctx context.Context, a *domain.Analysis) error

	// GetAnalysis retrieves one analysis owned by userID. Returns ErrNotFound if absent.
	GetAnalysis(ctx context.Context, userID, analysisID string) (*domain.Analysis, error)

	// ListAnalyses returns the most recent analyses of a session, newest first.
	ListAnalyses(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Analysis, error)

	// ListThread returns the follow-ups of a root analysis, oldest first.
	ListThread(ctx context.Context, rootID string) ([]*domain.Analysis, error)

	// DeleteSessionAnalyses removes a session's history.
	DeleteSessionAnalyses(ctx context.Context, userID, sessionID string) (int64, error)

	// CleanupExpired removes users inactive for longer than ttl and their history.
	CleanupExpired(ctx context.Context, ttl time.Duration) (usersDeleted int64, analysesDeleted int64, err error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
