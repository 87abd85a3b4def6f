// Package sweeper removes inactive anonymous users and their history.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/devgenie/internal/shared"
	"github.com/ashureev/devgenie/internal/store"
)

// DefaultInterval is how often the sweeper runs when none is configured.
const DefaultInterval = 5 * time.Minute

// Cleaner is the subset of store.Repository the sweeper needs.
type Cleaner interface {
	CleanupExpired(ctx context.Context, ttl time.Duration) (int64, int64, error)
}

var _ Cleaner = (store.Repository)(nil)

// Config controls a sweeper run.
type Config struct {
	TTL        time.Duration
	Interval   time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// Start runs a background goroutine that sweeps expired sessions until ctx
// is done. The returned channel is closed when the goroutine exits.
func Start(ctx context.Context, repo Cleaner, cfg Config) <-chan struct{} {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", cfg.TTL)

		for {
			select {
			case <-ticker.C:
				_ = Sweep(ctx, repo, cfg)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

// Sweep deletes users inactive for longer than cfg.TTL, retrying while the
// database is locked.
func Sweep(ctx context.Context, repo Cleaner, cfg Config) error {
	var users, analyses int64
	err := shared.RetryOnConflict(ctx, cfg.MaxRetries, cfg.BaseDelay, func() error {
		var err error
		users, analyses, err = repo.CleanupExpired(ctx, cfg.TTL)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Session sweep interrupted", "error", err)
			return err
		}
		slog.Error("Session sweep failed", "error", err)
		return err
	}
	if users > 0 || analyses > 0 {
		slog.Info("Session sweep completed", "users_deleted", users, "analyses_deleted", analyses)
	}
	return nil
}
