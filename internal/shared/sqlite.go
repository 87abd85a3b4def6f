// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsSQLiteConflictError reports whether err is a SQLITE_BUSY or SQLITE_LOCKED
// error. Both occur under write contention and are worth retrying.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// RetryOnConflict runs op until it succeeds, fails with a non-conflict error,
// or maxRetries attempts have been made. The delay doubles after every attempt.
func RetryOnConflict(ctx context.Context, maxRetries int, baseDelay time.Duration, op func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = op(); err == nil {
			return nil
		}
		if !IsSQLiteConflictError(err) || i == maxRetries-1 {
			return err
		}

		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("Database locked, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
