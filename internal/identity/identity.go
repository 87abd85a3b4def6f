// Package identity provides anonymous per-device identity primitives.
package identity

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/store"
)

const (
	AnonCookieName        = "devgenie_anon_id"
	SessionHeaderName     = "X-DevGenie-Session-ID"
	SessionQueryParam     = "session_id"
	DefaultSessionIDValue = "default"
	anonCookieMaxAge      = 30 * 24 * time.Hour

	// lastSeenGranularity limits how often a busy client touches its user row.
	lastSeenGranularity = time.Minute
)

type contextKey int

const (
	userIDKey contextKey = iota
	usernameKey
	sessionIDKey
)

var (
	anonIDPattern    = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// UsernameFromContext extracts the username from the request context.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithIdentity returns a copy of ctx carrying the given identity.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, usernameKey, deriveUsername(userID))
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

func newAnonID() string {
	return "anon_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func deriveUsername(userID string) string {
	if len(userID) > 13 {
		return "anon-" + userID[len(userID)-8:]
	}
	return "anon-user"
}

// touchUser creates the user on first sight and refreshes its activity
// timestamp afterwards. Inactive users are removed by the sweeper.
func touchUser(ctx context.Context, repo store.Repository, userID string, now time.Time) error {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return repo.UpsertUser(ctx, &domain.User{
			UserID:     userID,
			Username:   deriveUsername(userID),
			LastSeenAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if now.Sub(user.LastSeenAt) < lastSeenGranularity {
		return nil
	}
	return repo.UpdateLastSeen(ctx, userID, now)
}

func setAnonCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// anonIDFromRequest returns the caller's anonymous ID, minting a new one when
// the cookie is missing or malformed. The cookie is refreshed either way.
func anonIDFromRequest(w http.ResponseWriter, r *http.Request, isDev bool) string {
	id := ""
	if c, err := r.Cookie(AnonCookieName); err == nil && anonIDPattern.MatchString(c.Value) {
		id = c.Value
	} else {
		id = newAnonID()
	}
	setAnonCookie(w, id, !isDev)
	return id
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get(SessionQueryParam)
	}
	return sanitizeSessionID(sid)
}

// Middleware injects anonymous per-device identity and per-tab session ID.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := anonIDFromRequest(w, r, isDev)

			if err := touchUser(r.Context(), repo, userID, time.Now()); err != nil {
				slog.Error("Failed to initialize anonymous user", "user_id", userID, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"failed to initialize anonymous user"}`))
				return
			}

			ctx := WithIdentity(r.Context(), userID, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
