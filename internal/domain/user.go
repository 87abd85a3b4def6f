// Package domain contains core domain types for the DevGenie application.
package domain

import (
	"time"
)

// User represents an anonymous browser identity.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionTTL returns the time until the user's history expires.
// Returns 0 if it has already expired.
func (u *User) SessionTTL(sessionDuration time.Duration) time.Duration {
	ttl := time.Until(u.LastSeenAt.Add(sessionDuration))
	if ttl < 0 {
		return 0
	}
	return ttl
}
