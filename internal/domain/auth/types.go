package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of transport/adapter concerns.

import "time"

// Session is the server-side record persisted for an authenticated user.
// ID is an opaque session identifier carried in the session cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
