// Package models defines client-side data models used by the fileflow CLI.
package models

import "time"

// Session is the derived identity state owned by the session manager.
//
// Authenticated is true iff a non-expired token is present; UserName and
// UserEmail are set iff Authenticated.
type Session struct {
	Token string

	// ExpiresAt is the token's exp claim; zero when the token has none.
	ExpiresAt time.Time

	UserName  string
	UserEmail string

	Authenticated bool
}

// Expired reports whether the session token is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
