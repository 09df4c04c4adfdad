package models

import (
	"time"
)

// Session is the authenticated handle returned by a successful login.
type Session struct {
	Username    string    `json:"username"`
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"-"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

// Valid reports whether the session can still be used at now.
// A zero Expiry means the token does not expire.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" || s.UserID == "" {
		return false
	}
	return s.Expiry.IsZero() || now.Before(s.Expiry)
}
