package tokens

import (
	"errors"
	"time"
)

// ErrNotFound is returned for tokens that were never issued or have expired.
var ErrNotFound = errors.New("poll token not found")

// Token is a poll session token a voter quotes in their declaration.
type Token struct {
	Value     string
	PollID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether t is no longer usable at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
