package entity

import "time"

// RefreshToken is an outstanding refresh session. Only the hash of the raw
// token is ever persisted.
type RefreshToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	CreatedAt time.Time
}

// OneTimeToken backs both email verification and password reset records.
type OneTimeToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *OneTimeToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
