package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// Mailer delivers one-time tokens to their owner. Implementations live in
// app/mailer.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(context.Context, string, string) error  { return nil }
func (noopMailer) SendPasswordResetEmail(context.Context, string, string) error { return nil }

// newOneTimeToken returns 32 random bytes hex encoded.
func newOneTimeToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
