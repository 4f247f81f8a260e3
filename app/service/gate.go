package service

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
)

// Authenticator resolves bearer tokens to users for the HTTP middleware and the
// gRPC service.
type Authenticator struct {
	users  userRepository
	ledger tokenLedger
	codec  *TokenCodec
}

func NewAuthenticator(users userRepository, ledger tokenLedger, codec *TokenCodec) *Authenticator {
	return &Authenticator{users: users, ledger: ledger, codec: codec}
}

// Authenticate checks the blacklist before the signature so a logged-out token
// is reported as invalidated even when it has also expired.
func (a *Authenticator) Authenticate(ctx context.Context, accessToken string) (*dto.PublicUser, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, ErrAuthTokenMissing
	}

	blacklisted, err := a.ledger.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, internalError("authenticate: check blacklist", err)
	}
	if blacklisted {
		return nil, ErrTokenInvalidated
	}

	claims, err := a.codec.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, ErrCodecExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	user, err := a.users.FindByID(ctx, claims.UserID())
	if err != nil {
		return nil, internalError("authenticate: find user", err)
	}
	if user == nil {
		return nil, ErrAuthUserNotFound
	}

	return dto.NewPublicUser(user), nil
}

// AuthenticateRefresh returns the owner of a stored, valid refresh token.
func (a *Authenticator) AuthenticateRefresh(ctx context.Context, refreshToken string) (string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", ErrMissingRefreshToken
	}

	record, err := a.ledger.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", internalError("authenticate refresh: find token", err)
	}
	if record == nil {
		return "", ErrInvalidRefreshToken
	}

	claims, err := a.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, ErrCodecExpired) {
			return "", ErrRefreshExpired
		}
		return "", ErrRefreshInvalid
	}
	if claims.UserID() != record.UserID {
		return "", ErrRefreshInvalid
	}

	return record.UserID, nil
}
