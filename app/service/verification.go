package service

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"

	"github.com/sirupsen/logrus"
)

type VerificationStatus string

const (
	VerificationSuccess         VerificationStatus = "success"
	VerificationInvalid         VerificationStatus = "invalid"
	VerificationAlreadyVerified VerificationStatus = "already_verified"
)

// errTokenConsumed rolls back a verification whose token was used by a
// concurrent request after the first lookup.
var errTokenConsumed = errors.New("verification token already consumed")

const (
	verificationRequestedMessage  = "Verification token generated."
	passwordResetRequestedMessage = "If the email exists, you will receive instructions."
)

func (s *sessionService) RequestEmailVerification(ctx context.Context, userID string) (*dto.OneTimeTokenResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internalError("request verification: find user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	token, err := newOneTimeToken()
	if err != nil {
		return nil, internalError("request verification: generate token", err)
	}
	expiresAt := s.now().Add(s.cfg.Tokens.VerificationTTL)

	err = withinTx(ctx, s.db, "request verification", func(_ *repository.UserRepository, ledger *repository.TokenLedger) error {
		if _, err := ledger.DeleteEmailVerifications(ctx, user.ID); err != nil {
			return internalError("request verification: delete previous", err)
		}
		if err := ledger.CreateEmailVerification(ctx, user.ID, token, expiresAt); err != nil {
			return internalError("request verification: create", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err = s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		logrus.WithError(err).WithField("email", RedactEmail(user.Email)).Warn("Failed to deliver verification email")
	}

	return &dto.OneTimeTokenResult{
		Message:   verificationRequestedMessage,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyEmail never fails for a bad token; the outcome is reported through the
// status. The error is only set for storage failures, with status invalid.
func (s *sessionService) VerifyEmail(ctx context.Context, rawToken string) (VerificationStatus, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return VerificationInvalid, nil
	}

	record, err := s.ledger.FindEmailVerification(ctx, rawToken)
	if err != nil {
		return VerificationInvalid, internalError("verify email: find token", err)
	}
	if record == nil || record.Expired(s.now()) {
		return VerificationInvalid, nil
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		return VerificationInvalid, internalError("verify email: find user", err)
	}
	if user == nil {
		return VerificationInvalid, nil
	}

	status := VerificationSuccess
	if user.IsVerified {
		status = VerificationAlreadyVerified
	}

	err = withinTx(ctx, s.db, "verify email", func(users *repository.UserRepository, ledger *repository.TokenLedger) error {
		locked, err := ledger.FindEmailVerificationForUpdate(ctx, rawToken)
		if err != nil {
			return internalError("verify email: lock token", err)
		}
		if locked == nil || locked.Expired(s.now()) {
			return errTokenConsumed
		}
		if status == VerificationSuccess {
			if err := users.UpdateVerified(ctx, user.ID, true); err != nil {
				return internalError("verify email: mark verified", err)
			}
		}
		if _, err := ledger.DeleteEmailVerifications(ctx, user.ID); err != nil {
			return internalError("verify email: delete token", err)
		}
		return nil
	})
	if errors.Is(err, errTokenConsumed) {
		return VerificationInvalid, nil
	}
	if err != nil {
		return VerificationInvalid, err
	}

	return status, nil
}

// RequestPasswordReset answers the same way whether or not the email belongs
// to an account.
func (s *sessionService) RequestPasswordReset(ctx context.Context, email string) (*dto.OneTimeTokenResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	result := &dto.OneTimeTokenResult{Message: passwordResetRequestedMessage}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internalError("request reset: find user", err)
	}
	if user == nil {
		return result, nil
	}

	token, err := newOneTimeToken()
	if err != nil {
		return nil, internalError("request reset: generate token", err)
	}
	expiresAt := s.now().Add(s.cfg.Tokens.ResetTTL)

	err = withinTx(ctx, s.db, "request reset", func(_ *repository.UserRepository, ledger *repository.TokenLedger) error {
		if _, err := ledger.DeletePasswordResets(ctx, user.ID); err != nil {
			return internalError("request reset: delete previous", err)
		}
		if err := ledger.CreatePasswordReset(ctx, user.ID, token, expiresAt); err != nil {
			return internalError("request reset: create", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err = s.mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		logrus.WithError(err).WithField("email", RedactEmail(user.Email)).Warn("Failed to deliver password reset email")
	}

	result.Token = token
	result.ExpiresAt = expiresAt
	return result, nil
}

// ResetPassword replaces the password and ends every session of the user.
func (s *sessionService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" || newPassword == "" {
		return ErrInvalidResetInput
	}
	if err := s.hasher.CheckPolicy(newPassword); err != nil {
		return err
	}

	record, err := s.ledger.FindPasswordReset(ctx, rawToken)
	if err != nil {
		return internalError("reset password: find token", err)
	}
	if record == nil || record.Expired(s.now()) {
		return ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internalError("reset password: hash password", err)
	}

	// A concurrent reset with the same token waits on the row lock and then
	// finds the row gone.
	return withinTx(ctx, s.db, "reset password", func(users *repository.UserRepository, ledger *repository.TokenLedger) error {
		locked, err := ledger.FindPasswordResetForUpdate(ctx, rawToken)
		if err != nil {
			return internalError("reset password: lock token", err)
		}
		if locked == nil || locked.Expired(s.now()) {
			return ErrInvalidOrExpiredToken
		}
		if err := users.UpdatePassword(ctx, locked.UserID, hash); err != nil {
			return internalError("reset password: update password", err)
		}
		if _, err := ledger.DeletePasswordResets(ctx, locked.UserID); err != nil {
			return internalError("reset password: delete tokens", err)
		}
		if _, err := ledger.DeleteRefreshTokensByUserID(ctx, locked.UserID); err != nil {
			return internalError("reset password: revoke sessions", err)
		}
		return nil
	})
}
