package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

const (
	emailVerificationsTable = "email_verifications"
	passwordResetsTable     = "password_resets"
)

// PurgeResult reports how many expired rows a sweep removed per table.
type PurgeResult struct {
	BlacklistedTokens  int64
	EmailVerifications int64
	PasswordResets     int64
}

// TokenLedger persists refresh tokens, the access-token blacklist and the
// one-time verification and reset tokens. Every method that accepts a raw
// token hashes it before touching storage, except the blacklist which is
// keyed by the raw access token.
type TokenLedger struct {
	db DBTX
}

func NewTokenLedger(db DBTX) *TokenLedger {
	return &TokenLedger{db: db}
}

func (l *TokenLedger) SaveRefreshToken(ctx context.Context, rawToken, userID string) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, created_at)
		VALUES (?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query, userID, HashToken(rawToken), time.Now())
	return translateError(err)
}

func (l *TokenLedger) FindRefreshToken(ctx context.Context, rawToken string) (*entity.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, created_at
		FROM refresh_tokens WHERE token_hash = ?
	`
	return l.findRefreshToken(ctx, query, rawToken)
}

// FindRefreshTokenForUpdate locks the row until the surrounding transaction
// ends. It is only meaningful when the ledger is bound to a *sql.Tx.
func (l *TokenLedger) FindRefreshTokenForUpdate(ctx context.Context, rawToken string) (*entity.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, created_at
		FROM refresh_tokens WHERE token_hash = ? FOR UPDATE
	`
	return l.findRefreshToken(ctx, query, rawToken)
}

func (l *TokenLedger) DeleteRefreshToken(ctx context.Context, rawToken string) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE token_hash = ?`
	return l.exec(ctx, query, HashToken(rawToken))
}

func (l *TokenLedger) DeleteRefreshTokensByUserID(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE user_id = ?`
	return l.exec(ctx, query, userID)
}

// MaxBlacklistedTokenLength is the width of blacklisted_tokens.token.
const MaxBlacklistedTokenLength = 1024

func (l *TokenLedger) Blacklist(ctx context.Context, rawAccessToken string, expiresAt time.Time) error {
	query := `
		INSERT INTO blacklisted_tokens (token, expires_at, created_at)
		VALUES (?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query, rawAccessToken, expiresAt, time.Now())
	return translateError(err)
}

func (l *TokenLedger) IsBlacklisted(ctx context.Context, rawAccessToken string) (bool, error) {
	query := `SELECT 1 FROM blacklisted_tokens WHERE token = ?`
	var found int
	err := l.db.QueryRowContext(ctx, query, rawAccessToken).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *TokenLedger) CreateEmailVerification(ctx context.Context, userID, rawToken string, expiresAt time.Time) error {
	return l.createOneTime(ctx, emailVerificationsTable, userID, rawToken, expiresAt)
}

func (l *TokenLedger) FindEmailVerification(ctx context.Context, rawToken string) (*entity.OneTimeToken, error) {
	return l.findOneTime(ctx, emailVerificationsTable, rawToken, false)
}

// FindEmailVerificationForUpdate locks the row until the surrounding
// transaction ends.
func (l *TokenLedger) FindEmailVerificationForUpdate(ctx context.Context, rawToken string) (*entity.OneTimeToken, error) {
	return l.findOneTime(ctx, emailVerificationsTable, rawToken, true)
}

func (l *TokenLedger) DeleteEmailVerifications(ctx context.Context, userID string) (int64, error) {
	return l.deleteOneTime(ctx, emailVerificationsTable, userID)
}

func (l *TokenLedger) CreatePasswordReset(ctx context.Context, userID, rawToken string, expiresAt time.Time) error {
	return l.createOneTime(ctx, passwordResetsTable, userID, rawToken, expiresAt)
}

func (l *TokenLedger) FindPasswordReset(ctx context.Context, rawToken string) (*entity.OneTimeToken, error) {
	return l.findOneTime(ctx, passwordResetsTable, rawToken, false)
}

// FindPasswordResetForUpdate locks the row until the surrounding transaction
// ends, so a reset token can only be consumed once.
func (l *TokenLedger) FindPasswordResetForUpdate(ctx context.Context, rawToken string) (*entity.OneTimeToken, error) {
	return l.findOneTime(ctx, passwordResetsTable, rawToken, true)
}

func (l *TokenLedger) DeletePasswordResets(ctx context.Context, userID string) (int64, error) {
	return l.deleteOneTime(ctx, passwordResetsTable, userID)
}

func (l *TokenLedger) PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error) {
	var (
		result PurgeResult
		err    error
	)

	result.BlacklistedTokens, err = l.exec(ctx, `DELETE FROM blacklisted_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return result, err
	}
	result.EmailVerifications, err = l.exec(ctx, `DELETE FROM `+emailVerificationsTable+` WHERE expires_at < ?`, now)
	if err != nil {
		return result, err
	}
	result.PasswordResets, err = l.exec(ctx, `DELETE FROM `+passwordResetsTable+` WHERE expires_at < ?`, now)
	if err != nil {
		return result, err
	}

	return result, nil
}

func (l *TokenLedger) findRefreshToken(ctx context.Context, query, rawToken string) (*entity.RefreshToken, error) {
	rt := &entity.RefreshToken{}
	err := l.db.QueryRowContext(ctx, query, HashToken(rawToken)).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.TokenHash,
		&rt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (l *TokenLedger) createOneTime(ctx context.Context, table, userID, rawToken string, expiresAt time.Time) error {
	query := `
		INSERT INTO ` + table + ` (user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query, userID, HashToken(rawToken), expiresAt, time.Now())
	return translateError(err)
}

func (l *TokenLedger) findOneTime(ctx context.Context, table, rawToken string, forUpdate bool) (*entity.OneTimeToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM ` + table + ` WHERE token_hash = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	token := &entity.OneTimeToken{}
	err := l.db.QueryRowContext(ctx, query, HashToken(rawToken)).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (l *TokenLedger) deleteOneTime(ctx context.Context, table, userID string) (int64, error) {
	return l.exec(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID)
}

func (l *TokenLedger) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
