package service

import (
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrCodecInvalid = errors.New("token is invalid")
	ErrCodecExpired = errors.New("token has expired")
)

// Claims carries the user id in the subject and a unique token id so two
// tokens issued in the same second never collide.
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

type CodecOption func(*TokenCodec)

// WithClock overrides the time source used to stamp and validate tokens.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// TokenCodec signs and verifies HS256 access and refresh tokens, each with its
// own secret.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenCodec(cfg config.JWTConfig, opts ...CodecOption) (*TokenCodec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	codec := &TokenCodec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(codec)
	}
	return codec, nil
}

func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

func (c *TokenCodec) IssueAccessToken(userID string) (string, time.Time, error) {
	return c.issue(userID, c.accessSecret, c.accessTTL)
}

func (c *TokenCodec) IssueRefreshToken(userID string) (string, time.Time, error) {
	return c.issue(userID, c.refreshSecret, c.refreshTTL)
}

func (c *TokenCodec) VerifyAccessToken(token string) (*Claims, error) {
	return c.Verify(token, c.accessSecret)
}

func (c *TokenCodec) VerifyRefreshToken(token string) (*Claims, error) {
	return c.Verify(token, c.refreshSecret)
}

// Verify checks signature, algorithm, expiry and subject. It returns
// ErrCodecExpired for a well-formed token past its exp and ErrCodecInvalid for
// anything else.
func (c *TokenCodec) Verify(token string, secret []byte) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCodecExpired
		}
		return nil, ErrCodecInvalid
	}
	if !parsed.Valid {
		return nil, ErrCodecInvalid
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrCodecInvalid
	}

	return claims, nil
}

// ExpiryOf reads exp without verifying the signature. Logout uses it to size
// the blacklist entry of a token that may already be invalid.
func (c *TokenCodec) ExpiryOf(token string) (time.Time, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (c *TokenCodec) issue(userID string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return "", time.Time{}, ErrCodecInvalid
	}

	now := c.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
