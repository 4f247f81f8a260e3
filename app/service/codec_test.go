package service_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenCodec_RejectsBadSecrets(t *testing.T) {
	base := newTestConfig().JWT

	shared := base
	shared.RefreshSecret = shared.AccessSecret
	_, err := service.NewTokenCodec(shared)
	assert.Error(t, err)

	empty := base
	empty.AccessSecret = ""
	_, err = service.NewTokenCodec(empty)
	assert.Error(t, err)

	noTTL := base
	noTTL.AccessTokenTTL = 0
	_, err = service.NewTokenCodec(noTTL)
	assert.Error(t, err)
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newCodec(t, newTestConfig())

	access, accessExp, err := codec.IssueAccessToken(testUserID)
	require.NoError(t, err)
	refresh, refreshExp, err := codec.IssueRefreshToken(testUserID)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(15*time.Minute), accessExp, 2*time.Second)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), refreshExp, 2*time.Second)

	claims, err := codec.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.UserID())
	assert.NotEmpty(t, claims.ID)

	claims, err = codec.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.UserID())
}

func TestTokenCodec_SecretsAreNotInterchangeable(t *testing.T) {
	codec := newCodec(t, newTestConfig())

	access, _, err := codec.IssueAccessToken(testUserID)
	require.NoError(t, err)
	refresh, _, err := codec.IssueRefreshToken(testUserID)
	require.NoError(t, err)

	_, err = codec.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, service.ErrCodecInvalid)
	_, err = codec.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, service.ErrCodecInvalid)
}

func TestTokenCodec_SameSecondTokensDiffer(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newCodec(t, newTestConfig(), service.WithClock(func() time.Time { return fixed }))

	first, _, err := codec.IssueRefreshToken(testUserID)
	require.NoError(t, err)
	second, _, err := codec.IssueRefreshToken(testUserID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenCodec_ExpiredVersusInvalid(t *testing.T) {
	cfg := newTestConfig()
	past := time.Now().Add(-time.Hour)
	oldCodec := newCodec(t, cfg, service.WithClock(func() time.Time { return past }))
	codec := newCodec(t, cfg)

	expired, _, err := oldCodec.IssueAccessToken(testUserID)
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(expired)
	assert.ErrorIs(t, err, service.ErrCodecExpired)

	_, err = codec.VerifyAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, service.ErrCodecInvalid)

	_, err = codec.VerifyAccessToken(expired + "tampered")
	assert.ErrorIs(t, err, service.ErrCodecInvalid)
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := newCodec(t, newTestConfig())
	claims := jwt.RegisteredClaims{
		Subject:   testUserID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rs256, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
	require.NoError(t, err)
	_, err = codec.VerifyAccessToken(rs256)
	assert.ErrorIs(t, err, service.ErrCodecInvalid)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.VerifyAccessToken(none)
	assert.ErrorIs(t, err, service.ErrCodecInvalid)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = codec.VerifyAccessToken(hs512)
	assert.ErrorIs(t, err, service.ErrCodecInvalid)
}

func TestTokenCodec_RequiresUUIDSubject(t *testing.T) {
	codec := newCodec(t, newTestConfig())

	_, _, err := codec.IssueAccessToken("42")
	assert.ErrorIs(t, err, service.ErrCodecInvalid)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(forged)
	assert.ErrorIs(t, err, service.ErrCodecInvalid)
}

func TestTokenCodec_RequiresExpiry(t *testing.T) {
	codec := newCodec(t, newTestConfig())

	forever, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: testUserID,
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(forever)
	assert.ErrorIs(t, err, service.ErrCodecInvalid)
}

func TestTokenCodec_ExpiryOf(t *testing.T) {
	codec := newCodec(t, &config.Config{JWT: config.JWTConfig{
		AccessSecret:    "a",
		RefreshSecret:   "b",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}})

	token, expiresAt, err := codec.IssueAccessToken(testUserID)
	require.NoError(t, err)

	got, ok := codec.ExpiryOf(token)
	require.True(t, ok)
	assert.WithinDuration(t, expiresAt, got, time.Second)

	_, ok = codec.ExpiryOf("garbage")
	assert.False(t, ok)
}
