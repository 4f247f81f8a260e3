package service_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUserID  = "6f1c2a4e-8f7b-4b9e-9d3a-2c1e5f7a9b0d"
	otherUserID = "0b5e6c1d-2a3f-4e8d-9c7b-1a2b3c4d5e6f"
)

const (
	findUserByEmailQuery      = `(?s)SELECT id, name, email, password_hash, is_verified, last_login,.+FROM users WHERE email = \?`
	findUserByIDQuery         = `(?s)SELECT id, name, email, password_hash, is_verified, last_login,.+FROM users WHERE id = \?`
	insertUserQuery           = `(?s)INSERT INTO users \(id, name, email, password_hash, is_verified, last_login, created_at, updated_at\)`
	updateUserQuery           = `(?s)UPDATE users SET\s+name = \?,\s+email = \?,\s+password_hash = \?`
	updateVerifiedQuery       = `UPDATE users SET is_verified = \?, updated_at = \? WHERE id = \?`
	updatePasswordQuery       = `UPDATE users SET password_hash = \?, updated_at = \? WHERE id = \?`
	updateLastLoginQuery      = `UPDATE users SET last_login = \? WHERE id = \?`
	deleteUserQuery           = `DELETE FROM users WHERE id = \?`
	insertRefreshTokenQuery   = `(?s)INSERT INTO refresh_tokens \(user_id, token_hash, created_at\)`
	findRefreshTokenQuery     = `(?s)SELECT id, user_id, token_hash, created_at\s+FROM refresh_tokens WHERE token_hash = \?\s*$`
	findRefreshTokenForUpdate = `(?s)SELECT id, user_id, token_hash, created_at\s+FROM refresh_tokens WHERE token_hash = \? FOR UPDATE`
	deleteRefreshTokenQuery   = `DELETE FROM refresh_tokens WHERE token_hash = \?`
	deleteUserRefreshTokens   = `DELETE FROM refresh_tokens WHERE user_id = \?`
	insertBlacklistQuery      = `(?s)INSERT INTO blacklisted_tokens \(token, expires_at, created_at\)`
	isBlacklistedQuery        = `SELECT 1 FROM blacklisted_tokens WHERE token = \?`
	insertVerificationQuery   = `(?s)INSERT INTO email_verifications \(user_id, token_hash, expires_at, created_at\)`
	findVerificationQuery     = `(?s)SELECT id, user_id, token_hash, expires_at, created_at\s+FROM email_verifications WHERE token_hash = \?\s*$`
	findVerificationForUpdate = `(?s)SELECT id, user_id, token_hash, expires_at, created_at\s+FROM email_verifications WHERE token_hash = \? FOR UPDATE`
	deleteVerificationsQuery  = `DELETE FROM email_verifications WHERE user_id = \?`
	insertPasswordResetQuery  = `(?s)INSERT INTO password_resets \(user_id, token_hash, expires_at, created_at\)`
	findPasswordResetQuery    = `(?s)SELECT id, user_id, token_hash, expires_at, created_at\s+FROM password_resets WHERE token_hash = \?\s*$`
	findResetForUpdate        = `(?s)SELECT id, user_id, token_hash, expires_at, created_at\s+FROM password_resets WHERE token_hash = \? FOR UPDATE`
	deletePasswordResetsQuery = `DELETE FROM password_resets WHERE user_id = \?`
)

var (
	userColumns         = []string{"id", "name", "email", "password_hash", "is_verified", "last_login", "nickname", "description", "phone", "website", "github_url", "location", "birth_date", "created_at", "updated_at"}
	refreshTokenColumns = []string{"id", "user_id", "token_hash", "created_at"}
	oneTimeTokenColumns = []string{"id", "user_id", "token_hash", "expires_at", "created_at"}
)

type userFixture struct {
	ID         string
	Name       string
	Email      string
	Password   string
	IsVerified bool
}

func defaultUser() userFixture {
	return userFixture{
		ID:       testUserID,
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "correct-horse",
	}
}

func userRows(t *testing.T, u userFixture) *sqlmock.Rows {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	now := time.Now()
	return sqlmock.NewRows(userColumns).AddRow(
		u.ID, u.Name, u.Email, string(hash), u.IsVerified,
		nil, nil, nil, nil, nil, nil, nil, nil,
		now, now,
	)
}

func newTestConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:    "access-secret",
			RefreshSecret:   "refresh-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Tokens: config.TokenConfig{
			VerificationTTL: time.Hour,
			ResetTTL:        time.Hour,
		},
		Password: config.PasswordConfig{
			Policy:     config.PasswordPolicy{MinLength: 8},
			BcryptCost: bcrypt.MinCost,
		},
	}
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newCodec(t *testing.T, cfg *config.Config, opts ...service.CodecOption) *service.TokenCodec {
	t.Helper()

	codec, err := service.NewTokenCodec(cfg.JWT, opts...)
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	return codec
}

type sessionFixture struct {
	svc    service.SessionService
	mock   sqlmock.Sqlmock
	cfg    *config.Config
	codec  *service.TokenCodec
	mailer *recordingMailer
	now    time.Time
}

func newSessionFixture(t *testing.T, mutate ...func(*config.Config)) *sessionFixture {
	t.Helper()

	db, mock := newMockDB(t)
	cfg := newTestConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	now := time.Now()
	clock := func() time.Time { return now }
	codec := newCodec(t, cfg, service.WithClock(clock))
	mailer := &recordingMailer{}

	svc := service.NewSessionService(
		db,
		repository.NewUserRepository(db),
		repository.NewTokenLedger(db),
		codec,
		service.NewPasswordHasher(cfg.Password),
		cfg,
		service.WithMailer(mailer),
		service.WithSessionClock(clock),
	)

	return &sessionFixture{svc: svc, mock: mock, cfg: cfg, codec: codec, mailer: mailer, now: now}
}

func (f *sessionFixture) expectationsMet(t *testing.T) {
	t.Helper()

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// expectSessionStart mirrors the purge-then-persist sequence of a new session.
func expectSessionStart(mock sqlmock.Sqlmock, userID string, storedHash *captureArg) {
	mock.ExpectExec(deleteUserRefreshTokens).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertRefreshTokenQuery).
		WithArgs(userID, storedHash, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(updateLastLoginQuery).
		WithArgs(sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

// captureArg matches any value and remembers it.
type captureArg struct {
	value driver.Value
}

func (c *captureArg) Match(v driver.Value) bool {
	c.value = v
	return true
}

func (c *captureArg) String() string {
	s, _ := c.value.(string)
	return s
}

// nearTime matches a time.Time within a second of want. Token timestamps are
// truncated to whole seconds.
type nearTime struct {
	want time.Time
}

func (n nearTime) Match(v driver.Value) bool {
	got, ok := v.(time.Time)
	if !ok {
		return false
	}
	diff := got.Sub(n.want)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Second
}

type recordingMailer struct {
	mu            sync.Mutex
	verifications []sentMail
	resets        []sentMail
	err           error
}

type sentMail struct {
	To    string
	Token string
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, sentMail{To: to, Token: token})
	return m.err
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, sentMail{To: to, Token: token})
	return m.err
}
