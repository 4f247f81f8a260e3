package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/types"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/google/uuid"
)

var ErrNameRequired = newError(KindValidation, "Name is required.")

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
}

type tokenLedger interface {
	IsBlacklisted(ctx context.Context, rawAccessToken string) (bool, error)
	FindRefreshToken(ctx context.Context, rawToken string) (*entity.RefreshToken, error)
	FindEmailVerification(ctx context.Context, rawToken string) (*entity.OneTimeToken, error)
	FindPasswordReset(ctx context.Context, rawToken string) (*entity.OneTimeToken, error)
}

type SessionService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*dto.SessionResult, error)
	Login(ctx context.Context, req *types.LoginRequest) (*dto.SessionResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenPair, error)
	RequestEmailVerification(ctx context.Context, userID string) (*dto.OneTimeTokenResult, error)
	VerifyEmail(ctx context.Context, rawToken string) (VerificationStatus, error)
	RequestPasswordReset(ctx context.Context, email string) (*dto.OneTimeTokenResult, error)
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
}

type SessionServiceOption func(*sessionService)

func WithMailer(mailer Mailer) SessionServiceOption {
	return func(s *sessionService) {
		if mailer != nil {
			s.mailer = mailer
		}
	}
}

func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *sessionService) {
		if now != nil {
			s.now = now
		}
	}
}

type sessionService struct {
	db     *sql.DB
	users  userRepository
	ledger tokenLedger
	codec  *TokenCodec
	hasher *PasswordHasher
	cfg    *config.Config
	mailer Mailer
	now    func() time.Time
}

func NewSessionService(
	db *sql.DB,
	users userRepository,
	ledger tokenLedger,
	codec *TokenCodec,
	hasher *PasswordHasher,
	cfg *config.Config,
	opts ...SessionServiceOption,
) SessionService {
	svc := &sessionService{
		db:     db,
		users:  users,
		ledger: ledger,
		codec:  codec,
		hasher: hasher,
		cfg:    cfg,
		mailer: noopMailer{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *sessionService) Register(ctx context.Context, req *types.RegisterRequest) (*dto.SessionResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email := NormalizeEmail(req.Email)
	if !IsValidEmail(email) {
		return nil, ErrInvalidEmailFormat
	}
	if err := s.hasher.CheckPolicy(req.Password); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internalError("register: find user", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, internalError("register: hash password", err)
	}

	now := s.now()
	user := &entity.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var pair *dto.TokenPair
	err = withinTx(ctx, s.db, "register", func(users *repository.UserRepository, ledger *repository.TokenLedger) error {
		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateEmail
			}
			return internalError("register: create user", err)
		}
		var err error
		pair, err = s.startSession(ctx, users, ledger, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return newSessionResult(user, pair), nil
}

func (s *sessionService) Login(ctx context.Context, req *types.LoginRequest) (*dto.SessionResult, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		return nil, internalError("login: find user", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Compare(user.PasswordHash, req.Password)
	if err != nil {
		return nil, internalError("login: compare password", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if s.cfg.Auth.RequireVerifiedLogin && !user.IsVerified {
		return nil, ErrUnverifiedAccount
	}

	var pair *dto.TokenPair
	err = withinTx(ctx, s.db, "login", func(users *repository.UserRepository, ledger *repository.TokenLedger) error {
		var err error
		pair, err = s.startSession(ctx, users, ledger, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return newSessionResult(user, pair), nil
}

// Logout blacklists the access token and drops the refresh token. The access
// token does not have to be valid anymore.
func (s *sessionService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	accessToken = strings.TrimSpace(accessToken)
	refreshToken = strings.TrimSpace(refreshToken)
	if accessToken == "" || refreshToken == "" {
		return ErrMissingToken
	}
	if len(accessToken) > repository.MaxBlacklistedTokenLength {
		return ErrTokenMalformed
	}

	blacklisted, err := s.ledger.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return internalError("logout: check blacklist", err)
	}
	if blacklisted {
		return ErrAlreadyInvalidated
	}

	expiresAt, ok := s.codec.ExpiryOf(accessToken)
	if !ok {
		expiresAt = s.now().Add(s.codec.AccessTTL())
	}

	return withinTx(ctx, s.db, "logout", func(_ *repository.UserRepository, ledger *repository.TokenLedger) error {
		if err := ledger.Blacklist(ctx, accessToken, expiresAt); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyInvalidated
			}
			return internalError("logout: blacklist", err)
		}
		if _, err := ledger.DeleteRefreshToken(ctx, refreshToken); err != nil {
			return internalError("logout: delete refresh token", err)
		}
		return nil
	})
}

// Refresh rotates the session. The ledger row is locked before the signature
// is checked so a replayed token loses to the request that rotated it.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	var pair *dto.TokenPair
	err := withinTx(ctx, s.db, "refresh", func(users *repository.UserRepository, ledger *repository.TokenLedger) error {
		record, err := ledger.FindRefreshTokenForUpdate(ctx, refreshToken)
		if err != nil {
			return internalError("refresh: find token", err)
		}
		if record == nil {
			return ErrInvalidRefreshToken
		}

		claims, err := s.codec.VerifyRefreshToken(refreshToken)
		if err != nil {
			if errors.Is(err, ErrCodecExpired) {
				return ErrRefreshExpired
			}
			return ErrRefreshInvalid
		}
		if claims.UserID() != record.UserID {
			return ErrRefreshInvalid
		}

		user, err := users.FindByID(ctx, record.UserID)
		if err != nil {
			return internalError("refresh: find user", err)
		}
		if user == nil {
			return ErrInvalidRefreshToken
		}

		pair, err = s.rotate(ctx, ledger, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// startSession issues a pair, replaces every stored refresh token of the user
// with the new one and stamps last_login.
func (s *sessionService) startSession(
	ctx context.Context,
	users *repository.UserRepository,
	ledger *repository.TokenLedger,
	user *entity.User,
) (*dto.TokenPair, error) {
	pair, err := s.rotate(ctx, ledger, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err = users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, internalError("session: update last login", err)
	}
	user.LastLogin = sql.NullTime{Time: now, Valid: true}

	return pair, nil
}

func (s *sessionService) rotate(ctx context.Context, ledger *repository.TokenLedger, userID string) (*dto.TokenPair, error) {
	accessToken, _, err := s.codec.IssueAccessToken(userID)
	if err != nil {
		return nil, internalError("session: issue access token", err)
	}
	refreshToken, _, err := s.codec.IssueRefreshToken(userID)
	if err != nil {
		return nil, internalError("session: issue refresh token", err)
	}

	if _, err = ledger.DeleteRefreshTokensByUserID(ctx, userID); err != nil {
		return nil, internalError("session: purge refresh tokens", err)
	}
	if err = ledger.SaveRefreshToken(ctx, refreshToken, userID); err != nil {
		return nil, internalError("session: save refresh token", err)
	}

	return &dto.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func newSessionResult(user *entity.User, pair *dto.TokenPair) *dto.SessionResult {
	return &dto.SessionResult{
		User:         dto.NewPublicUser(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}
