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
)

// SensitiveUpdate carries the optional new email and password of a credentials
// change. Nil means unchanged.
type SensitiveUpdate struct {
	NewEmail    *string
	NewPassword *string
}

type AccountService interface {
	Profile(ctx context.Context, userID string) (*dto.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, req *types.UpdateProfileRequest) (*dto.PublicUser, error)
	UpdateSensitiveData(ctx context.Context, userID, currentPassword string, update SensitiveUpdate) (*dto.PublicUser, error)
	DeleteAccount(ctx context.Context, userID string) error
}

type accountService struct {
	db     *sql.DB
	users  userRepository
	hasher *PasswordHasher
}

func NewAccountService(db *sql.DB, users userRepository, hasher *PasswordHasher) AccountService {
	return &accountService{db: db, users: users, hasher: hasher}
}

func (s *accountService) Profile(ctx context.Context, userID string) (*dto.PublicUser, error) {
	user, err := s.findUser(ctx, "profile", userID)
	if err != nil {
		return nil, err
	}
	return dto.NewPublicUser(user), nil
}

func (s *accountService) UpdateProfile(ctx context.Context, userID string, req *types.UpdateProfileRequest) (*dto.PublicUser, error) {
	if req == nil || req.Empty() {
		return nil, ErrNoValidFields
	}
	if err := req.Validate(); err != nil {
		return nil, newError(KindValidation, err.Error())
	}

	user, err := s.findUser(ctx, "update profile", userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	applyOptional(&user.Nickname, req.Nickname)
	applyOptional(&user.Description, req.Description)
	applyOptional(&user.Phone, req.Phone)
	applyOptional(&user.Website, req.Website)
	applyOptional(&user.GithubURL, req.GithubURL)
	applyOptional(&user.Location, req.Location)
	if req.BirthDate != nil {
		user.BirthDate = sql.NullTime{}
		if value := strings.TrimSpace(*req.BirthDate); value != "" {
			birthDate, err := time.Parse("2006-01-02", value)
			if err != nil {
				return nil, newError(KindValidation, "Invalid date format")
			}
			user.BirthDate = sql.NullTime{Time: birthDate, Valid: true}
		}
	}

	if err = s.users.Update(ctx, user); err != nil {
		return nil, internalError("update profile: update user", err)
	}

	return dto.NewPublicUser(user), nil
}

// UpdateSensitiveData changes email and/or password after re-checking the
// current password. A new email drops the verified flag; a new password ends
// every other session.
func (s *accountService) UpdateSensitiveData(ctx context.Context, userID, currentPassword string, update SensitiveUpdate) (*dto.PublicUser, error) {
	if update.NewEmail == nil && update.NewPassword == nil {
		return nil, ErrNoFieldsToUpdate
	}
	if currentPassword == "" {
		return nil, ErrCurrentPasswordRequired
	}
	if update.NewPassword != nil {
		if err := s.hasher.CheckPolicy(*update.NewPassword); err != nil {
			return nil, err
		}
	}
	var newEmail string
	if update.NewEmail != nil {
		newEmail = NormalizeEmail(*update.NewEmail)
		if !IsValidEmail(newEmail) {
			return nil, ErrInvalidEmailFormat
		}
	}

	user, err := s.findUser(ctx, "update credentials", userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Compare(user.PasswordHash, currentPassword)
	if err != nil {
		return nil, internalError("update credentials: compare password", err)
	}
	if !ok {
		return nil, ErrIncorrectPassword
	}

	if newEmail != "" && newEmail != user.Email {
		existing, err := s.users.FindByEmail(ctx, newEmail)
		if err != nil {
			return nil, internalError("update credentials: find email", err)
		}
		if existing != nil {
			return nil, ErrDuplicateEmail
		}
		user.Email = newEmail
		user.IsVerified = false
	}

	passwordChanged := false
	if update.NewPassword != nil {
		hash, err := s.hasher.Hash(*update.NewPassword)
		if err != nil {
			return nil, internalError("update credentials: hash password", err)
		}
		user.PasswordHash = hash
		passwordChanged = true
	}

	err = withinTx(ctx, s.db, "update credentials", func(users *repository.UserRepository, ledger *repository.TokenLedger) error {
		if err := users.Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateEmail
			}
			return internalError("update credentials: update user", err)
		}
		if passwordChanged {
			if _, err := ledger.DeleteRefreshTokensByUserID(ctx, user.ID); err != nil {
				return internalError("update credentials: revoke sessions", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dto.NewPublicUser(user), nil
}

// DeleteAccount removes the user and every token that references it.
func (s *accountService) DeleteAccount(ctx context.Context, userID string) error {
	return withinTx(ctx, s.db, "delete account", func(users *repository.UserRepository, ledger *repository.TokenLedger) error {
		if _, err := ledger.DeleteRefreshTokensByUserID(ctx, userID); err != nil {
			return internalError("delete account: refresh tokens", err)
		}
		if _, err := ledger.DeleteEmailVerifications(ctx, userID); err != nil {
			return internalError("delete account: email verifications", err)
		}
		if _, err := ledger.DeletePasswordResets(ctx, userID); err != nil {
			return internalError("delete account: password resets", err)
		}
		rows, err := users.Delete(ctx, userID)
		if err != nil {
			return internalError("delete account: user", err)
		}
		if rows == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (s *accountService) findUser(ctx context.Context, op, userID string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internalError(op+": find user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// applyOptional writes value into field when supplied; an empty string
// clears the column.
func applyOptional(field *sql.NullString, value *string) {
	if value == nil {
		return
	}
	trimmed := strings.TrimSpace(*value)
	*field = sql.NullString{String: trimmed, Valid: trimmed != ""}
}
