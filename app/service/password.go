package service

import (
	"errors"

	"github.com/vibast-solutions/ms-go-accounts/config"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps bcrypt with the configured policy and cost.
type PasswordHasher struct {
	policy config.PasswordPolicy
	cost   int
}

func NewPasswordHasher(cfg config.PasswordConfig) *PasswordHasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{policy: cfg.Policy, cost: cost}
}

// CheckPolicy returns an error matching ErrWeakPassword when password does not
// satisfy the configured policy.
func (h *PasswordHasher) CheckPolicy(password string) error {
	if err := h.policy.Validate(password); err != nil {
		return weakPasswordError(err)
	}
	return nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether password matches hash. A mismatch is not an error.
func (h *PasswordHasher) Compare(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
