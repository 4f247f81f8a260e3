package service

import "fmt"

// Kind classifies a service failure so transports can pick a status code
// without knowing individual errors.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindConflict
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the only error type the service layer returns. Message is safe to
// show to clients; Err keeps the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindInternal && e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrMissingToken          = newError(KindValidation, "Access token or refresh token missing.")
	ErrAlreadyInvalidated    = newError(KindValidation, "Token is already invalidated.")
	ErrInvalidResetInput     = newError(KindValidation, "Token and new password are required.")
	ErrWeakPassword          = newError(KindValidation, "Password must be at least 8 characters long.")
	ErrInvalidOrExpiredToken = newError(KindValidation, "Token is invalid or expired.")
	ErrEmailRequired         = newError(KindValidation, "Email is required.")
	ErrNoFieldsToUpdate      = newError(KindValidation, "No fields to update.")
	ErrNoValidFields         = newError(KindValidation, "No valid fields provided for update.")
	ErrInvalidEmailFormat    = newError(KindValidation, "Invalid email format.")

	ErrDuplicateEmail = newError(KindConflict, "The email is already registered. Please use another one.")

	ErrInvalidCredentials      = newError(KindAuthentication, "Invalid email or password.")
	ErrMissingRefreshToken     = newError(KindAuthentication, "Refresh token is missing.")
	ErrInvalidRefreshToken     = newError(KindAuthentication, "Invalid refresh token.")
	ErrRefreshExpired          = newError(KindAuthentication, "Refresh token has expired. Please log in again.")
	ErrRefreshInvalid          = newError(KindAuthentication, "Refresh token is malformed.")
	ErrAuthTokenMissing        = newError(KindAuthentication, "Authentication token missing")
	ErrTokenInvalidated        = newError(KindAuthentication, "Token has been invalidated. Please log in again.")
	ErrTokenExpired            = newError(KindAuthentication, "Token has expired. Please log in again.")
	ErrTokenMalformed          = newError(KindAuthentication, "Invalid token. Please log in again.")
	ErrAuthUserNotFound        = newError(KindAuthentication, "Invalid or expired token")
	ErrCurrentPasswordRequired = newError(KindAuthentication, "Current password is required.")
	ErrIncorrectPassword       = newError(KindAuthentication, "Current password is incorrect.")

	ErrUnverifiedAccount = newError(KindAuthorization, "Access denied. Email not verified.")
	ErrAlreadyVerified   = newError(KindAuthorization, "Your account is already verified.")

	ErrUserNotFound = newError(KindNotFound, "User not found.")
)

// weakPasswordError carries the policy's own message while still matching
// ErrWeakPassword with errors.Is.
func weakPasswordError(policyErr error) error {
	return &Error{Kind: KindValidation, Message: policyErr.Error(), Err: ErrWeakPassword}
}

func internalError(op string, err error) error {
	return &Error{
		Kind:    KindInternal,
		Message: "Internal server error.",
		Err:     fmt.Errorf("%s: %w", op, err),
	}
}
