package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	httpdto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	ContextUser        = "user"
	ContextUserID      = "user_id"
	ContextAccessToken = "access_token"
)

type tokenAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*dto.PublicUser, error)
	AuthenticateRefresh(ctx context.Context, refreshToken string) (string, error)
}

type AuthMiddleware struct {
	authenticator tokenAuthenticator
	metrics       *metrics.Metrics
}

func NewAuthMiddleware(authenticator tokenAuthenticator, m *metrics.Metrics) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator, metrics: m}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
// Any other shape yields an empty string.
func BearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))

		user, err := m.authenticator.Authenticate(c.Request().Context(), token)
		if err != nil {
			return m.reject(c, err)
		}

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextAccessToken, token)

		return next(c)
	}
}

// RequireRefreshToken validates the refreshToken field of a JSON body and
// restores the body for the handler.
func (m *AuthMiddleware) RequireRefreshToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			var err error
			body, err = io.ReadAll(req.Body)
			if err != nil {
				logrus.WithError(err).Debug("Failed to read request body")
				return c.JSON(http.StatusBadRequest, httpdto.Error("Invalid request body"))
			}
		}
		req.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			RefreshToken string `json:"refreshToken"`
		}
		if len(body) > 0 {
			_ = json.Unmarshal(body, &payload)
		}

		userID, err := m.authenticator.AuthenticateRefresh(req.Context(), payload.RefreshToken)
		if err != nil {
			return m.reject(c, err)
		}

		c.Set(ContextUserID, userID)
		return next(c)
	}
}

// RequireVerified must run after RequireAuth.
func (m *AuthMiddleware) RequireVerified(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil || !user.IsVerified {
			return m.reject(c, service.ErrUnverifiedAccount)
		}
		return next(c)
	}
}

// RequireUnverified must run after RequireAuth.
func (m *AuthMiddleware) RequireUnverified(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil {
			return m.reject(c, service.ErrAuthTokenMissing)
		}
		if user.IsVerified {
			return m.reject(c, service.ErrAlreadyVerified)
		}
		return next(c)
	}
}

func (m *AuthMiddleware) reject(c echo.Context, err error) error {
	status, message := httpdto.StatusForError(err)
	m.metrics.ObserveGateRejection(rejectionReason(err))

	entry := logrus.WithFields(logrus.Fields{
		"path":   c.Path(),
		"status": status,
	})
	if status == http.StatusInternalServerError {
		entry.WithError(err).Error("Auth gate failed")
	} else {
		entry.WithField("reason", message).Debug("Auth gate rejected request")
	}

	return c.JSON(status, httpdto.Error(message))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, service.ErrAuthTokenMissing), errors.Is(err, service.ErrMissingRefreshToken):
		return "missing"
	case errors.Is(err, service.ErrTokenInvalidated):
		return "invalidated"
	case errors.Is(err, service.ErrTokenExpired), errors.Is(err, service.ErrRefreshExpired):
		return "expired"
	case errors.Is(err, service.ErrTokenMalformed), errors.Is(err, service.ErrRefreshInvalid), errors.Is(err, service.ErrInvalidRefreshToken):
		return "invalid"
	case errors.Is(err, service.ErrAuthUserNotFound):
		return "unknown_user"
	case errors.Is(err, service.ErrUnverifiedAccount):
		return "unverified"
	case errors.Is(err, service.ErrAlreadyVerified):
		return "already_verified"
	default:
		return "error"
	}
}

func CurrentUser(c echo.Context) *dto.PublicUser {
	user, _ := c.Get(ContextUser).(*dto.PublicUser)
	return user
}

func CurrentUserID(c echo.Context) string {
	id, _ := c.Get(ContextUserID).(string)
	return id
}

func AccessToken(c echo.Context) string {
	token, _ := c.Get(ContextAccessToken).(string)
	return token
}
