package controller

import (
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const logoutMessage = "Logged out successfully."

type AuthController struct {
	sessions service.SessionService
	metrics  *metrics.Metrics
}

func NewAuthController(sessions service.SessionService, m *metrics.Metrics) *AuthController {
	return &AuthController{sessions: sessions, metrics: m}
}

func (c *AuthController) Register(ctx echo.Context) error {
	req, err := types.NewRegisterRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return badRequest(ctx, invalidBodyMessage)
	}

	email := service.RedactEmail(req.Email)
	if err = req.Validate(); err != nil {
		logrus.WithField("email", email).Debug("Register validation failed")
		c.metrics.ObserveAuthEvent("register", "rejected")
		return badRequest(ctx, err.Error())
	}

	logrus.WithField("email", email).Info("Register request received")
	result, err := c.sessions.Register(ctx.Request().Context(), req)
	if err != nil {
		c.metrics.ObserveAuthEvent("register", "rejected")
		return respondError(ctx, err, logrus.Fields{"email": email}, "Register")
	}

	c.metrics.ObserveAuthEvent("register", "success")
	logrus.WithField("user_id", result.User.ID).Info("User registered")
	return ctx.JSON(http.StatusCreated, httpdto.Success(result))
}

func (c *AuthController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return badRequest(ctx, invalidBodyMessage)
	}

	email := service.RedactEmail(req.Email)
	if err = req.Validate(); err != nil {
		logrus.WithField("email", email).Debug("Login validation failed")
		c.metrics.ObserveAuthEvent("login", "rejected")
		return badRequest(ctx, err.Error())
	}

	result, err := c.sessions.Login(ctx.Request().Context(), req)
	if err != nil {
		c.metrics.ObserveAuthEvent("login", "rejected")
		return respondError(ctx, err, logrus.Fields{"email": email}, "Login")
	}

	c.metrics.ObserveAuthEvent("login", "success")
	logrus.WithField("user_id", result.User.ID).Info("Login successful")
	return ctx.JSON(http.StatusOK, httpdto.Success(result))
}

// Logout is not behind RequireAuth: an expired or already blacklisted access
// token must still reach the session service so it can answer precisely.
func (c *AuthController) Logout(ctx echo.Context) error {
	req, err := types.NewRefreshTokenRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind logout request")
		return badRequest(ctx, invalidBodyMessage)
	}

	accessToken := middleware.BearerToken(ctx.Request().Header.Get(echo.HeaderAuthorization))
	if err = c.sessions.Logout(ctx.Request().Context(), accessToken, req.RefreshToken); err != nil {
		c.metrics.ObserveAuthEvent("logout", "rejected")
		return respondError(ctx, err, nil, "Logout")
	}

	c.metrics.ObserveAuthEvent("logout", "success")
	logrus.Info("Logout successful")
	return ctx.JSON(http.StatusOK, httpdto.Success(httpdto.MessageData{Message: logoutMessage}))
}

func (c *AuthController) Refresh(ctx echo.Context) error {
	req, err := types.NewRefreshTokenRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind refresh request")
		return badRequest(ctx, invalidBodyMessage)
	}

	pair, err := c.sessions.Refresh(ctx.Request().Context(), req.RefreshToken)
	if err != nil {
		c.metrics.ObserveAuthEvent("refresh", "rejected")
		return respondError(ctx, err, logrus.Fields{"user_id": middleware.CurrentUserID(ctx)}, "Refresh")
	}

	c.metrics.ObserveAuthEvent("refresh", "success")
	logrus.WithField("user_id", middleware.CurrentUserID(ctx)).Debug("Tokens rotated")
	return ctx.JSON(http.StatusOK, httpdto.Success(pair))
}
