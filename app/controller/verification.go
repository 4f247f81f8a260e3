package controller

import (
	"net/http"
	"net/url"

	httpdto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const passwordResetMessage = "Password has been reset successfully."

type VerificationController struct {
	sessions     service.SessionService
	metrics      *metrics.Metrics
	frontendURL  string
	exposeTokens bool
}

// NewVerificationController builds the email verification and password reset
// handlers. exposeTokens echoes fresh verification tokens in the response body
// and is meant for local development only.
func NewVerificationController(sessions service.SessionService, m *metrics.Metrics, frontendURL string, exposeTokens bool) *VerificationController {
	return &VerificationController{
		sessions:     sessions,
		metrics:      m,
		frontendURL:  frontendURL,
		exposeTokens: exposeTokens,
	}
}

func (c *VerificationController) RequestVerification(ctx echo.Context) error {
	userID := middleware.CurrentUserID(ctx)

	result, err := c.sessions.RequestEmailVerification(ctx.Request().Context(), userID)
	if err != nil {
		return respondError(ctx, err, logrus.Fields{"user_id": userID}, "Verification request")
	}

	c.metrics.ObserveAuthEvent("verification_request", "success")
	logrus.WithField("user_id", userID).Info("Verification token generated")

	data := httpdto.TokenMessageData{Message: result.Message}
	if c.exposeTokens {
		data.Token = result.Token
	}
	return ctx.JSON(http.StatusOK, httpdto.Success(data))
}

// Verify consumes the token from the emailed link and sends the browser back
// to the frontend with the outcome.
func (c *VerificationController) Verify(ctx echo.Context) error {
	status, err := c.sessions.VerifyEmail(ctx.Request().Context(), ctx.QueryParam("token"))
	if err != nil {
		logrus.WithError(err).Error("Email verification failed")
	}

	c.metrics.ObserveAuthEvent("verify", string(status))
	logrus.WithField("status", status).Info("Email verification handled")

	target := c.frontendURL + "/verify?status=" + url.QueryEscape(string(status))
	return ctx.Redirect(http.StatusFound, target)
}

func (c *VerificationController) RequestPasswordReset(ctx echo.Context) error {
	req, err := types.NewRequestPasswordResetRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset request")
		return badRequest(ctx, invalidBodyMessage)
	}

	result, err := c.sessions.RequestPasswordReset(ctx.Request().Context(), req.Email)
	if err != nil {
		return respondError(ctx, err, logrus.Fields{"email": service.RedactEmail(req.Email)}, "Password reset request")
	}

	c.metrics.ObserveAuthEvent("reset_request", "success")
	return ctx.JSON(http.StatusOK, httpdto.Success(httpdto.MessageData{Message: result.Message}))
}

func (c *VerificationController) ResetPassword(ctx echo.Context) error {
	req, err := types.NewResetPasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind reset password request")
		return badRequest(ctx, invalidBodyMessage)
	}

	if err = c.sessions.ResetPassword(ctx.Request().Context(), req.Token, req.NewPassword); err != nil {
		c.metrics.ObserveAuthEvent("reset", "rejected")
		return respondError(ctx, err, nil, "Password reset")
	}

	c.metrics.ObserveAuthEvent("reset", "success")
	logrus.Info("Password reset")
	return ctx.JSON(http.StatusOK, httpdto.Success(httpdto.MessageData{Message: passwordResetMessage}))
}
