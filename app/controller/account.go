package controller

import (
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	profileUpdatedMessage     = "Profile updated successfully"
	credentialsUpdatedMessage = "Credentials updated successfully"
	accountDeletedMessage     = "Account deleted successfully."
)

type AccountController struct {
	accounts service.AccountService
}

func NewAccountController(accounts service.AccountService) *AccountController {
	return &AccountController{accounts: accounts}
}

func (c *AccountController) Profile(ctx echo.Context) error {
	userID := middleware.CurrentUserID(ctx)

	user, err := c.accounts.Profile(ctx.Request().Context(), userID)
	if err != nil {
		return respondError(ctx, err, logrus.Fields{"user_id": userID}, "Profile")
	}

	return ctx.JSON(http.StatusOK, httpdto.Success(httpdto.UserData{User: user}))
}

func (c *AccountController) UpdateProfile(ctx echo.Context) error {
	userID := middleware.CurrentUserID(ctx)

	req, err := types.NewUpdateProfileRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Debug("Failed to bind profile update")
		return badRequest(ctx, invalidBodyMessage)
	}

	user, err := c.accounts.UpdateProfile(ctx.Request().Context(), userID, req)
	if err != nil {
		return respondError(ctx, err, logrus.Fields{"user_id": userID}, "Profile update")
	}

	logrus.WithField("user_id", userID).Info("Profile updated")
	return ctx.JSON(http.StatusOK, httpdto.Success(httpdto.UserMessageData{
		Message: profileUpdatedMessage,
		User:    user,
	}))
}

func (c *AccountController) UpdateCredentials(ctx echo.Context) error {
	userID := middleware.CurrentUserID(ctx)

	req, err := types.NewUpdateCredentialsRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Debug("Failed to bind credentials update")
		return badRequest(ctx, invalidBodyMessage)
	}

	user, err := c.accounts.UpdateSensitiveData(ctx.Request().Context(), userID, req.CurrentPassword, service.SensitiveUpdate{
		NewEmail:    req.Email,
		NewPassword: req.Password,
	})
	if err != nil {
		return respondError(ctx, err, logrus.Fields{"user_id": userID}, "Credentials update")
	}

	logrus.WithField("user_id", userID).Info("Credentials updated")
	return ctx.JSON(http.StatusOK, httpdto.Success(httpdto.UserMessageData{
		Message: credentialsUpdatedMessage,
		User:    user,
	}))
}

func (c *AccountController) DeleteAccount(ctx echo.Context) error {
	userID := middleware.CurrentUserID(ctx)

	if err := c.accounts.DeleteAccount(ctx.Request().Context(), userID); err != nil {
		return respondError(ctx, err, logrus.Fields{"user_id": userID}, "Account deletion")
	}

	logrus.WithField("user_id", userID).Info("Account deleted")
	return ctx.JSON(http.StatusOK, httpdto.Success(httpdto.MessageData{Message: accountDeletedMessage}))
}
