package controller

import (
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const invalidBodyMessage = "Invalid request body"

// respondError writes the client-facing message of a service error. Internal
// failures are logged with their cause; everything else is a Warn.
func respondError(ctx echo.Context, err error, fields logrus.Fields, action string) error {
	status, message := httpdto.StatusForError(err)

	entry := logrus.WithFields(fields).WithField("status", status)
	if status == http.StatusInternalServerError {
		entry.WithError(err).Error(action + " failed")
	} else {
		entry.WithField("reason", message).Warn(action + " rejected")
	}

	return ctx.JSON(status, httpdto.Error(message))
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, httpdto.Error(message))
}
