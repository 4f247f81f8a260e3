package http

import (
	"errors"
	nethttp "net/http"

	"github.com/vibast-solutions/ms-go-accounts/app/service"
)

// StatusForError maps a service error to its HTTP status and client message.
// Errors that are not *service.Error are reported as internal.
func StatusForError(err error) (int, string) {
	var appErr *service.Error
	if !errors.As(err, &appErr) {
		return nethttp.StatusInternalServerError, "Internal server error."
	}

	switch appErr.Kind {
	case service.KindValidation, service.KindConflict:
		return nethttp.StatusBadRequest, appErr.Message
	case service.KindAuthentication:
		return nethttp.StatusUnauthorized, appErr.Message
	case service.KindAuthorization:
		return nethttp.StatusForbidden, appErr.Message
	case service.KindNotFound:
		return nethttp.StatusNotFound, appErr.Message
	default:
		return nethttp.StatusInternalServerError, "Internal server error."
	}
}
