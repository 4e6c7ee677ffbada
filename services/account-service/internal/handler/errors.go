package handler

import (
	"errors"
	"net/http"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/usecase"
)

// writeError maps a usecase error to its HTTP status and public message.
func (h *accountHTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status, public := http.StatusInternalServerError, "something went wrong"

	switch {
	case errors.Is(err, usecase.ErrEmailTaken):
		status, public = http.StatusConflict, "email is already in use"
	case errors.Is(err, usecase.ErrUsernameTaken):
		status, public = http.StatusConflict, "username is already taken"
	case errors.Is(err, usecase.ErrConflict):
		status, public = http.StatusConflict, usecase.ErrConflict.Error()
	case errors.Is(err, usecase.ErrPendingChangeExists):
		status, public = http.StatusConflict, usecase.ErrPendingChangeExists.Error()
	case errors.Is(err, usecase.ErrConcurrentModification):
		status, public = http.StatusConflict, usecase.ErrConcurrentModification.Error()
	case errors.Is(err, usecase.ErrAlreadyVerified):
		status, public = http.StatusConflict, usecase.ErrAlreadyVerified.Error()
	case errors.Is(err, usecase.ErrIncorrectCurrentPassword):
		status, public = http.StatusForbidden, "current password is incorrect"
	case errors.Is(err, usecase.ErrInvalidCredentials):
		status, public = http.StatusUnauthorized, usecase.LoginFailedMessage
	case errors.Is(err, usecase.ErrInvalidOrExpiredToken):
		status, public = http.StatusBadRequest, usecase.InvalidTokenMessage
	case errors.Is(err, usecase.ErrValidation):
		status, public = http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrNoOpRequest):
		status, public = http.StatusBadRequest, usecase.ErrNoOpRequest.Error()
	case errors.Is(err, usecase.ErrUserNotFound):
		status, public = http.StatusNotFound, usecase.ErrUserNotFound.Error()
	case errors.Is(err, usecase.ErrNotificationFailure):
		status, public = http.StatusServiceUnavailable, "failed to send email, please try again later"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(msg)
	} else {
		h.logger.Debug().Err(err).Msg(msg)
	}

	writeJSON(w, r, status, payload.ErrorResponse{Error: public})
}
