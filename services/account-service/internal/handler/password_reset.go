package handler

import (
	"net/http"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/usecase"
)

func (h *accountHTTPHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Every outcome gets the same response so it never tells whether the email
	// belongs to an account.
	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error().Err(err).Msg("failed to request password reset")
	}

	writeJSON(w, r, http.StatusOK, payload.MessageResponse{Message: usecase.ForgotPasswordMessage})
}

func (h *accountHTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(w, r, err, "failed to reset password")
		return
	}

	writeJSON(w, r, http.StatusOK, payload.MessageResponse{Message: "password has been reset"})
}

func (h *accountHTTPHandler) ValidatePasswordResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	if err := h.passwordResetUsecase.ValidatePasswordResetToken(r.Context(), token); err != nil {
		h.writeError(w, r, err, "failed to validate password reset token")
		return
	}

	writeJSON(w, r, http.StatusOK, payload.MessageResponse{Message: "token is valid"})
}
