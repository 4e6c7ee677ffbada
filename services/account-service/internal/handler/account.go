package handler

import (
	"net/http"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/accounts-api/shared/interceptor"
)

func (h *accountHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.accountUsecase.Register(r.Context(), usecase.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to register user")
		return
	}

	writeJSON(w, r, http.StatusCreated, payload.RegisterResponse{
		User:                  toUserResponse(res.User),
		VerificationEmailSent: res.VerificationEmailSent,
	})
}

func (h *accountHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.accountUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to login")
		return
	}

	writeJSON(w, r, http.StatusOK, payload.LoginResponse{
		User:                 toUserResponse(res.User),
		AccessToken:          res.AccessToken,
		AccessTokenExpiresAt: res.AccessTokenExpiresAt,
	})
}

// Verify confirms a signup or profile-change token, taken from the query
// string on GET and from the body on POST.
func (h *accountHTTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyRequest
	if r.Method == http.MethodGet {
		req.Token = r.URL.Query().Get("token")
		if err := h.validator.Validate(req); err != nil {
			writeJSON(w, r, http.StatusBadRequest, payload.ErrorResponse{Error: usecase.InvalidTokenMessage})
			return
		}
	} else if !h.decode(w, r, &req) {
		return
	}

	res, err := h.accountUsecase.ConfirmVerification(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, r, err, "failed to confirm verification token")
		return
	}

	writeJSON(w, r, http.StatusOK, payload.VerifyResponse{
		User:    toUserResponse(res.User),
		Outcome: string(res.Outcome),
	})
}

func (h *accountHTTPHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	claims, ok := interceptor.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, payload.ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.accountUsecase.ResendVerification(r.Context(), claims.UserID); err != nil {
		h.writeError(w, r, err, "failed to resend verification email")
		return
	}

	writeJSON(w, r, http.StatusOK, payload.MessageResponse{Message: "verification email sent"})
}

func (h *accountHTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := interceptor.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, payload.ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.accountUsecase.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, r, err, "failed to get profile")
		return
	}

	writeJSON(w, r, http.StatusOK, toUserResponse(*user))
}

func (h *accountHTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := interceptor.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, payload.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req payload.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	staged, err := h.accountUsecase.RequestProfileUpdate(r.Context(), claims.UserID, usecase.ProfileUpdateParams{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to request profile update")
		return
	}

	writeJSON(w, r, http.StatusAccepted, payload.UpdateProfileResponse{
		Message:     "a verification link has been sent to " + staged.TargetEmail,
		User:        toUserResponse(staged.User),
		ChangeType:  string(staged.ChangeType),
		TargetEmail: staged.TargetEmail,
	})
}
