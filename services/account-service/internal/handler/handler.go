package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/accounts-api/shared/interceptor"
	"github.com/vasapolrittideah/accounts-api/shared/validation"
)

type accountHTTPHandler struct {
	accountUsecase       usecase.AccountUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	validator            *validation.Validator
	logger               *zerolog.Logger
}

// NewRouter builds the HTTP routes of the account service. authenticate guards
// the routes that act on the calling user.
func NewRouter(
	accountUsecase usecase.AccountUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	validator *validation.Validator,
	authenticate func(http.Handler) http.Handler,
	logger *zerolog.Logger,
) http.Handler {
	h := &accountHTTPHandler{
		accountUsecase:       accountUsecase,
		passwordResetUsecase: passwordResetUsecase,
		validator:            validator,
		logger:               logger,
	}

	r := chi.NewRouter()
	r.Use(interceptor.RequestID)
	r.Use(interceptor.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/verify", h.Verify)
		r.Get("/verify", h.Verify)
		r.With(authenticate).Post("/verify/resend", h.ResendVerification)

		r.Post("/password/forgot", h.RequestPasswordReset)
		r.Post("/password/reset", h.ResetPassword)
		r.Get("/password/reset/validate", h.ValidatePasswordResetToken)
	})

	r.Route("/v1/users", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/me", h.GetProfile)
		r.Patch("/me", h.UpdateProfile)
	})

	return r
}

// decode reads and validates the JSON body into dst. It writes the error
// response itself and returns false when the request is unusable.
func (h *accountHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		writeJSON(w, r, http.StatusBadRequest, payload.ErrorResponse{Error: "invalid request body"})
		return false
	}

	if err := h.validator.Validate(dst); err != nil {
		resp := payload.ErrorResponse{Error: "validation failed"}

		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				resp.Fields = append(resp.Fields, payload.FieldError{Field: fe.Field, Message: fe.Message})
			}
		}

		writeJSON(w, r, http.StatusBadRequest, resp)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func toUserResponse(u usecase.UserView) payload.UserResponse {
	return payload.UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}
