package payload

import "time"

type RegisterRequest struct {
	Username string `json:"username" validate:"required,notblank,max=64"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	User                  UserResponse `json:"user"`
	VerificationEmailSent bool         `json:"verification_email_sent"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User                 UserResponse `json:"user"`
	AccessToken          string       `json:"access_token"`
	AccessTokenExpiresAt time.Time    `json:"access_token_expires_at"`
}

type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type VerifyResponse struct {
	User    UserResponse `json:"user"`
	Outcome string       `json:"outcome"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
