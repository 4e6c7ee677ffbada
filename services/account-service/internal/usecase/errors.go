package usecase

import (
	"errors"
	"fmt"
)

// Messages shared by every code path that must not reveal whether an account
// or a token exists.
const (
	LoginFailedMessage    = "invalid email or password"
	ForgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."
	InvalidTokenMessage   = "invalid or expired token"
)

var (
	ErrConflict      = errors.New("account already exists")
	ErrUsernameTaken = fmt.Errorf("%w: username is already taken", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("%w: email is already in use", ErrConflict)

	ErrValidation              = errors.New("validation failed")
	ErrUsernameRequired        = fmt.Errorf("%w: username is required", ErrValidation)
	ErrEmailRequired           = fmt.Errorf("%w: email is required", ErrValidation)
	ErrPasswordTooShort        = fmt.Errorf("%w: password is too short", ErrValidation)
	ErrCurrentPasswordRequired = fmt.Errorf("%w: current password is required to change the password", ErrValidation)

	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrIncorrectCurrentPassword = fmt.Errorf("%w: current password is incorrect", ErrInvalidCredentials)

	ErrInvalidOrExpiredToken  = errors.New(InvalidTokenMessage)
	ErrPendingChangeExists    = errors.New("pending changes exist, confirm them before requesting new ones")
	ErrNoOpRequest            = errors.New("no changes requested")
	ErrNotificationFailure    = errors.New("failed to send notification")
	ErrAlreadyVerified        = errors.New("email is already verified")
	ErrUserNotFound           = errors.New("user not found")
	ErrConcurrentModification = errors.New("account was modified by another request, please retry")
)
