package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/notification"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/repository"
)

// PasswordResetUsecase defines the business logic for password reset token operations.
type PasswordResetUsecase interface {
	// RequestPasswordReset initiates the password reset process for a given email.
	// It succeeds whether or not the email belongs to an account; only a failed
	// email lookup is returned.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword replaces the password of the user holding the reset token.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// ValidatePasswordResetToken checks that the reset token is live without consuming it.
	ValidatePasswordResetToken(ctx context.Context, token string) error
}

type passwordResetUsecase struct {
	store    userStore
	hasher   CredentialVerifier
	notifier notification.Notifier
	tokens   TokenIssuer
	cfg      *config.AccountServiceConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	hasher CredentialVerifier,
	notifier notification.Notifier,
	tokens TokenIssuer,
	cfg *config.AccountServiceConfig,
	logger *zerolog.Logger,
	now func() time.Time,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		store:    userStore{userRepo: userRepo},
		hasher:   hasher,
		notifier: notifier,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
		now:      now,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.store.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// To prevent email enumeration, do not reveal that the email does not exist.
			return nil
		}
		return err
	}

	// Past this point only existing accounts can fail, so failures are logged
	// and the caller sees the same result as for an unknown email.
	if err := u.issueResetToken(ctx, user); err != nil {
		u.logger.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to issue password reset")
	}

	return nil
}

func (u *passwordResetUsecase) issueResetToken(ctx context.Context, user *model.User) error {
	previous := user.VerificationToken

	token, err := u.tokens.Issue(model.TokenPurposePasswordReset, u.cfg.Token.PasswordResetTokenExpiresIn)
	if err != nil {
		return err
	}
	user.VerificationToken = token

	saved, err := u.store.save(ctx, user)
	if err != nil {
		return err
	}

	if err := u.notifier.Send(ctx, notification.KindPasswordReset, saved.Email, notification.Data{
		Username:  saved.Username,
		Link:      verificationLink(u.cfg.AppPasswordResetURL, token.Value),
		ExpiresIn: u.cfg.Token.PasswordResetTokenExpiresIn,
	}); err != nil {
		saved.VerificationToken = previous
		if _, rbErr := u.store.save(context.WithoutCancel(ctx), saved); rbErr != nil {
			return fmt.Errorf("%w: %w (rollback failed: %w)", ErrNotificationFailure, err, rbErr)
		}

		return fmt.Errorf("%w: %w", ErrNotificationFailure, err)
	}

	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < u.cfg.MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := u.lookup(ctx, token)
	if err != nil {
		return err
	}

	passwordHash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = passwordHash
	user.VerificationToken = nil

	if _, err := u.store.save(ctx, user); err != nil {
		return err
	}

	u.logger.Info().Str("user_id", user.ID.Hex()).Msg("password reset")

	return nil
}

func (u *passwordResetUsecase) ValidatePasswordResetToken(ctx context.Context, token string) error {
	_, err := u.lookup(ctx, token)
	return err
}

func (u *passwordResetUsecase) lookup(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := u.store.userRepo.GetUserByToken(
		ctx,
		token,
		[]model.TokenPurpose{model.TokenPurposePasswordReset},
		u.now(),
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	return user, nil
}
