package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/notification"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/repository"
)

// VerificationEngine stages profile changes behind an emailed token and commits
// or discards them as a single batch.
type VerificationEngine interface {
	// StageChange validates the requested changes, stores them as the user's
	// pending batch together with a profile-change token, and emails the token.
	// If the email cannot be sent the batch is rolled back.
	StageChange(ctx context.Context, user *model.User, req ChangeRequest) (*StagedChange, error)

	// ConfirmToken verifies the account or applies the pending batch of the user
	// holding the given signup or profile-change token.
	ConfirmToken(ctx context.Context, token string) (*ConfirmResult, error)
}

// ChangeRequest holds the requested profile changes. Nil fields are left as is.
type ChangeRequest struct {
	Username        *string
	Email           *string
	Password        *string
	CurrentPassword *string
}

// StagedChange describes a batch waiting for confirmation.
type StagedChange struct {
	User        UserView
	ChangeType  model.ChangeType
	TargetEmail string
}

// VerificationOutcome tells the caller what a confirmed token did.
type VerificationOutcome string

const (
	OutcomeAccountVerified VerificationOutcome = "account_verified"
	OutcomeChangesApplied  VerificationOutcome = "changes_applied"
)

// ConfirmResult is returned by a successful ConfirmToken.
type ConfirmResult struct {
	User    UserView
	Outcome VerificationOutcome
}

type verificationEngine struct {
	store    userStore
	hasher   CredentialVerifier
	notifier notification.Notifier
	tokens   TokenIssuer
	cfg      *config.AccountServiceConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewVerificationEngine creates a VerificationEngine.
func NewVerificationEngine(
	userRepo repository.UserRepository,
	hasher CredentialVerifier,
	notifier notification.Notifier,
	tokens TokenIssuer,
	cfg *config.AccountServiceConfig,
	logger *zerolog.Logger,
	now func() time.Time,
) VerificationEngine {
	return &verificationEngine{
		store:    userStore{userRepo: userRepo},
		hasher:   hasher,
		notifier: notifier,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
		now:      now,
	}
}

func (e *verificationEngine) StageChange(
	ctx context.Context,
	user *model.User,
	req ChangeRequest,
) (*StagedChange, error) {
	if user.HasLivePendingChange(e.now()) {
		return nil, ErrPendingChangeExists
	}

	if req.Password != nil && len(*req.Password) < e.cfg.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	var newUsername, newEmail, newPasswordHash *string

	if req.Username != nil {
		if username := strings.TrimSpace(*req.Username); username != "" && username != user.Username {
			newUsername = &username
		}
	}
	if req.Email != nil {
		if email := normalizeEmail(*req.Email); email != "" && email != user.Email {
			newEmail = &email
		}
	}

	if err := e.checkAvailable(ctx, user, newUsername, newEmail); err != nil {
		return nil, err
	}

	if req.Password != nil {
		hash, err := e.stagePassword(user, *req.Password, req.CurrentPassword)
		if err != nil {
			return nil, err
		}
		newPasswordHash = hash
	}

	pending := model.NewPendingChange(newUsername, newEmail, newPasswordHash)
	if pending == nil {
		return nil, ErrNoOpRequest
	}

	token, err := e.tokens.Issue(model.TokenPurposeProfileChange, e.cfg.Token.VerificationTokenExpiresIn)
	if err != nil {
		return nil, err
	}

	staged := *user
	staged.PendingChange = pending
	staged.VerificationToken = token

	saved, err := e.store.save(ctx, &staged)
	if err != nil {
		return nil, err
	}

	target := saved.Email
	if pending.Email != nil {
		target = *pending.Email
	}

	if err := e.notifier.Send(ctx, notification.KindProfileChange, target, notification.Data{
		Username:   saved.Username,
		Link:       verificationLink(e.cfg.AppVerifyURL, token.Value),
		ExpiresIn:  e.cfg.Token.VerificationTokenExpiresIn,
		ChangeType: string(pending.ChangeType),
	}); err != nil {
		e.logger.Error().Err(err).Str("user_id", saved.ID.Hex()).Msg("failed to send profile change email")

		if rbErr := e.rollback(ctx, saved, user.VerificationToken); rbErr != nil {
			return nil, fmt.Errorf("%w: %w (rollback failed: %w)", ErrNotificationFailure, err, rbErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrNotificationFailure, err)
	}

	e.logger.Info().
		Str("user_id", saved.ID.Hex()).
		Str("change_type", string(pending.ChangeType)).
		Msg("profile change staged")

	return &StagedChange{
		User:        newUserView(saved),
		ChangeType:  pending.ChangeType,
		TargetEmail: target,
	}, nil
}

func (e *verificationEngine) ConfirmToken(ctx context.Context, token string) (*ConfirmResult, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := e.store.userRepo.GetUserByToken(
		ctx,
		token,
		[]model.TokenPurpose{model.TokenPurposeSignup, model.TokenPurposeProfileChange},
		e.now(),
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	original := *user

	outcome := OutcomeAccountVerified
	if user.VerificationToken.Purpose == model.TokenPurposeProfileChange && user.PendingChange != nil {
		outcome = OutcomeChangesApplied
		user.ApplyPendingChange()
	} else {
		user.EmailVerified = true
		user.ClearVerification()
	}

	saved, err := e.store.save(ctx, user)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			e.discardBatch(ctx, &original)
		}
		return nil, err
	}

	e.logger.Info().Str("user_id", saved.ID.Hex()).Str("outcome", string(outcome)).Msg("verification token confirmed")

	return &ConfirmResult{
		User:    newUserView(saved),
		Outcome: outcome,
	}, nil
}

func (e *verificationEngine) checkAvailable(ctx context.Context, user *model.User, username, email *string) error {
	if username == nil && email == nil {
		return nil
	}

	var u, m string
	if username != nil {
		u = *username
	}
	if email != nil {
		m = *email
	}

	users, err := e.store.userRepo.FindByUsernameOrEmail(ctx, u, m)
	if err != nil {
		return err
	}

	return conflictFor(users, user.ID, u, m)
}

// stagePassword checks the current-password proof and returns the hash of the
// new password, or nil when the new password equals the current one.
func (e *verificationEngine) stagePassword(user *model.User, password string, current *string) (*string, error) {
	if current == nil || *current == "" {
		return nil, ErrCurrentPasswordRequired
	}

	ok, err := e.hasher.Verify(*current, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIncorrectCurrentPassword
	}

	if password == *current {
		return nil, nil
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	return &hash, nil
}

// rollback discards the batch staged on user and puts back the token the user
// held before staging. It runs even if ctx was cancelled.
func (e *verificationEngine) rollback(
	ctx context.Context,
	user *model.User,
	previous *model.VerificationToken,
) error {
	reverted := *user
	reverted.PendingChange = nil
	reverted.VerificationToken = previous

	if _, err := e.store.save(context.WithoutCancel(ctx), &reverted); err != nil {
		e.logger.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to roll back staged profile change")
		return err
	}

	return nil
}

// discardBatch drops a batch that can no longer be committed because another
// user took one of its values. The live fields stay as they are.
func (e *verificationEngine) discardBatch(ctx context.Context, user *model.User) {
	user.ClearVerification()

	if _, err := e.store.save(context.WithoutCancel(ctx), user); err != nil {
		e.logger.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to discard conflicting profile change")
		return
	}

	e.logger.Info().Str("user_id", user.ID.Hex()).Msg("discarded profile change that conflicts with another account")
}

// verificationLink adds the token to the query of baseURL, keeping any query
// parameters it already has.
func verificationLink(baseURL, token string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "?token=" + url.QueryEscape(token)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String()
}
