package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/notification"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/repository"
	"github.com/vasapolrittideah/accounts-api/shared/auth"
)

// AccountUsecase defines the interface for account-related use cases.
type AccountUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*RegisterResult, error)
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)
	GetProfile(ctx context.Context, userID string) (*UserView, error)
	RequestProfileUpdate(ctx context.Context, userID string, params ProfileUpdateParams) (*StagedChange, error)
	ConfirmVerification(ctx context.Context, token string) (*ConfirmResult, error)
	ResendVerification(ctx context.Context, userID string) error
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// RegisterResult reports the created account. VerificationEmailSent is false
// when the signup email could not be delivered; the account exists regardless
// and the user has to request a new verification email.
type RegisterResult struct {
	User                  UserView
	VerificationEmailSent bool
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult holds the logged in user and its access token.
type LoginResult struct {
	User                 UserView
	AccessToken          string
	AccessTokenExpiresAt time.Time
}

// ProfileUpdateParams defines the requested profile changes. Nil fields are not changed.
type ProfileUpdateParams struct {
	Username        *string
	Email           *string
	Password        *string
	CurrentPassword *string
}

type accountUsecase struct {
	store    userStore
	engine   VerificationEngine
	hasher   CredentialVerifier
	notifier notification.Notifier
	tokens   TokenIssuer
	jwtAuth  auth.JWTAuthenticator
	cfg      *config.AccountServiceConfig
	logger   *zerolog.Logger
	now      func() time.Time

	dummyHashOnce sync.Once
	dummyHash     string
}

func NewAccountUsecase(
	userRepo repository.UserRepository,
	engine VerificationEngine,
	hasher CredentialVerifier,
	notifier notification.Notifier,
	tokens TokenIssuer,
	jwtAuth auth.JWTAuthenticator,
	cfg *config.AccountServiceConfig,
	logger *zerolog.Logger,
	now func() time.Time,
) AccountUsecase {
	return &accountUsecase{
		store:    userStore{userRepo: userRepo},
		engine:   engine,
		hasher:   hasher,
		notifier: notifier,
		tokens:   tokens,
		jwtAuth:  jwtAuth,
		cfg:      cfg,
		logger:   logger,
		now:      now,
	}
}

func (u *accountUsecase) Register(ctx context.Context, params RegisterParams) (*RegisterResult, error) {
	username := strings.TrimSpace(params.Username)
	email := normalizeEmail(params.Email)

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(params.Password) < u.cfg.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	existing, err := u.store.userRepo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if err := conflictFor(existing, bson.NilObjectID, username, email); err != nil {
		return nil, err
	}

	passwordHash, err := u.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	token, err := u.tokens.Issue(model.TokenPurposeSignup, u.cfg.Token.VerificationTokenExpiresIn)
	if err != nil {
		return nil, err
	}

	user, err := u.store.userRepo.CreateUser(ctx, &model.User{
		Username:          username,
		Email:             email,
		PasswordHash:      passwordHash,
		VerificationToken: token,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, u.store.classifyDuplicate(ctx, bson.NilObjectID, username, email)
		}

		return nil, err
	}

	sent := true
	if err := u.sendSignupEmail(ctx, user, token); err != nil {
		u.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("account created but verification email was not sent")
		sent = false
	}

	return &RegisterResult{
		User:                  newUserView(user),
		VerificationEmailSent: sent,
	}, nil
}

func (u *accountUsecase) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	user, err := u.store.userRepo.GetUserByEmail(ctx, normalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Keep timing equal to the found-user path.
			_, _ = u.hasher.Verify(params.Password, u.getDummyHash())
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if ok, err := u.hasher.Verify(params.Password, user.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	now := u.now()
	if err := u.store.userRepo.UpdateLastLogin(ctx, user.ID.Hex(), now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	accessToken, expiresAt, err := u.jwtAuth.IssueAccessToken(
		user.ID.Hex(),
		u.cfg.Token.AccessTokenSecret,
		u.cfg.Token.AccessTokenExpiresIn,
		now,
	)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:                 newUserView(user),
		AccessToken:          accessToken,
		AccessTokenExpiresAt: expiresAt,
	}, nil
}

func (u *accountUsecase) GetProfile(ctx context.Context, userID string) (*UserView, error) {
	user, err := u.store.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := newUserView(user)
	return &view, nil
}

func (u *accountUsecase) RequestProfileUpdate(
	ctx context.Context,
	userID string,
	params ProfileUpdateParams,
) (*StagedChange, error) {
	user, err := u.store.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	return u.engine.StageChange(ctx, user, ChangeRequest(params))
}

func (u *accountUsecase) ConfirmVerification(ctx context.Context, token string) (*ConfirmResult, error) {
	return u.engine.ConfirmToken(ctx, token)
}

func (u *accountUsecase) ResendVerification(ctx context.Context, userID string) error {
	user, err := u.store.get(ctx, userID)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	if user.HasLivePendingChange(u.now()) {
		return ErrPendingChangeExists
	}

	token, err := u.tokens.Issue(model.TokenPurposeSignup, u.cfg.Token.VerificationTokenExpiresIn)
	if err != nil {
		return err
	}
	user.VerificationToken = token

	saved, err := u.store.save(ctx, user)
	if err != nil {
		return err
	}

	if err := u.sendSignupEmail(ctx, saved, token); err != nil {
		u.logger.Error().Err(err).Str("user_id", saved.ID.Hex()).Msg("failed to resend verification email")
		return fmt.Errorf("%w: %w", ErrNotificationFailure, err)
	}

	return nil
}

func (u *accountUsecase) sendSignupEmail(ctx context.Context, user *model.User, token *model.VerificationToken) error {
	return u.notifier.Send(ctx, notification.KindSignup, user.Email, notification.Data{
		Username:  user.Username,
		Link:      verificationLink(u.cfg.AppVerifyURL, token.Value),
		ExpiresIn: u.cfg.Token.VerificationTokenExpiresIn,
	})
}

func (u *accountUsecase) getDummyHash() string {
	u.dummyHashOnce.Do(func() {
		hash, err := u.hasher.Hash("account-service-dummy-password")
		if err != nil {
			u.logger.Error().Err(err).Msg("failed to compute dummy password hash")
			return
		}
		u.dummyHash = hash
	})
	return u.dummyHash
}
