package usecase

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/repository"
)

// CredentialVerifier hashes passwords one way and verifies them in constant time.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// UserView is the public part of a user returned to callers.
type UserView struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
}

func newUserView(u *model.User) UserView {
	return UserView{
		ID:            u.ID.Hex(),
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// conflictFor reports which unique field of another user collides with
// username or email. Email conflicts take priority.
func conflictFor(users []*model.User, self bson.ObjectID, username, email string) error {
	usernameTaken := false
	for _, u := range users {
		if u.ID == self {
			continue
		}
		if email != "" && u.Email == email {
			return ErrEmailTaken
		}
		if username != "" && u.Username == username {
			usernameTaken = true
		}
	}

	if usernameTaken {
		return ErrUsernameTaken
	}
	return nil
}

// userStore wraps the repository with the error translation every usecase shares.
type userStore struct {
	userRepo repository.UserRepository
}

func (s userStore) get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// save persists user and maps lost races and unique-index violations to
// domain errors.
func (s userStore) save(ctx context.Context, user *model.User) (*model.User, error) {
	saved, err := s.userRepo.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConcurrentModification
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, s.classifyDuplicate(ctx, user.ID, user.Username, user.Email)
		}
		return nil, err
	}
	return saved, nil
}

func (s userStore) classifyDuplicate(ctx context.Context, self bson.ObjectID, username, email string) error {
	users, err := s.userRepo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return err
	}
	if err := conflictFor(users, self, username, email); err != nil {
		return err
	}
	return ErrConflict
}
