//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/model"
)

func setupRepository(t *testing.T) UserRepository {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate mongo container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	logger := zerolog.Nop()
	return NewUserMongoRepository(ctx, &logger, client.Database("accounts_test"))
}

func newUser(username, email string, token *model.VerificationToken) *model.User {
	return &model.User{
		Username:          username,
		Email:             email,
		PasswordHash:      "hash",
		VerificationToken: token,
	}
}

func TestUserMongoRepository(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	signup := &model.VerificationToken{Value: "tok-1", Purpose: model.TokenPurposeSignup, ExpiresAt: now.Add(time.Hour)}
	alice, err := repo.CreateUser(ctx, newUser("alice", "alice@x.com", signup))
	require.NoError(t, err)
	require.False(t, alice.ID.IsZero())
	assert.EqualValues(t, 1, alice.Version)

	t.Run("unique indexes", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, newUser("alice", "other@x.com", nil))
		assert.True(t, mongo.IsDuplicateKeyError(err))

		_, err = repo.CreateUser(ctx, newUser("other", "alice@x.com", nil))
		assert.True(t, mongo.IsDuplicateKeyError(err))

		dupToken := *signup
		_, err = repo.CreateUser(ctx, newUser("carol", "carol@x.com", &dupToken))
		assert.True(t, mongo.IsDuplicateKeyError(err))
	})

	t.Run("users without tokens do not collide", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, newUser("bob", "bob@x.com", nil))
		require.NoError(t, err)
		_, err = repo.CreateUser(ctx, newUser("dave", "dave@x.com", nil))
		require.NoError(t, err)

		users, err := repo.FindByUsernameOrEmail(ctx, "bob", "alice@x.com")
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("token lookup honors purpose and expiry", func(t *testing.T) {
		found, err := repo.GetUserByToken(ctx, "tok-1", []model.TokenPurpose{model.TokenPurposeSignup}, now)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, found.ID)

		_, err = repo.GetUserByToken(ctx, "tok-1", []model.TokenPurpose{model.TokenPurposePasswordReset}, now)
		assert.ErrorIs(t, err, mongo.ErrNoDocuments)

		_, err = repo.GetUserByToken(ctx, "tok-1", []model.TokenPurpose{model.TokenPurposeSignup}, now.Add(time.Hour))
		assert.ErrorIs(t, err, mongo.ErrNoDocuments)
	})

	t.Run("save stages and clears a pending batch", func(t *testing.T) {
		current, err := repo.GetUser(ctx, alice.ID.Hex())
		require.NoError(t, err)

		newName := "alice2"
		current.PendingChange = model.NewPendingChange(&newName, nil, nil)
		current.VerificationToken = &model.VerificationToken{
			Value:     "tok-2",
			Purpose:   model.TokenPurposeProfileChange,
			ExpiresAt: now.Add(time.Hour),
		}

		staged, err := repo.SaveUser(ctx, current)
		require.NoError(t, err)
		assert.Equal(t, current.Version+1, staged.Version)
		require.NotNil(t, staged.PendingChange)
		assert.Equal(t, model.ChangeTypeUsername, staged.PendingChange.ChangeType)
		assert.Equal(t, "alice", staged.Username)

		_, err = repo.SaveUser(ctx, current)
		assert.ErrorIs(t, err, ErrVersionConflict, "stale version must not overwrite")

		staged.ApplyPendingChange()
		applied, err := repo.SaveUser(ctx, staged)
		require.NoError(t, err)
		assert.Equal(t, "alice2", applied.Username)
		assert.Nil(t, applied.PendingChange)
		assert.Nil(t, applied.VerificationToken)

		_, err = repo.GetUserByToken(ctx, "tok-2", []model.TokenPurpose{model.TokenPurposeProfileChange}, now)
		assert.ErrorIs(t, err, mongo.ErrNoDocuments, "token is single use")
	})

	t.Run("commit conflicting with another user leaves the record untouched", func(t *testing.T) {
		current, err := repo.GetUser(ctx, alice.ID.Hex())
		require.NoError(t, err)

		current.Username = "bob"
		_, err = repo.SaveUser(ctx, current)
		assert.True(t, mongo.IsDuplicateKeyError(err))

		reloaded, err := repo.GetUser(ctx, alice.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "alice2", reloaded.Username)
		assert.Equal(t, current.Version, reloaded.Version)
	})

	t.Run("last login", func(t *testing.T) {
		require.NoError(t, repo.UpdateLastLogin(ctx, alice.ID.Hex(), now))

		reloaded, err := repo.GetUser(ctx, alice.ID.Hex())
		require.NoError(t, err)
		require.NotNil(t, reloaded.LastLoginAt)
		assert.True(t, now.Equal(*reloaded.LastLoginAt))
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := repo.GetUser(ctx, "nope")
		assert.ErrorIs(t, err, mongo.ErrNoDocuments)
	})
}
