package usecase

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/notification"
	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/repository"
	"github.com/vasapolrittideah/accounts-api/shared/auth"
)

// --- repository ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*model.User

	saveErr error
	saves   int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[bson.ObjectID]*model.User)}
}

var errDuplicate = mongo.WriteException{
	WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
}

func cloneUser(u *model.User) *model.User {
	c := *u
	if u.PendingChange != nil {
		pc := *u.PendingChange
		c.PendingChange = &pc
	}
	if u.VerificationToken != nil {
		tok := *u.VerificationToken
		c.VerificationToken = &tok
	}
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		c.LastLoginAt = &at
	}
	return &c
}

func (r *memUserRepo) violatesUnique(u *model.User) bool {
	for id, other := range r.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username || other.Email == u.Email {
			return true
		}
		if u.VerificationToken != nil && other.VerificationToken != nil &&
			u.VerificationToken.Value == other.VerificationToken.Value {
			return true
		}
	}
	return false
}

func (r *memUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = bson.NewObjectID()
	if r.violatesUnique(user) {
		return nil, errDuplicate
	}
	user.Version = 1
	r.users[user.ID] = cloneUser(user)

	return cloneUser(user), nil
}

func (r *memUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	u, ok := r.users[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *memUserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.User
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *memUserRepo) GetUserByToken(
	_ context.Context,
	value string,
	purposes []model.TokenPurpose,
	now time.Time,
) (*model.User, error) {
	return r.find(func(u *model.User) bool {
		t := u.VerificationToken
		return t != nil && t.Value == value && slices.Contains(purposes, t.Purpose) && t.ExpiresAt.After(now)
	})
}

func (r *memUserRepo) SaveUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves++
	if r.saveErr != nil {
		return nil, r.saveErr
	}

	stored, ok := r.users[user.ID]
	if !ok || stored.Version != user.Version {
		return nil, repository.ErrVersionConflict
	}
	if r.violatesUnique(user) {
		return nil, errDuplicate
	}

	saved := cloneUser(user)
	saved.Version++
	saved.LastLoginAt = stored.LastLoginAt
	r.users[user.ID] = saved

	return cloneUser(saved), nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	u, ok := r.users[objectID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	u.LastLoginAt = &at
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *memUserRepo) mustGet(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := r.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

// --- collaborators ---

type sentNotification struct {
	kind notification.Kind
	to   string
	data notification.Data
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, kind notification.Kind, to string, data notification.Data) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{kind: kind, to: to, data: data})
	return nil
}

func (n *fakeNotifier) last(t *testing.T) sentNotification {
	t.Helper()
	require.NotEmpty(t, n.sent, "no notification sent")
	return n.sent[len(n.sent)-1]
}

// tokenFromLink extracts the token query value from an emailed link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token, "link %q has no token", link)
	return token
}

var errSMTPDown = errors.New("smtp: connection refused")

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(password, encodedHash string) (bool, error) {
	return encodedHash == "hashed:"+password, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// --- environment ---

type testEnv struct {
	repo     *memUserRepo
	notifier *fakeNotifier
	clock    *fakeClock
	cfg      *config.AccountServiceConfig

	engine   VerificationEngine
	accounts AccountUsecase
	resets   PasswordResetUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	repo := newMemUserRepo()
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	cfg := &config.AccountServiceConfig{
		AppVerifyURL:        "https://app.local/verify",
		AppPasswordResetURL: "https://app.local/reset",
		MinPasswordLength:   6,
		Token: config.TokenConfig{
			Issuer:                      "accounts-api",
			AccessTokenSecret:           "0123456789abcdef0123456789abcdef",
			AccessTokenExpiresIn:        15 * time.Minute,
			VerificationTokenExpiresIn:  24 * time.Hour,
			PasswordResetTokenExpiresIn: time.Hour,
		},
	}

	tokens := NewTokenIssuer(clock.Now)
	hasher := fakeHasher{}
	engine := NewVerificationEngine(repo, hasher, notifier, tokens, cfg, &logger, clock.Now)
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.Issuer)

	return &testEnv{
		repo:     repo,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
		engine:   engine,
		accounts: NewAccountUsecase(repo, engine, hasher, notifier, tokens, jwtAuth, cfg, &logger, clock.Now),
		resets:   NewPasswordResetUsecase(repo, hasher, notifier, tokens, cfg, &logger, clock.Now),
	}
}

// registerVerified creates an account and confirms its signup token.
func (e *testEnv) registerVerified(t *testing.T, username, email, password string) *model.User {
	t.Helper()
	ctx := context.Background()

	res, err := e.accounts.Register(ctx, RegisterParams{Username: username, Email: email, Password: password})
	require.NoError(t, err)

	_, err = e.accounts.ConfirmVerification(ctx, tokenFromLink(t, e.notifier.last(t).data.Link))
	require.NoError(t, err)

	return e.repo.mustGet(t, res.User.ID)
}

func strPtr(s string) *string { return &s }
