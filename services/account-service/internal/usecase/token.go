package usecase

import (
	"time"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/accounts-api/shared/security"
)

// TokenIssuer issues opaque verification tokens. Persisting the token is the
// caller's responsibility.
type TokenIssuer interface {
	Issue(purpose model.TokenPurpose, ttl time.Duration) (*model.VerificationToken, error)
}

type randomTokenIssuer struct {
	now func() time.Time
}

// NewTokenIssuer creates a TokenIssuer backed by crypto/rand.
func NewTokenIssuer(now func() time.Time) TokenIssuer {
	return &randomTokenIssuer{now: now}
}

func (i *randomTokenIssuer) Issue(purpose model.TokenPurpose, ttl time.Duration) (*model.VerificationToken, error) {
	value, err := security.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	return &model.VerificationToken{
		Value:     value,
		Purpose:   purpose,
		ExpiresAt: i.now().Add(ttl),
	}, nil
}
