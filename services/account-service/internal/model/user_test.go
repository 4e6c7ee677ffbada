package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_State(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	live := &VerificationToken{Value: "t", Purpose: TokenPurposeProfileChange, ExpiresAt: now.Add(time.Hour)}
	expired := &VerificationToken{Value: "t", Purpose: TokenPurposeProfileChange, ExpiresAt: now.Add(-time.Second)}
	batch := NewPendingChange(ptr("bob"), nil, nil)

	tests := []struct {
		name string
		user User
		want VerificationState
	}{
		{name: "fresh signup", user: User{}, want: StateUnverified},
		{name: "verified", user: User{EmailVerified: true}, want: StateVerifiedNoPending},
		{
			name: "verified with live batch",
			user: User{EmailVerified: true, PendingChange: batch, VerificationToken: live},
			want: StateVerifiedPendingChange,
		},
		{
			name: "batch with expired token is stale",
			user: User{EmailVerified: true, PendingChange: batch, VerificationToken: expired},
			want: StateVerifiedNoPending,
		},
		{
			name: "batch superseded by a reset token is stale",
			user: User{
				EmailVerified:     true,
				PendingChange:     batch,
				VerificationToken: &VerificationToken{Purpose: TokenPurposePasswordReset, ExpiresAt: now.Add(time.Hour)},
			},
			want: StateVerifiedNoPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.State(now))
		})
	}
}

func TestUser_ApplyPendingChange(t *testing.T) {
	u := User{
		Username:          "alice",
		Email:             "alice@x.com",
		PasswordHash:      "old",
		PendingChange:     NewPendingChange(nil, ptr("new@x.com"), ptr("new-hash")),
		VerificationToken: &VerificationToken{Value: "t", Purpose: TokenPurposeProfileChange},
	}

	u.ApplyPendingChange()

	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "new@x.com", u.Email)
	assert.Equal(t, "new-hash", u.PasswordHash)
	assert.True(t, u.EmailVerified)
	assert.Nil(t, u.PendingChange)
	assert.Nil(t, u.VerificationToken)
}

func TestVerificationToken_IsLive(t *testing.T) {
	now := time.Now()
	tok := &VerificationToken{Purpose: TokenPurposeSignup, ExpiresAt: now.Add(time.Minute)}

	assert.True(t, tok.IsLive(TokenPurposeSignup, now))
	assert.False(t, tok.IsLive(TokenPurposePasswordReset, now))
	assert.False(t, tok.IsLive(TokenPurposeSignup, now.Add(time.Minute)))

	var none *VerificationToken
	assert.False(t, none.IsLive(TokenPurposeSignup, now))
}
