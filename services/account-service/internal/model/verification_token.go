package model

import "time"

// TokenPurpose scopes a verification token to the single flow it was issued for.
type TokenPurpose string

const (
	TokenPurposeSignup        TokenPurpose = "signup"
	TokenPurposeProfileChange TokenPurpose = "profile_change"
	TokenPurposePasswordReset TokenPurpose = "password_reset"
)

// VerificationToken is a single-use, time-limited credential proving control of
// an email address.
type VerificationToken struct {
	Value     string       `bson:"value"`
	Purpose   TokenPurpose `bson:"purpose"`
	ExpiresAt time.Time    `bson:"expires_at"`
}

// IsLive reports whether the token exists, has the given purpose and has not
// expired at now.
func (t *VerificationToken) IsLive(purpose TokenPurpose, now time.Time) bool {
	return t != nil && t.Purpose == purpose && now.Before(t.ExpiresAt)
}
