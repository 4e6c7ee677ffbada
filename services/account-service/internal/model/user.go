package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents an account in the account service.
//
// A user carries at most one pending change batch and at most one active
// verification token at any time.
type User struct {
	ID                bson.ObjectID      `bson:"_id,omitempty"`
	Username          string             `bson:"username"`
	Email             string             `bson:"email"`
	PasswordHash      string             `bson:"password_hash"`
	EmailVerified     bool               `bson:"email_verified"`
	PendingChange     *PendingChange     `bson:"pending_change,omitempty"`
	VerificationToken *VerificationToken `bson:"verification_token,omitempty"`
	LastLoginAt       *time.Time         `bson:"last_login_at,omitempty"`
	Version           int64              `bson:"version"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

// VerificationState is the position of a user in the email verification workflow.
type VerificationState string

const (
	StateUnverified            VerificationState = "UNVERIFIED"
	StateVerifiedNoPending     VerificationState = "VERIFIED_NO_PENDING"
	StateVerifiedPendingChange VerificationState = "VERIFIED_PENDING_CHANGE"
)

// State reports the workflow state of the user at the given instant.
// An unverified user holding a live pending batch is reported as
// StateVerifiedPendingChange, since confirming it verifies the account.
func (u *User) State(now time.Time) VerificationState {
	if u.HasLivePendingChange(now) {
		return StateVerifiedPendingChange
	}
	if !u.EmailVerified {
		return StateUnverified
	}
	return StateVerifiedNoPending
}

// HasLivePendingChange reports whether the user has a staged batch that can
// still be confirmed, i.e. its profile-change token is present and unexpired.
func (u *User) HasLivePendingChange(now time.Time) bool {
	if u.PendingChange.Type() == ChangeTypeNone {
		return false
	}
	return u.VerificationToken.IsLive(TokenPurposeProfileChange, now)
}

// ApplyPendingChange copies every staged field onto the live record, marks the
// email as verified and clears both the batch and the token.
func (u *User) ApplyPendingChange() {
	if pc := u.PendingChange; pc != nil {
		if pc.Username != nil {
			u.Username = *pc.Username
		}
		if pc.Email != nil {
			u.Email = *pc.Email
		}
		if pc.PasswordHash != nil {
			u.PasswordHash = *pc.PasswordHash
		}
	}
	u.EmailVerified = true
	u.ClearVerification()
}

// ClearVerification drops the pending batch and the active token.
func (u *User) ClearVerification() {
	u.PendingChange = nil
	u.VerificationToken = nil
}
