package model

// ChangeType classifies a pending change batch by the fields it touches.
type ChangeType string

const (
	ChangeTypeNone     ChangeType = "none"
	ChangeTypeUsername ChangeType = "username"
	ChangeTypeEmail    ChangeType = "email"
	ChangeTypePassword ChangeType = "password"
	ChangeTypeMultiple ChangeType = "multiple"
)

// PendingChange is a staged, unapplied set of profile edits awaiting email
// confirmation. PasswordHash is always a hash, never a plaintext password.
//
// A nil *PendingChange is the "none" variant. Build values with NewPendingChange
// so that ChangeType always agrees with the populated fields.
type PendingChange struct {
	Username     *string    `bson:"username,omitempty"`
	Email        *string    `bson:"email,omitempty"`
	PasswordHash *string    `bson:"password_hash,omitempty"`
	ChangeType   ChangeType `bson:"change_type"`
}

// NewPendingChange builds a batch from the requested fields. It returns nil when
// no field is set.
func NewPendingChange(username, email, passwordHash *string) *PendingChange {
	pc := &PendingChange{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	pc.ChangeType = classify(pc)
	if pc.ChangeType == ChangeTypeNone {
		return nil
	}
	return pc
}

// Type returns the change type of the batch, ChangeTypeNone for a nil batch.
func (pc *PendingChange) Type() ChangeType {
	if pc == nil {
		return ChangeTypeNone
	}
	return classify(pc)
}

func classify(pc *PendingChange) ChangeType {
	var set []ChangeType
	if pc.Username != nil {
		set = append(set, ChangeTypeUsername)
	}
	if pc.Email != nil {
		set = append(set, ChangeTypeEmail)
	}
	if pc.PasswordHash != nil {
		set = append(set, ChangeTypePassword)
	}

	switch len(set) {
	case 0:
		return ChangeTypeNone
	case 1:
		return set[0]
	default:
		return ChangeTypeMultiple
	}
}
