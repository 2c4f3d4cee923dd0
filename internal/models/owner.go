// internal/models/owner.go
package models

import "github.com/google/uuid"

// Owner identifies who a cart or order belongs to: a signed-in user or an
// anonymous session, never both. Construct through MemberOwner or GuestOwner
// so the exclusivity holds by construction.
type Owner struct {
	userID    *uuid.UUID
	sessionID string
}

func MemberOwner(userID uuid.UUID) Owner {
	return Owner{userID: &userID}
}

func GuestOwner(sessionID string) Owner {
	return Owner{sessionID: sessionID}
}

func (o Owner) IsMember() bool {
	return o.userID != nil
}

func (o Owner) IsZero() bool {
	return o.userID == nil && o.sessionID == ""
}

// UserID returns the member id, or nil for a guest.
func (o Owner) UserID() *uuid.UUID {
	if o.userID == nil {
		return nil
	}
	id := *o.userID
	return &id
}

// SessionID returns the guest session id, or nil for a member.
func (o Owner) SessionID() *string {
	if o.userID != nil || o.sessionID == "" {
		return nil
	}
	sid := o.sessionID
	return &sid
}
