package domain

import (
	"time"

	"github.com/google/uuid"
)

type InviteState string

const (
	InvitePending  InviteState = "PENDING"
	InviteAccepted InviteState = "ACCEPTED"
	InviteDeclined InviteState = "DECLINED"
	InviteExpired  InviteState = "EXPIRED"
)

// Invite is a peer-issued admission grant. The invitee is admitted
// optimistically at creation time and torn down again on decline or
// expiry.
type Invite struct {
	Tenant    TenantID
	Session   uuid.UUID
	Invitee   UserID
	Inviter   UserID
	State     InviteState
	CreatedAt time.Time
}
