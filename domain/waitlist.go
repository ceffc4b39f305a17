package domain

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistEntry is a reserve place behind a full session. Positions are
// dense 1..N in arrival order; removing an entry shifts every higher
// position down by one.
type WaitlistEntry struct {
	Tenant   TenantID
	Session  uuid.UUID
	User     UserID
	Position int
	JoinedAt time.Time
}
