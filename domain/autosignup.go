package domain

import (
	"time"

	"github.com/google/uuid"
)

// AutoSignupAccount holds a user's consumable pre-booking credits.
// Accounts are created lazily with a balance of one on first read.
type AutoSignupAccount struct {
	Tenant  TenantID
	User    UserID
	Balance int
}

// AutoSignupRequest queues a user for automatic admission when a closed
// session opens. Requests are served in request order.
type AutoSignupRequest struct {
	Tenant      TenantID
	Session     uuid.UUID
	User        UserID
	RequestedAt time.Time
}
