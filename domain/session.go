package domain

import (
	"time"

	"github.com/google/uuid"
)

// TenantID identifies an organizer account. All session, enrollment and
// waitlist state is scoped to a tenant; tenants never share state.
type TenantID string

// UserID identifies a participant.
type UserID string

type SessionStatus string

const (
	SessionClosed SessionStatus = "CLOSED"
	SessionOpen   SessionStatus = "OPEN"
)

// Session is a capacity-limited, time-scheduled bookable event.
// Sessions are created CLOSED and admit nobody until opened.
type Session struct {
	ID          uuid.UUID
	Tenant      TenantID
	Organizer   UserID
	Capacity    int
	ScheduledAt time.Time
	Duration    time.Duration
	Kind        string
	Location    string
	Price       int64
	Status      SessionStatus
	CreatedAt   time.Time
}

func (s Session) IsOpen() bool {
	return s.Status == SessionOpen
}

// AutoSignupQuota is the maximum number of pre-booking requests a closed
// session accepts: half the capacity, rounded down.
func (s Session) AutoSignupQuota() int {
	return s.Capacity / 2
}
