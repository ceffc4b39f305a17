package domain

import "time"

// TenantSettings carries per-organizer knobs. The zero value is valid:
// no payment deadline, unlimited invites.
type TenantSettings struct {
	Tenant TenantID
	// PaymentDeadline is how long an active enrollment may stay unpaid in
	// an open session before it is demoted to the waitlist. Zero disables
	// the enforcement.
	PaymentDeadline time.Duration
	// InviteLimit caps how many pending invites a user may issue per
	// session within a trailing hour. Zero means unlimited.
	InviteLimit int
}
