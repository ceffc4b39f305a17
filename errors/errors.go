package errors

import "fmt"

// Business-rule violations are expected outcomes. They are returned to the
// caller and matched with errors.Is, never raised as panics.
var (
	ErrSessionNotFound    = fmt.Errorf("session not found")
	ErrSessionClosed      = fmt.Errorf("session is closed")
	ErrSessionNotClosed   = fmt.Errorf("session is not closed")
	ErrAlreadyEnrolled    = fmt.Errorf("user already enrolled or waitlisted")
	ErrNotEnrolled        = fmt.Errorf("user is not enrolled")
	ErrNotWaitlisted      = fmt.Errorf("user is not on the waitlist")
	ErrOfferNotFound      = fmt.Errorf("no pending seat offer")
	ErrOfferExpired       = fmt.Errorf("seat offer expired")
	ErrInsufficientCredit = fmt.Errorf("no auto-signup credit left")
	ErrQuotaExceeded      = fmt.Errorf("quota exceeded")
	ErrAlreadyRequested   = fmt.Errorf("auto-signup already requested")
	ErrUnknownUser        = fmt.Errorf("unknown user")
	ErrInviteExpired      = fmt.Errorf("invite expired or not pending")
	ErrInvalidCapacity    = fmt.Errorf("capacity must be positive")
)

// Infrastructure failures.
var (
	ErrDelivery    = fmt.Errorf("notification delivery failed")
	ErrWorkerPanic = fmt.Errorf("worker panic")
)
