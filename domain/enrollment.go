package domain

import (
	"time"

	"github.com/google/uuid"
)

type AdmissionState string

const (
	AdmissionActive AdmissionState = "ACTIVE"
	// AdmissionOfferPending marks a seat offered from the waitlist and not
	// yet accepted. The enrollment counts toward capacity while pending.
	AdmissionOfferPending AdmissionState = "OFFER_PENDING"
)

type PaymentState string

const (
	PaymentUnpaid         PaymentState = "UNPAID"
	PaymentAwaitingReview PaymentState = "AWAITING_REVIEW"
	PaymentConfirmed      PaymentState = "CONFIRMED"
)

// Enrollment is a user's admitted place in a session. At most one exists
// per (user, session); a user is never enrolled and waitlisted at once.
type Enrollment struct {
	Tenant     TenantID
	Session    uuid.UUID
	User       UserID
	Admission  AdmissionState
	Payment    PaymentState
	EnrolledAt time.Time
	// OfferedAt is set only while Admission is OFFER_PENDING.
	OfferedAt *time.Time
}
