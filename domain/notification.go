package domain

import (
	"time"

	"github.com/google/uuid"
)

type NoticeKind string

const (
	// NoticeSeatOffer grants a freed seat; Deadline bounds the acceptance
	// window.
	NoticeSeatOffer NoticeKind = "SEAT_OFFER"
	// NoticeOfferExpired tells a user their offer lapsed and they were
	// requeued at Position.
	NoticeOfferExpired     NoticeKind = "OFFER_EXPIRED"
	NoticeMovedToWaitlist  NoticeKind = "MOVED_TO_WAITLIST"
	NoticeMovedToRoster    NoticeKind = "MOVED_TO_ROSTER"
	NoticePaymentOverdue   NoticeKind = "PAYMENT_OVERDUE"
	NoticePaymentReview    NoticeKind = "PAYMENT_REVIEW"
	NoticePaymentConfirmed NoticeKind = "PAYMENT_CONFIRMED"
	NoticePaymentRejected  NoticeKind = "PAYMENT_REJECTED"
	NoticeAutoSignup       NoticeKind = "AUTO_SIGNUP"
	// NoticeInvite carries a peer invitation; Deadline bounds the
	// accept/decline window.
	NoticeInvite         NoticeKind = "INVITE"
	NoticeInviteExpired  NoticeKind = "INVITE_EXPIRED"
	NoticeSessionUpdated NoticeKind = "SESSION_UPDATED"
	// NoticeSessionOpened is the broadcast sent when a session opens for
	// sign-up. Auto-admitted users are excluded; they already got an
	// AUTO_SIGNUP notice.
	NoticeSessionOpened NoticeKind = "SESSION_OPENED"
	NoticeReminder      NoticeKind = "REMINDER"
	// NoticeParticipantDemoted goes to the organizer when the payment
	// sweep demotes a participant; User names the demoted participant.
	NoticeParticipantDemoted NoticeKind = "PARTICIPANT_DEMOTED"
)

// Notification is the structured payload handed to the Notifier. Rendering
// is owned entirely by the delivery layer.
type Notification struct {
	Kind    NoticeKind
	Tenant  TenantID
	Session uuid.UUID
	// User is an auxiliary subject (e.g. the demoted participant in an
	// organizer notice, or the inviter in an invite), not the recipient.
	User UserID
	// Position is a waitlist position when the kind carries one.
	Position int
	// Deadline bounds a time-boxed action (offer or invite acceptance).
	Deadline time.Time
}
