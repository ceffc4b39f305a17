package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roster-lab/domain"
	"roster-lab/errors"
)

func TestPaymentService_MarkPending_NotifiesOrganizer(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 2)
	f.enrollAll(t, "club-a", session.ID, "alice")
	f.resetSent()

	req.NoError(f.payments.MarkPending(ctx, "club-a", session.ID, "alice"))

	enrollments, err := f.enrollment.ListEnrollments("club-a", session.ID)
	req.NoError(err)
	req.Equal(domain.PaymentAwaitingReview, enrollments[0].Payment)

	review := f.noticesOf(domain.NoticePaymentReview)
	req.Len(review, 1)
	req.Equal(domain.UserID("organizer"), review[0].Recipient)
	req.Equal(domain.UserID("alice"), review[0].Notice.User)
}

func TestPaymentService_ConfirmAndReject(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 2)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob")
	req.NoError(f.payments.MarkPending(ctx, "club-a", session.ID, "alice"))
	req.NoError(f.payments.MarkPending(ctx, "club-a", session.ID, "bob"))
	f.resetSent()

	req.NoError(f.payments.Confirm(ctx, "club-a", session.ID, "alice"))
	req.NoError(f.payments.Reject(ctx, "club-a", session.ID, "bob"))

	enrollments, err := f.enrollment.ListEnrollments("club-a", session.ID)
	req.NoError(err)
	byUser := map[domain.UserID]domain.PaymentState{}
	for _, e := range enrollments {
		byUser[e.User] = e.Payment
	}
	req.Equal(domain.PaymentConfirmed, byUser["alice"])
	req.Equal(domain.PaymentUnpaid, byUser["bob"])

	req.Len(f.noticesOf(domain.NoticePaymentConfirmed), 1)
	req.Len(f.noticesOf(domain.NoticePaymentRejected), 1)
}

func TestPaymentService_MarkPending_NotEnrolled(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	session := f.openSession(t, "club-a", 2)
	err := f.payments.MarkPending(context.Background(), "club-a", session.ID, "ghost")
	req.ErrorIs(err, errors.ErrNotEnrolled)
}

func TestPaymentService_Sweep_DemotesOverdue(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	req.NoError(f.sessions.UpdateSettings(domain.TenantSettings{
		Tenant:          "club-a",
		PaymentDeadline: 48 * time.Hour,
	}))

	session := f.openSession(t, "club-a", 2)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob", "carol")

	// alice pays in time, bob does not
	req.NoError(f.payments.MarkPending(ctx, "club-a", session.ID, "alice"))
	req.NoError(f.payments.Confirm(ctx, "club-a", session.ID, "alice"))
	f.resetSent()

	f.clock.Advance(48*time.Hour + time.Minute)
	req.NoError(f.payments.SweepPaymentDeadlines(ctx))

	// bob lost his seat to carol and sits at the waitlist tail
	overdue := f.noticesOf(domain.NoticePaymentOverdue)
	req.Len(overdue, 1)
	req.Equal(domain.UserID("bob"), overdue[0].Recipient)
	req.Equal(1, overdue[0].Notice.Position)

	demoted := f.noticesOf(domain.NoticeParticipantDemoted)
	req.Len(demoted, 1)
	req.Equal(domain.UserID("organizer"), demoted[0].Recipient)
	req.Equal(domain.UserID("bob"), demoted[0].Notice.User)

	offers := f.noticesOf(domain.NoticeSeatOffer)
	req.Len(offers, 1)
	req.Equal(domain.UserID("carol"), offers[0].Recipient)

	waitlist, err := f.enrollment.ListWaitlist("club-a", session.ID)
	req.NoError(err)
	req.Len(waitlist, 1)
	req.Equal(domain.UserID("bob"), waitlist[0].User)
}

func TestPaymentService_Sweep_DisabledWithoutDeadline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 2)
	f.enrollAll(t, "club-a", session.ID, "alice")
	f.resetSent()

	f.clock.Advance(30 * 24 * time.Hour)
	req.NoError(f.payments.SweepPaymentDeadlines(ctx))

	req.Empty(f.noticesOf(domain.NoticePaymentOverdue))
	enrollments, err := f.enrollment.ListEnrollments("club-a", session.ID)
	req.NoError(err)
	req.Len(enrollments, 1)
}

func TestPaymentService_Sweep_ReviewDoesNotHoldSeat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	req.NoError(f.sessions.UpdateSettings(domain.TenantSettings{
		Tenant:          "club-a",
		PaymentDeadline: 24 * time.Hour,
	}))

	session := f.openSession(t, "club-a", 1)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob")
	req.NoError(f.payments.MarkPending(ctx, "club-a", session.ID, "alice"))
	f.resetSent()

	f.clock.Advance(25 * time.Hour)
	req.NoError(f.payments.SweepPaymentDeadlines(ctx))

	// An unresolved review is not a confirmed payment; alice is demoted
	// and bob gets the seat offer
	overdue := f.noticesOf(domain.NoticePaymentOverdue)
	req.Len(overdue, 1)
	req.Equal(domain.UserID("alice"), overdue[0].Recipient)
	req.Equal(1, overdue[0].Notice.Position)

	offers := f.noticesOf(domain.NoticeSeatOffer)
	req.Len(offers, 1)
	req.Equal(domain.UserID("bob"), offers[0].Recipient)

	waitlist, err := f.enrollment.ListWaitlist("club-a", session.ID)
	req.NoError(err)
	req.Len(waitlist, 1)
	req.Equal(domain.UserID("alice"), waitlist[0].User)
}
