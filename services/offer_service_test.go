package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roster-lab/domain"
	"roster-lab/errors"
)

func TestOfferService_AcceptOffer_BecomesActive(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 1)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob")

	// Given: alice cancels, bob holds a pending offer
	req.NoError(f.enrollment.Cancel(ctx, "club-a", session.ID, "alice"))

	// When: bob accepts within the window
	f.clock.Advance(OfferWindow - time.Minute)
	req.NoError(f.offers.AcceptOffer(ctx, "club-a", session.ID, "bob"))

	enrollments, err := f.enrollment.ListEnrollments("club-a", session.ID)
	req.NoError(err)
	req.Len(enrollments, 1)
	req.Equal(domain.AdmissionActive, enrollments[0].Admission)
	req.Nil(enrollments[0].OfferedAt)
}

func TestOfferService_AcceptOffer_NoPendingOffer(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 2)
	f.enrollAll(t, "club-a", session.ID, "alice")

	// Active enrollment is not an offer
	err := f.offers.AcceptOffer(ctx, "club-a", session.ID, "alice")
	req.ErrorIs(err, errors.ErrOfferNotFound)

	// Neither is no enrollment at all
	err = f.offers.AcceptOffer(ctx, "club-a", session.ID, "ghost")
	req.ErrorIs(err, errors.ErrOfferNotFound)
}

func TestOfferService_AcceptOffer_AfterWindow(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 1)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob", "carol")
	req.NoError(f.enrollment.Cancel(ctx, "club-a", session.ID, "alice"))
	f.resetSent()

	// When: bob sits on the offer past the window
	f.clock.Advance(OfferWindow + time.Minute)
	err := f.offers.AcceptOffer(ctx, "club-a", session.ID, "bob")

	// Then: The stale offer is rejected, bob is requeued at the tail and
	// the seat moves on to carol
	req.ErrorIs(err, errors.ErrOfferExpired)

	waitlist, err := f.enrollment.ListWaitlist("club-a", session.ID)
	req.NoError(err)
	req.Len(waitlist, 1)
	req.Equal(domain.UserID("bob"), waitlist[0].User)

	offers := f.noticesOf(domain.NoticeSeatOffer)
	req.Len(offers, 1)
	req.Equal(domain.UserID("carol"), offers[0].Recipient)
}

func TestOfferService_DeclineOffer_SeatMovesOn(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 1)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob", "carol")
	req.NoError(f.enrollment.Cancel(ctx, "club-a", session.ID, "alice"))
	f.resetSent()

	// When: bob declines
	req.NoError(f.offers.DeclineOffer(ctx, "club-a", session.ID, "bob"))

	// Then: bob is gone entirely, carol gets the offer
	waitlist, err := f.enrollment.ListWaitlist("club-a", session.ID)
	req.NoError(err)
	req.Empty(waitlist)

	offers := f.noticesOf(domain.NoticeSeatOffer)
	req.Len(offers, 1)
	req.Equal(domain.UserID("carol"), offers[0].Recipient)
}

func TestOfferService_SweepExpiredOffers_RotatesWaitlist(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 1)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob", "carol")
	req.NoError(f.enrollment.Cancel(ctx, "club-a", session.ID, "alice"))
	f.resetSent()

	// When: The sweep runs after the window elapses
	f.clock.Advance(OfferWindow + time.Minute)
	req.NoError(f.offers.SweepExpiredOffers(ctx))

	// Then: bob's offer lapsed; he is back at the tail with a notice
	expired := f.noticesOf(domain.NoticeOfferExpired)
	req.Len(expired, 1)
	req.Equal(domain.UserID("bob"), expired[0].Recipient)
	req.Equal(1, expired[0].Notice.Position)

	// And: carol holds the next offer
	offers := f.noticesOf(domain.NoticeSeatOffer)
	req.Len(offers, 1)
	req.Equal(domain.UserID("carol"), offers[0].Recipient)

	enrollments, err := f.enrollment.ListEnrollments("club-a", session.ID)
	req.NoError(err)
	req.Len(enrollments, 1)
	req.Equal(domain.UserID("carol"), enrollments[0].User)
	req.Equal(domain.AdmissionOfferPending, enrollments[0].Admission)
}

func TestOfferService_SweepExpiredOffers_LoneWaitlisterKeepsPriority(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 1)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob")
	req.NoError(f.enrollment.Cancel(ctx, "club-a", session.ID, "alice"))
	f.resetSent()

	// When: bob, the only one waiting, lets his offer lapse
	f.clock.Advance(OfferWindow + time.Minute)
	req.NoError(f.offers.SweepExpiredOffers(ctx))

	// Then: The requeue puts him back at the head, so he cycles straight
	// into a fresh offer instead of sitting next to an empty seat
	offers := f.noticesOf(domain.NoticeSeatOffer)
	req.Len(offers, 1)
	req.Equal(domain.UserID("bob"), offers[0].Recipient)

	enrollments, err := f.enrollment.ListEnrollments("club-a", session.ID)
	req.NoError(err)
	req.Len(enrollments, 1)
	req.Equal(domain.UserID("bob"), enrollments[0].User)
	req.Equal(domain.AdmissionOfferPending, enrollments[0].Admission)

	// And: A later sign-up lands behind the pending offer, not in the seat
	placement, err := f.enrollment.Enroll(ctx, "club-a", session.ID, "carol")
	req.NoError(err)
	req.Equal(domain.PlacedWaitlist, placement.Kind)
	req.Equal(1, placement.Position)
}

func TestOfferService_SweepExpiredOffers_FreshOfferUntouched(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 1)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob")
	req.NoError(f.enrollment.Cancel(ctx, "club-a", session.ID, "alice"))
	f.resetSent()

	f.clock.Advance(OfferWindow / 2)
	req.NoError(f.offers.SweepExpiredOffers(ctx))

	req.Empty(f.noticesOf(domain.NoticeOfferExpired))

	enrollments, err := f.enrollment.ListEnrollments("club-a", session.ID)
	req.NoError(err)
	req.Len(enrollments, 1)
	req.Equal(domain.AdmissionOfferPending, enrollments[0].Admission)
}
