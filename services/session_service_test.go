package services

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"roster-lab/domain"
	"roster-lab/errors"
)

func TestSessionService_Create_StartsClosed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.sessions.Create(ctx, CreateSessionRequest{
		Tenant:      "club-a",
		Organizer:   "organizer",
		Capacity:    8,
		ScheduledAt: f.clock.Now().Add(48 * time.Hour),
		Duration:    time.Hour,
		Kind:        "training",
		Location:    "hall 2",
		Price:       1500,
	})
	req.NoError(err)
	req.Equal(domain.SessionClosed, session.Status)
	req.Equal(4, session.AutoSignupQuota())

	fetched, err := f.sessions.Get("club-a", session.ID)
	req.NoError(err)
	req.Equal(session.ID, fetched.ID)
}

func TestSessionService_Create_InvalidCapacity(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, err := f.sessions.Create(context.Background(), CreateSessionRequest{
		Tenant:      "club-a",
		Organizer:   "organizer",
		Capacity:    0,
		ScheduledAt: f.clock.Now().Add(time.Hour),
	})
	req.ErrorIs(err, errors.ErrInvalidCapacity)
}

func TestSessionService_Open_Broadcast_ExcludesAutoAdmitted(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	// Given: Three registered users, one of them queued for auto-signup
	for _, u := range []domain.UserID{"alice", "bob", "carol"} {
		req.NoError(f.userRepo.Touch(u, f.clock.Now()))
	}
	session, err := f.sessions.Create(ctx, CreateSessionRequest{
		Tenant:      "club-a",
		Organizer:   "organizer",
		Capacity:    4,
		ScheduledAt: f.clock.Now().Add(24 * time.Hour),
	})
	req.NoError(err)
	req.NoError(f.autosignup.Request(ctx, "club-a", session.ID, "alice"))
	f.resetSent()

	// When: The session opens
	_, err = f.sessions.Open(ctx, "club-a", session.ID)
	req.NoError(err)

	// Then: alice gets the auto-signup notice, not the broadcast
	auto := f.noticesOf(domain.NoticeAutoSignup)
	req.Len(auto, 1)
	req.Equal(domain.UserID("alice"), auto[0].Recipient)

	opened := f.noticesOf(domain.NoticeSessionOpened)
	recipients := lo.Map(opened, func(n sentNotice, _ int) domain.UserID { return n.Recipient })
	req.NotContains(recipients, domain.UserID("alice"))
	req.Contains(recipients, domain.UserID("bob"))
	req.Contains(recipients, domain.UserID("carol"))
}

func TestSessionService_Open_AlreadyOpen(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	session := f.openSession(t, "club-a", 2)
	_, err := f.sessions.Open(context.Background(), "club-a", session.ID)
	req.ErrorIs(err, errors.ErrSessionNotClosed)
}

func TestSessionService_Close_WipesState(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 1)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob")

	// When: Closing
	req.NoError(f.sessions.Close(ctx, "club-a", session.ID))

	// Then: Roster and waitlist are gone, session is closed again
	record, err := f.sessions.Get("club-a", session.ID)
	req.NoError(err)
	req.Equal(domain.SessionClosed, record.Status)

	enrollments, err := f.enrollment.ListEnrollments("club-a", session.ID)
	req.NoError(err)
	req.Empty(enrollments)

	waitlist, err := f.enrollment.ListWaitlist("club-a", session.ID)
	req.NoError(err)
	req.Empty(waitlist)
}

func TestSessionService_Close_AlreadyClosed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.sessions.Create(ctx, CreateSessionRequest{
		Tenant:      "club-a",
		Organizer:   "organizer",
		Capacity:    2,
		ScheduledAt: f.clock.Now().Add(time.Hour),
	})
	req.NoError(err)
	req.ErrorIs(f.sessions.Close(ctx, "club-a", session.ID), errors.ErrSessionClosed)
}

func TestSessionService_Delete_RefundsQueuedRequests(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.sessions.Create(ctx, CreateSessionRequest{
		Tenant:      "club-a",
		Organizer:   "organizer",
		Capacity:    4,
		ScheduledAt: f.clock.Now().Add(time.Hour),
	})
	req.NoError(err)
	req.NoError(f.autosignup.Request(ctx, "club-a", session.ID, "alice"))

	req.NoError(f.sessions.Delete(ctx, "club-a", session.ID))

	_, err = f.sessions.Get("club-a", session.ID)
	req.ErrorIs(err, errors.ErrSessionNotFound)

	balance, err := f.autosignup.Balance("club-a", "alice")
	req.NoError(err)
	req.Equal(1, balance)
}

func TestSessionService_Update_NotifiesParticipants(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := f.openSession(t, "club-a", 2)
	f.enrollAll(t, "club-a", session.ID, "alice", "bob")
	f.resetSent()

	newLocation := "hall 3"
	updated, err := f.sessions.Update(ctx, "club-a", session.ID, UpdateSessionRequest{
		Location: lo.ToPtr(newLocation),
	})
	req.NoError(err)
	req.Equal(newLocation, updated.Location)

	notices := f.noticesOf(domain.NoticeSessionUpdated)
	req.Len(notices, 2)
}

func TestSessionService_SweepReminders_FiresOncePerLead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	// openSession schedules 72h out; nothing to remind yet
	session := f.openSession(t, "club-a", 2)
	f.enrollAll(t, "club-a", session.ID, "alice")
	f.resetSent()

	req.NoError(f.sessions.SweepReminders(ctx))
	req.Empty(f.noticesOf(domain.NoticeReminder))

	// Inside the 24h lead
	f.clock.Advance(49 * time.Hour)
	req.NoError(f.sessions.SweepReminders(ctx))
	reminders := f.noticesOf(domain.NoticeReminder)
	req.Len(reminders, 1)
	req.Equal(domain.UserID("alice"), reminders[0].Recipient)

	// Same lead never fires twice
	f.clock.Advance(time.Hour)
	req.NoError(f.sessions.SweepReminders(ctx))
	req.Len(f.noticesOf(domain.NoticeReminder), 1)

	// The 1h lead is its own notification
	f.clock.Advance(21*time.Hour + 30*time.Minute)
	req.NoError(f.sessions.SweepReminders(ctx))
	req.Len(f.noticesOf(domain.NoticeReminder), 2)
}

func TestSessionService_Settings_RoundTrip(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Defaults: everything off
	settings, err := f.sessions.Settings("club-a")
	req.NoError(err)
	req.Zero(settings.PaymentDeadline)
	req.Zero(settings.InviteLimit)

	req.NoError(f.sessions.UpdateSettings(domain.TenantSettings{
		Tenant:          "club-a",
		PaymentDeadline: 48 * time.Hour,
		InviteLimit:     2,
	}))

	settings, err = f.sessions.Settings("club-a")
	req.NoError(err)
	req.Equal(48*time.Hour, settings.PaymentDeadline)
	req.Equal(2, settings.InviteLimit)
}
