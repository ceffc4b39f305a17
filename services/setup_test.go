package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"roster-lab/domain"
	"roster-lab/mocks"
	"roster-lab/repositories"
)

// manualClock lets tests jump time across offer, invite and payment
// windows.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentNotice struct {
	Recipient domain.UserID
	Notice    domain.Notification
}

// fixture wires every service onto one in-memory store, with a manual
// clock and a recording notifier.
type fixture struct {
	clock      *manualClock
	enrollment *EnrollmentService
	offers     *OfferService
	sessions   *SessionService
	payments   *PaymentService
	autosignup *AutoSignupService
	invites    *InviteService

	tenantRepo repositories.ITenantRepository
	userRepo   repositories.IUserRepository

	mu   sync.Mutex
	sent []sentNotice
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	req := require.New(t)

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	clock := &manualClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	locks := NewSessionLocks()

	f := &fixture{clock: clock}

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, recipient domain.UserID, n domain.Notification) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sent = append(f.sent, sentNotice{Recipient: recipient, Notice: n})
			return nil
		}).
		AnyTimes()

	sessionRepo := repositories.NewSessionRepository(db, log)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)
	waitlistRepo := repositories.NewWaitlistRepository(db)
	inviteRepo := repositories.NewInviteRepository(db)
	accountRepo := repositories.NewAutoSignupRepository(db)
	tenantRepo := repositories.NewTenantRepository(db)
	userRepo := repositories.NewUserRepository(db)

	f.tenantRepo = tenantRepo
	f.userRepo = userRepo

	f.offers = NewOfferService(sessionRepo, enrollmentRepo, waitlistRepo, notifier, clock, locks, log)
	f.enrollment = NewEnrollmentService(sessionRepo, enrollmentRepo, waitlistRepo, userRepo, f.offers, notifier, clock, locks, log)
	f.autosignup = NewAutoSignupService(sessionRepo, enrollmentRepo, accountRepo, userRepo, notifier, clock, locks, log)
	f.sessions = NewSessionService(sessionRepo, enrollmentRepo, waitlistRepo, inviteRepo, accountRepo, tenantRepo, userRepo, f.autosignup, notifier, clock, locks, log)
	f.payments = NewPaymentService(sessionRepo, enrollmentRepo, waitlistRepo, tenantRepo, f.offers, notifier, clock, locks, log)
	f.invites = NewInviteService(sessionRepo, enrollmentRepo, waitlistRepo, inviteRepo, tenantRepo, userRepo, f.enrollment, f.offers, notifier, clock, locks, log)

	return f
}

// openSession creates and opens a session ready for sign-up.
func (f *fixture) openSession(t *testing.T, tenant domain.TenantID, capacity int) domain.Session {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()

	session, err := f.sessions.Create(ctx, CreateSessionRequest{
		Tenant:      tenant,
		Organizer:   "organizer",
		Capacity:    capacity,
		ScheduledAt: f.clock.Now().Add(72 * time.Hour),
		Duration:    90 * time.Minute,
		Kind:        "training",
	})
	req.NoError(err)
	_, err = f.sessions.Open(ctx, tenant, session.ID)
	req.NoError(err)
	f.resetSent()
	return session
}

func (f *fixture) resetSent() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// noticesOf filters recorded notifications by kind.
func (f *fixture) noticesOf(kind domain.NoticeKind) []sentNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotice
	for _, n := range f.sent {
		if n.Notice.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (f *fixture) enrollAll(t *testing.T, tenant domain.TenantID, session uuid.UUID, users ...domain.UserID) {
	t.Helper()
	req := require.New(t)
	for _, u := range users {
		_, err := f.enrollment.Enroll(context.Background(), tenant, session, u)
		req.NoError(err)
	}
}
