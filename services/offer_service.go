//go:generate go run go.uber.org/mock/mockgen -source=offer_service.go -destination=../mocks/mock_offer_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"roster-lab/contract"
	"roster-lab/domain"
	"roster-lab/errors"
	"roster-lab/repositories"
)

// OfferWindow is how long a freed seat stays reserved for the waitlist
// head before it moves on to the next in line.
const OfferWindow = 2 * time.Hour

type IOfferService interface {
	AcceptOffer(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	DeclineOffer(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	SweepExpiredOffers(ctx context.Context) error
}

type OfferService struct {
	sessions    repositories.ISessionRepository
	enrollments repositories.IEnrollmentRepository
	waitlist    repositories.IWaitlistRepository
	notifier    contract.Notifier
	clock       contract.Clock
	locks       *SessionLocks
	log         *slog.Logger
}

func NewOfferService(
	sessions repositories.ISessionRepository,
	enrollments repositories.IEnrollmentRepository,
	waitlist repositories.IWaitlistRepository,
	notifier contract.Notifier,
	clock contract.Clock,
	locks *SessionLocks,
	log *slog.Logger,
) *OfferService {
	return &OfferService{
		sessions:    sessions,
		enrollments: enrollments,
		waitlist:    waitlist,
		notifier:    notifier,
		clock:       clock,
		locks:       locks,
		log:         log,
	}
}

// AcceptOffer turns a pending seat offer into an active enrollment. An
// offer past its window is expired on the spot: the user goes back to
// the waitlist tail and the seat is offered onward.
func (s *OfferService) AcceptOffer(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	defer s.locks.Lock(tenant, session).Unlock()

	enrollment, err := s.enrollments.Get(tenant, session, user)
	if err != nil {
		return errors.ErrOfferNotFound
	}
	if enrollment.Admission != domain.AdmissionOfferPending || enrollment.OfferedAt == nil {
		return errors.ErrOfferNotFound
	}

	now := s.clock.Now()
	if now.After(enrollment.OfferedAt.Add(OfferWindow)) {
		if err := s.expireOfferLocked(ctx, enrollment); err != nil {
			return err
		}
		return errors.ErrOfferExpired
	}

	enrollment.Admission = domain.AdmissionActive
	enrollment.OfferedAt = nil
	return s.enrollments.Put(enrollment)
}

// DeclineOffer drops a pending offer entirely. The user is not requeued;
// declining means they no longer want the seat.
func (s *OfferService) DeclineOffer(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	defer s.locks.Lock(tenant, session).Unlock()

	enrollment, err := s.enrollments.Get(tenant, session, user)
	if err != nil {
		return errors.ErrOfferNotFound
	}
	if enrollment.Admission != domain.AdmissionOfferPending {
		return errors.ErrOfferNotFound
	}
	if err := s.enrollments.Delete(tenant, session, user); err != nil {
		return err
	}
	return s.promoteNextLocked(ctx, tenant, session)
}

// SweepExpiredOffers walks every session and expires offers past their
// window. A failing session is logged and skipped so one bad record
// cannot stall the whole sweep.
func (s *OfferService) SweepExpiredOffers(ctx context.Context) error {
	sessions, err := s.sessions.ListAll()
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if err := s.sweepSession(ctx, session); err != nil {
			s.log.Error("offer sweep failed for session",
				slog.String("tenant", string(session.Tenant)),
				slog.String("session", session.ID.String()),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *OfferService) sweepSession(ctx context.Context, session domain.Session) error {
	defer s.locks.Lock(session.Tenant, session.ID).Unlock()

	enrollments, err := s.enrollments.ListBySession(session.Tenant, session.ID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	expired := lo.Filter(enrollments, func(e domain.Enrollment, _ int) bool {
		return e.Admission == domain.AdmissionOfferPending &&
			e.OfferedAt != nil &&
			now.After(e.OfferedAt.Add(OfferWindow))
	})
	for _, e := range expired {
		if err := s.expireOfferLocked(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// expireOfferLocked tears down a lapsed offer: the user rejoins the
// waitlist at the tail, then the freed seat is offered onward. The
// requeue comes first; a lone waitlister cycles into a fresh offer
// rather than sitting WAITING next to a free seat a later sign-up
// could take ahead of them.
func (s *OfferService) expireOfferLocked(ctx context.Context, e domain.Enrollment) error {
	if err := s.enrollments.Delete(e.Tenant, e.Session, e.User); err != nil {
		return err
	}
	if _, err := s.waitlist.Append(e.Tenant, e.Session, e.User, s.clock.Now()); err != nil {
		return err
	}
	if err := s.promoteNextLocked(ctx, e.Tenant, e.Session); err != nil {
		return err
	}
	position, err := s.waitlistPositionLocked(e.Tenant, e.Session, e.User)
	if err != nil {
		return err
	}
	s.notify(ctx, e.User, domain.Notification{
		Kind:     domain.NoticeOfferExpired,
		Tenant:   e.Tenant,
		Session:  e.Session,
		Position: position,
	})
	return nil
}

// waitlistPositionLocked reports the user's position once promotion has
// settled, or 0 when the requeue cycled them straight into an offer.
func (s *OfferService) waitlistPositionLocked(tenant domain.TenantID, session uuid.UUID, user domain.UserID) (int, error) {
	entries, err := s.waitlist.List(tenant, session)
	if err != nil {
		return 0, err
	}
	entry, ok := lo.Find(entries, func(w domain.WaitlistEntry) bool { return w.User == user })
	if !ok {
		return 0, nil
	}
	return entry.Position, nil
}

// promoteNextLocked offers a freed seat to the waitlist head, if the
// session still has room. Callers hold the session lock.
func (s *OfferService) promoteNextLocked(ctx context.Context, tenant domain.TenantID, session uuid.UUID) error {
	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return err
	}
	count, err := s.enrollments.Count(tenant, session)
	if err != nil {
		return err
	}
	if count >= record.Capacity {
		return nil
	}
	head, ok, err := s.waitlist.Head(tenant, session)
	if err != nil || !ok {
		return err
	}
	if err := s.waitlist.Remove(tenant, session, head.User); err != nil {
		return err
	}
	now := s.clock.Now()
	enrollment := domain.Enrollment{
		Tenant:     tenant,
		Session:    session,
		User:       head.User,
		Admission:  domain.AdmissionOfferPending,
		Payment:    domain.PaymentUnpaid,
		EnrolledAt: now,
		OfferedAt:  &now,
	}
	if err := s.enrollments.Put(enrollment); err != nil {
		return err
	}
	s.notify(ctx, head.User, domain.Notification{
		Kind:     domain.NoticeSeatOffer,
		Tenant:   tenant,
		Session:  session,
		Deadline: now.Add(OfferWindow),
	})
	return nil
}

func (s *OfferService) notify(ctx context.Context, recipient domain.UserID, n domain.Notification) {
	if err := s.notifier.Send(ctx, recipient, n); err != nil {
		s.log.Warn("notification delivery failed",
			slog.String("kind", string(n.Kind)),
			slog.String("recipient", string(recipient)),
			slog.Any("error", err))
	}
}
