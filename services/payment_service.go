//go:generate go run go.uber.org/mock/mockgen -source=payment_service.go -destination=../mocks/mock_payment_service.go -package=mocks
package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"roster-lab/contract"
	"roster-lab/domain"
	"roster-lab/repositories"
)

type IPaymentService interface {
	// MarkPending flags a participant's payment as awaiting organizer
	// review.
	MarkPending(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	Confirm(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	// Reject puts a reviewed payment back to unpaid.
	Reject(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	// SweepPaymentDeadlines demotes active participants whose payment
	// is still unconfirmed past the tenant's deadline.
	SweepPaymentDeadlines(ctx context.Context) error
}

type PaymentService struct {
	sessions    repositories.ISessionRepository
	enrollments repositories.IEnrollmentRepository
	waitlist    repositories.IWaitlistRepository
	tenants     repositories.ITenantRepository
	offers      *OfferService
	notifier    contract.Notifier
	clock       contract.Clock
	locks       *SessionLocks
	log         *slog.Logger
}

func NewPaymentService(
	sessions repositories.ISessionRepository,
	enrollments repositories.IEnrollmentRepository,
	waitlist repositories.IWaitlistRepository,
	tenants repositories.ITenantRepository,
	offers *OfferService,
	notifier contract.Notifier,
	clock contract.Clock,
	locks *SessionLocks,
	log *slog.Logger,
) *PaymentService {
	return &PaymentService{
		sessions:    sessions,
		enrollments: enrollments,
		waitlist:    waitlist,
		tenants:     tenants,
		offers:      offers,
		notifier:    notifier,
		clock:       clock,
		locks:       locks,
		log:         log,
	}
}

func (s *PaymentService) MarkPending(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	defer s.locks.Lock(tenant, session).Unlock()

	enrollment, err := s.enrollments.Get(tenant, session, user)
	if err != nil {
		return err
	}
	enrollment.Payment = domain.PaymentAwaitingReview
	if err := s.enrollments.Put(enrollment); err != nil {
		return err
	}

	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return err
	}
	s.notify(ctx, record.Organizer, domain.Notification{
		Kind:    domain.NoticePaymentReview,
		Tenant:  tenant,
		Session: session,
		User:    user,
	})
	return nil
}

func (s *PaymentService) Confirm(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	return s.review(ctx, tenant, session, user, domain.PaymentConfirmed, domain.NoticePaymentConfirmed)
}

func (s *PaymentService) Reject(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	return s.review(ctx, tenant, session, user, domain.PaymentUnpaid, domain.NoticePaymentRejected)
}

func (s *PaymentService) review(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID, state domain.PaymentState, kind domain.NoticeKind) error {
	defer s.locks.Lock(tenant, session).Unlock()

	enrollment, err := s.enrollments.Get(tenant, session, user)
	if err != nil {
		return err
	}
	enrollment.Payment = state
	if err := s.enrollments.Put(enrollment); err != nil {
		return err
	}
	s.notify(ctx, user, domain.Notification{
		Kind:    kind,
		Tenant:  tenant,
		Session: session,
	})
	return nil
}

func (s *PaymentService) SweepPaymentDeadlines(ctx context.Context) error {
	sessions, err := s.sessions.ListAll()
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if !session.IsOpen() {
			continue
		}
		if err := s.sweepSession(ctx, session); err != nil {
			s.log.Error("payment sweep failed for session",
				slog.String("tenant", string(session.Tenant)),
				slog.String("session", session.ID.String()),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *PaymentService) sweepSession(ctx context.Context, session domain.Session) error {
	settings, err := s.tenants.Settings(session.Tenant)
	if err != nil {
		return err
	}
	if settings.PaymentDeadline == 0 {
		return nil
	}

	defer s.locks.Lock(session.Tenant, session.ID).Unlock()

	enrollments, err := s.enrollments.ListBySession(session.Tenant, session.ID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, e := range enrollments {
		// Only a confirmed payment holds an active seat past the deadline;
		// a review still in flight does not.
		if e.Admission != domain.AdmissionActive || e.Payment == domain.PaymentConfirmed {
			continue
		}
		if now.Before(e.EnrolledAt.Add(settings.PaymentDeadline)) {
			continue
		}
		if err := s.demoteLocked(ctx, session, e); err != nil {
			return err
		}
	}
	return nil
}

// demoteLocked moves an overdue participant to the waitlist tail and
// offers the freed seat onward. The requeue precedes the promotion so a
// demoted lone waitlister stays first in line for the seat.
func (s *PaymentService) demoteLocked(ctx context.Context, session domain.Session, e domain.Enrollment) error {
	if err := s.enrollments.Delete(e.Tenant, e.Session, e.User); err != nil {
		return err
	}
	if _, err := s.waitlist.Append(e.Tenant, e.Session, e.User, s.clock.Now()); err != nil {
		return err
	}
	if err := s.offers.promoteNextLocked(ctx, e.Tenant, e.Session); err != nil {
		return err
	}
	position, err := s.offers.waitlistPositionLocked(e.Tenant, e.Session, e.User)
	if err != nil {
		return err
	}
	s.notify(ctx, e.User, domain.Notification{
		Kind:     domain.NoticePaymentOverdue,
		Tenant:   e.Tenant,
		Session:  e.Session,
		Position: position,
	})
	s.notify(ctx, session.Organizer, domain.Notification{
		Kind:    domain.NoticeParticipantDemoted,
		Tenant:  e.Tenant,
		Session: e.Session,
		User:    e.User,
	})
	return nil
}

func (s *PaymentService) notify(ctx context.Context, recipient domain.UserID, n domain.Notification) {
	if err := s.notifier.Send(ctx, recipient, n); err != nil {
		s.log.Warn("notification delivery failed",
			slog.String("kind", string(n.Kind)),
			slog.String("recipient", string(recipient)),
			slog.Any("error", err))
	}
}
