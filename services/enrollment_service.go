//go:generate go run go.uber.org/mock/mockgen -source=enrollment_service.go -destination=../mocks/mock_enrollment_service.go -package=mocks
package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"roster-lab/contract"
	"roster-lab/domain"
	"roster-lab/errors"
	"roster-lab/repositories"
)

type IEnrollmentService interface {
	// Enroll admits a user into an open session, either onto the roster
	// or at the waitlist tail when the roster is full.
	Enroll(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) (domain.Placement, error)
	// Cancel withdraws an active or offer-pending enrollment and offers
	// the freed seat to the waitlist head.
	Cancel(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	LeaveWaitlist(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	// Resize changes a session's capacity. Shrinking demotes the most
	// recent enrollees to the waitlist tail; growing promotes waitlist
	// heads straight to active seats.
	Resize(ctx context.Context, tenant domain.TenantID, session uuid.UUID, capacity int) error
	ListEnrollments(tenant domain.TenantID, session uuid.UUID) ([]domain.Enrollment, error)
	ListWaitlist(tenant domain.TenantID, session uuid.UUID) ([]domain.WaitlistEntry, error)
}

type EnrollmentService struct {
	sessions    repositories.ISessionRepository
	enrollments repositories.IEnrollmentRepository
	waitlist    repositories.IWaitlistRepository
	users       repositories.IUserRepository
	offers      *OfferService
	notifier    contract.Notifier
	clock       contract.Clock
	locks       *SessionLocks
	log         *slog.Logger
}

func NewEnrollmentService(
	sessions repositories.ISessionRepository,
	enrollments repositories.IEnrollmentRepository,
	waitlist repositories.IWaitlistRepository,
	users repositories.IUserRepository,
	offers *OfferService,
	notifier contract.Notifier,
	clock contract.Clock,
	locks *SessionLocks,
	log *slog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		sessions:    sessions,
		enrollments: enrollments,
		waitlist:    waitlist,
		users:       users,
		offers:      offers,
		notifier:    notifier,
		clock:       clock,
		locks:       locks,
		log:         log,
	}
}

func (s *EnrollmentService) Enroll(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) (domain.Placement, error) {
	defer s.locks.Lock(tenant, session).Unlock()

	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return domain.Placement{}, err
	}
	if !record.IsOpen() {
		return domain.Placement{}, errors.ErrSessionClosed
	}
	if err := s.users.Touch(user, s.clock.Now()); err != nil {
		return domain.Placement{}, err
	}
	return s.enrollLocked(record, user)
}

// enrollLocked places a user into a session whose lock is already held.
// Invite admission reuses it.
func (s *EnrollmentService) enrollLocked(record domain.Session, user domain.UserID) (domain.Placement, error) {
	tenant, session := record.Tenant, record.ID

	if _, err := s.enrollments.Get(tenant, session, user); err == nil {
		return domain.Placement{}, errors.ErrAlreadyEnrolled
	}
	waitlisted, err := s.waitlist.Contains(tenant, session, user)
	if err != nil {
		return domain.Placement{}, err
	}
	if waitlisted {
		return domain.Placement{}, errors.ErrAlreadyEnrolled
	}

	count, err := s.enrollments.Count(tenant, session)
	if err != nil {
		return domain.Placement{}, err
	}
	now := s.clock.Now()
	if count < record.Capacity {
		err := s.enrollments.Put(domain.Enrollment{
			Tenant:     tenant,
			Session:    session,
			User:       user,
			Admission:  domain.AdmissionActive,
			Payment:    domain.PaymentUnpaid,
			EnrolledAt: now,
		})
		if err != nil {
			return domain.Placement{}, err
		}
		return domain.Placement{Kind: domain.PlacedRoster}, nil
	}

	position, err := s.waitlist.Append(tenant, session, user, now)
	if err != nil {
		return domain.Placement{}, err
	}
	return domain.Placement{Kind: domain.PlacedWaitlist, Position: position}, nil
}

func (s *EnrollmentService) Cancel(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	defer s.locks.Lock(tenant, session).Unlock()
	return s.cancelLocked(ctx, tenant, session, user)
}

func (s *EnrollmentService) cancelLocked(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	if _, err := s.enrollments.Get(tenant, session, user); err != nil {
		return err
	}
	if err := s.enrollments.Delete(tenant, session, user); err != nil {
		return err
	}
	return s.offers.promoteNextLocked(ctx, tenant, session)
}

func (s *EnrollmentService) LeaveWaitlist(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	defer s.locks.Lock(tenant, session).Unlock()
	return s.waitlist.Remove(tenant, session, user)
}

func (s *EnrollmentService) Resize(ctx context.Context, tenant domain.TenantID, session uuid.UUID, capacity int) error {
	if capacity <= 0 {
		return errors.ErrInvalidCapacity
	}
	defer s.locks.Lock(tenant, session).Unlock()

	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return err
	}
	record.Capacity = capacity
	if err := s.sessions.Put(record); err != nil {
		return err
	}

	count, err := s.enrollments.Count(tenant, session)
	if err != nil {
		return err
	}

	for count > capacity {
		if err := s.demoteNewestLocked(ctx, tenant, session); err != nil {
			return err
		}
		count--
	}

	// Growing promotes heads straight to active seats; the extra room
	// was granted deliberately, so no offer round-trip.
	if record.IsOpen() {
		for count < capacity {
			promoted, err := s.promoteHeadActiveLocked(ctx, tenant, session)
			if err != nil {
				return err
			}
			if !promoted {
				break
			}
			count++
		}
	}
	return nil
}

// demoteNewestLocked moves the most recent enrollee to the waitlist tail.
func (s *EnrollmentService) demoteNewestLocked(ctx context.Context, tenant domain.TenantID, session uuid.UUID) error {
	enrollments, err := s.enrollments.ListBySession(tenant, session)
	if err != nil {
		return err
	}
	if len(enrollments) == 0 {
		return nil
	}
	newest := enrollments[len(enrollments)-1]
	if err := s.enrollments.Delete(tenant, session, newest.User); err != nil {
		return err
	}
	position, err := s.waitlist.Append(tenant, session, newest.User, s.clock.Now())
	if err != nil {
		return err
	}
	s.notify(ctx, newest.User, domain.Notification{
		Kind:     domain.NoticeMovedToWaitlist,
		Tenant:   tenant,
		Session:  session,
		Position: position,
	})
	return nil
}

func (s *EnrollmentService) promoteHeadActiveLocked(ctx context.Context, tenant domain.TenantID, session uuid.UUID) (bool, error) {
	head, ok, err := s.waitlist.Head(tenant, session)
	if err != nil || !ok {
		return false, err
	}
	if err := s.waitlist.Remove(tenant, session, head.User); err != nil {
		return false, err
	}
	err = s.enrollments.Put(domain.Enrollment{
		Tenant:     tenant,
		Session:    session,
		User:       head.User,
		Admission:  domain.AdmissionActive,
		Payment:    domain.PaymentUnpaid,
		EnrolledAt: s.clock.Now(),
	})
	if err != nil {
		return false, err
	}
	s.notify(ctx, head.User, domain.Notification{
		Kind:    domain.NoticeMovedToRoster,
		Tenant:  tenant,
		Session: session,
	})
	return true, nil
}

func (s *EnrollmentService) ListEnrollments(tenant domain.TenantID, session uuid.UUID) ([]domain.Enrollment, error) {
	return s.enrollments.ListBySession(tenant, session)
}

func (s *EnrollmentService) ListWaitlist(tenant domain.TenantID, session uuid.UUID) ([]domain.WaitlistEntry, error) {
	return s.waitlist.List(tenant, session)
}

func (s *EnrollmentService) notify(ctx context.Context, recipient domain.UserID, n domain.Notification) {
	if err := s.notifier.Send(ctx, recipient, n); err != nil {
		s.log.Warn("notification delivery failed",
			slog.String("kind", string(n.Kind)),
			slog.String("recipient", string(recipient)),
			slog.Any("error", err))
	}
}
