//go:generate go run go.uber.org/mock/mockgen -source=autosignup_service.go -destination=../mocks/mock_autosignup_service.go -package=mocks
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

type IAutoSignupService interface {
	// Request spends one credit to queue the user for automatic admission
	// when the (still closed) session opens.
	Request(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	Balance(tenant domain.TenantID, user domain.UserID) (int, error)
	// Grant adds credits to a user's account, typically by the organizer.
	Grant(tenant domain.TenantID, user domain.UserID, amount int) (int, error)
}

type AutoSignupService struct {
	sessions    repositories.ISessionRepository
	enrollments repositories.IEnrollmentRepository
	accounts    repositories.IAutoSignupRepository
	users       repositories.IUserRepository
	notifier    contract.Notifier
	clock       contract.Clock
	locks       *SessionLocks
	log         *slog.Logger
}

func NewAutoSignupService(
	sessions repositories.ISessionRepository,
	enrollments repositories.IEnrollmentRepository,
	accounts repositories.IAutoSignupRepository,
	users repositories.IUserRepository,
	notifier contract.Notifier,
	clock contract.Clock,
	locks *SessionLocks,
	log *slog.Logger,
) *AutoSignupService {
	return &AutoSignupService{
		sessions:    sessions,
		enrollments: enrollments,
		accounts:    accounts,
		users:       users,
		notifier:    notifier,
		clock:       clock,
		locks:       locks,
		log:         log,
	}
}

func (s *AutoSignupService) Request(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	defer s.locks.Lock(tenant, session).Unlock()

	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return err
	}
	if record.IsOpen() {
		return errors.ErrSessionNotClosed
	}

	requested, err := s.accounts.HasRequest(tenant, session, user)
	if err != nil {
		return err
	}
	if requested {
		return errors.ErrAlreadyRequested
	}

	// An empty balance is reported before a full quota.
	balance, err := s.accounts.Balance(tenant, user)
	if err != nil {
		return err
	}
	if balance <= 0 {
		return errors.ErrInsufficientCredit
	}

	pending, err := s.accounts.CountRequests(tenant, session)
	if err != nil {
		return err
	}
	if pending >= record.AutoSignupQuota() {
		return errors.ErrQuotaExceeded
	}

	now := s.clock.Now()
	if err := s.users.Touch(user, now); err != nil {
		return err
	}
	// The credit is spent up front; requests discarded at open time are
	// refunded.
	if _, err := s.accounts.Adjust(tenant, user, -1); err != nil {
		return err
	}
	return s.accounts.AddRequest(domain.AutoSignupRequest{
		Tenant:      tenant,
		Session:     session,
		User:        user,
		RequestedAt: now,
	})
}

// consumeOnOpenLocked admits queued requests in request order until the
// roster is full, refunds the rest, and clears the queue. Runs under the
// session lock as part of opening.
func (s *AutoSignupService) consumeOnOpenLocked(ctx context.Context, record domain.Session) (domain.OpenResult, error) {
	tenant, session := record.Tenant, record.ID

	requests, err := s.accounts.ListRequests(tenant, session)
	if err != nil {
		return domain.OpenResult{}, err
	}

	var result domain.OpenResult
	now := s.clock.Now()
	for i, request := range requests {
		if i < record.Capacity {
			err := s.enrollments.Put(domain.Enrollment{
				Tenant:     tenant,
				Session:    session,
				User:       request.User,
				Admission:  domain.AdmissionActive,
				Payment:    domain.PaymentUnpaid,
				EnrolledAt: now,
			})
			if err != nil {
				return domain.OpenResult{}, err
			}
			result.AutoAdmitted = append(result.AutoAdmitted, request.User)
			s.notify(ctx, request.User, domain.Notification{
				Kind:    domain.NoticeAutoSignup,
				Tenant:  tenant,
				Session: session,
			})
			continue
		}
		if _, err := s.accounts.Adjust(tenant, request.User, 1); err != nil {
			return domain.OpenResult{}, err
		}
	}

	if err := s.accounts.DeleteRequestsBySession(tenant, session); err != nil {
		return domain.OpenResult{}, err
	}
	return result, nil
}

func (s *AutoSignupService) Balance(tenant domain.TenantID, user domain.UserID) (int, error) {
	return s.accounts.Balance(tenant, user)
}

func (s *AutoSignupService) Grant(tenant domain.TenantID, user domain.UserID, amount int) (int, error) {
	return s.accounts.Adjust(tenant, user, amount)
}

func (s *AutoSignupService) notify(ctx context.Context, recipient domain.UserID, n domain.Notification) {
	if err := s.notifier.Send(ctx, recipient, n); err != nil {
		s.log.Warn("notification delivery failed",
			slog.String("kind", string(n.Kind)),
			slog.String("recipient", string(recipient)),
			slog.Any("error", err))
	}
}
