//go:generate go run go.uber.org/mock/mockgen -source=session_service.go -destination=../mocks/mock_session_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"roster-lab/contract"
	"roster-lab/domain"
	"roster-lab/errors"
	"roster-lab/repositories"
)

// Reminder lead times before a session starts. Each fires at most once.
var reminderLeads = []time.Duration{24 * time.Hour, time.Hour}

type CreateSessionRequest struct {
	Tenant      domain.TenantID `validate:"required"`
	Organizer   domain.UserID   `validate:"required"`
	Capacity    int             `validate:"gt=0"`
	ScheduledAt time.Time       `validate:"required"`
	Duration    time.Duration
	Kind        string
	Location    string
	Price       int64 `validate:"gte=0"`
}

type UpdateSessionRequest struct {
	ScheduledAt *time.Time
	Duration    *time.Duration
	Kind        *string
	Location    *string
	Price       *int64
}

type ISessionService interface {
	Create(ctx context.Context, request CreateSessionRequest) (domain.Session, error)
	Get(tenant domain.TenantID, session uuid.UUID) (domain.Session, error)
	List(tenant domain.TenantID) ([]domain.Session, error)
	// Update edits schedule details and notifies everyone holding a place.
	Update(ctx context.Context, tenant domain.TenantID, session uuid.UUID, request UpdateSessionRequest) (domain.Session, error)
	// Open flips a closed session to OPEN, admits queued auto-signup
	// requests in order, and broadcasts to the rest of the user base.
	Open(ctx context.Context, tenant domain.TenantID, session uuid.UUID) (domain.OpenResult, error)
	// Close flips an open session back to CLOSED and wipes its roster,
	// waitlist and invites.
	Close(ctx context.Context, tenant domain.TenantID, session uuid.UUID) error
	Delete(ctx context.Context, tenant domain.TenantID, session uuid.UUID) error
	Settings(tenant domain.TenantID) (domain.TenantSettings, error)
	UpdateSettings(settings domain.TenantSettings) error
	// SweepReminders sends start-time reminders at the configured leads.
	SweepReminders(ctx context.Context) error
}

type SessionService struct {
	sessions    repositories.ISessionRepository
	enrollments repositories.IEnrollmentRepository
	waitlist    repositories.IWaitlistRepository
	invites     repositories.IInviteRepository
	accounts    repositories.IAutoSignupRepository
	tenants     repositories.ITenantRepository
	users       repositories.IUserRepository
	autosignup  *AutoSignupService
	notifier    contract.Notifier
	clock       contract.Clock
	locks       *SessionLocks
	validate    *validator.Validate
	log         *slog.Logger
}

func NewSessionService(
	sessions repositories.ISessionRepository,
	enrollments repositories.IEnrollmentRepository,
	waitlist repositories.IWaitlistRepository,
	invites repositories.IInviteRepository,
	accounts repositories.IAutoSignupRepository,
	tenants repositories.ITenantRepository,
	users repositories.IUserRepository,
	autosignup *AutoSignupService,
	notifier contract.Notifier,
	clock contract.Clock,
	locks *SessionLocks,
	log *slog.Logger,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		enrollments: enrollments,
		waitlist:    waitlist,
		invites:     invites,
		accounts:    accounts,
		tenants:     tenants,
		users:       users,
		autosignup:  autosignup,
		notifier:    notifier,
		clock:       clock,
		locks:       locks,
		validate:    validator.New(),
		log:         log,
	}
}

func (s *SessionService) Create(ctx context.Context, request CreateSessionRequest) (domain.Session, error) {
	if request.Capacity <= 0 {
		return domain.Session{}, errors.ErrInvalidCapacity
	}
	if err := s.validate.Struct(request); err != nil {
		return domain.Session{}, err
	}
	now := s.clock.Now()
	if err := s.users.Touch(request.Organizer, now); err != nil {
		return domain.Session{}, err
	}
	session := domain.Session{
		ID:          uuid.New(),
		Tenant:      request.Tenant,
		Organizer:   request.Organizer,
		Capacity:    request.Capacity,
		ScheduledAt: request.ScheduledAt,
		Duration:    request.Duration,
		Kind:        request.Kind,
		Location:    request.Location,
		Price:       request.Price,
		Status:      domain.SessionClosed,
		CreatedAt:   now,
	}
	if err := s.sessions.Put(session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *SessionService) Get(tenant domain.TenantID, session uuid.UUID) (domain.Session, error) {
	return s.sessions.Get(tenant, session)
}

func (s *SessionService) List(tenant domain.TenantID) ([]domain.Session, error) {
	return s.sessions.ListByTenant(tenant)
}

func (s *SessionService) Update(ctx context.Context, tenant domain.TenantID, session uuid.UUID, request UpdateSessionRequest) (domain.Session, error) {
	defer s.locks.Lock(tenant, session).Unlock()

	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return domain.Session{}, err
	}
	if request.ScheduledAt != nil {
		record.ScheduledAt = *request.ScheduledAt
	}
	if request.Duration != nil {
		record.Duration = *request.Duration
	}
	if request.Kind != nil {
		record.Kind = *request.Kind
	}
	if request.Location != nil {
		record.Location = *request.Location
	}
	if request.Price != nil {
		record.Price = *request.Price
	}
	if err := s.sessions.Put(record); err != nil {
		return domain.Session{}, err
	}

	enrollments, err := s.enrollments.ListBySession(tenant, session)
	if err != nil {
		return domain.Session{}, err
	}
	for _, e := range enrollments {
		s.notify(ctx, e.User, domain.Notification{
			Kind:    domain.NoticeSessionUpdated,
			Tenant:  tenant,
			Session: session,
		})
	}
	return record, nil
}

func (s *SessionService) Open(ctx context.Context, tenant domain.TenantID, session uuid.UUID) (domain.OpenResult, error) {
	defer s.locks.Lock(tenant, session).Unlock()

	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return domain.OpenResult{}, err
	}
	if record.IsOpen() {
		return domain.OpenResult{}, errors.ErrSessionNotClosed
	}

	record.Status = domain.SessionOpen
	if err := s.sessions.Put(record); err != nil {
		return domain.OpenResult{}, err
	}

	result, err := s.autosignup.consumeOnOpenLocked(ctx, record)
	if err != nil {
		return domain.OpenResult{}, err
	}

	s.broadcastOpened(ctx, record, result.AutoAdmitted)
	return result, nil
}

// broadcastOpened announces the opening to every registered user except
// those auto-admitted a moment ago.
func (s *SessionService) broadcastOpened(ctx context.Context, record domain.Session, autoAdmitted []domain.UserID) {
	users, err := s.users.List()
	if err != nil {
		s.log.Warn("open broadcast skipped", slog.Any("error", err))
		return
	}
	admitted := lo.SliceToMap(autoAdmitted, func(u domain.UserID) (domain.UserID, struct{}) {
		return u, struct{}{}
	})
	for _, user := range users {
		if _, ok := admitted[user]; ok {
			continue
		}
		s.notify(ctx, user, domain.Notification{
			Kind:    domain.NoticeSessionOpened,
			Tenant:  record.Tenant,
			Session: record.ID,
		})
	}
}

func (s *SessionService) Close(ctx context.Context, tenant domain.TenantID, session uuid.UUID) error {
	defer s.locks.Lock(tenant, session).Unlock()

	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return err
	}
	if !record.IsOpen() {
		return errors.ErrSessionClosed
	}

	if err := s.wipeLocked(tenant, session); err != nil {
		return err
	}
	record.Status = domain.SessionClosed
	return s.sessions.Put(record)
}

func (s *SessionService) Delete(ctx context.Context, tenant domain.TenantID, session uuid.UUID) error {
	defer s.locks.Lock(tenant, session).Unlock()

	if _, err := s.sessions.Get(tenant, session); err != nil {
		return err
	}
	if err := s.wipeLocked(tenant, session); err != nil {
		return err
	}
	return s.sessions.Delete(tenant, session)
}

// wipeLocked clears every record hanging off a session. Queued auto-signup
// requests are refunded before they go.
func (s *SessionService) wipeLocked(tenant domain.TenantID, session uuid.UUID) error {
	requests, err := s.accounts.ListRequests(tenant, session)
	if err != nil {
		return err
	}
	for _, request := range requests {
		if _, err := s.accounts.Adjust(tenant, request.User, 1); err != nil {
			return err
		}
	}
	if err := s.accounts.DeleteRequestsBySession(tenant, session); err != nil {
		return err
	}
	if err := s.enrollments.DeleteBySession(tenant, session); err != nil {
		return err
	}
	if err := s.waitlist.DeleteBySession(tenant, session); err != nil {
		return err
	}
	return s.invites.DeleteBySession(tenant, session)
}

func (s *SessionService) Settings(tenant domain.TenantID) (domain.TenantSettings, error) {
	return s.tenants.Settings(tenant)
}

func (s *SessionService) UpdateSettings(settings domain.TenantSettings) error {
	return s.tenants.PutSettings(settings)
}

func (s *SessionService) SweepReminders(ctx context.Context) error {
	sessions, err := s.sessions.ListAll()
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, session := range sessions {
		if !session.IsOpen() || !now.Before(session.ScheduledAt) {
			continue
		}
		for _, lead := range reminderLeads {
			if now.Before(session.ScheduledAt.Add(-lead)) {
				continue
			}
			first, err := s.sessions.MarkReminded(session.Tenant, session.ID, lead)
			if err != nil {
				s.log.Error("reminder bookkeeping failed",
					slog.String("session", session.ID.String()),
					slog.Any("error", err))
				continue
			}
			if !first {
				continue
			}
			s.remindParticipants(ctx, session)
		}
	}
	return nil
}

func (s *SessionService) remindParticipants(ctx context.Context, session domain.Session) {
	enrollments, err := s.enrollments.ListBySession(session.Tenant, session.ID)
	if err != nil {
		s.log.Error("reminder listing failed",
			slog.String("session", session.ID.String()),
			slog.Any("error", err))
		return
	}
	for _, e := range enrollments {
		if e.Admission != domain.AdmissionActive {
			continue
		}
		s.notify(ctx, e.User, domain.Notification{
			Kind:     domain.NoticeReminder,
			Tenant:   session.Tenant,
			Session:  session.ID,
			Deadline: session.ScheduledAt,
		})
	}
}

func (s *SessionService) notify(ctx context.Context, recipient domain.UserID, n domain.Notification) {
	if err := s.notifier.Send(ctx, recipient, n); err != nil {
		s.log.Warn("notification delivery failed",
			slog.String("kind", string(n.Kind)),
			slog.String("recipient", string(recipient)),
			slog.Any("error", err))
	}
}
