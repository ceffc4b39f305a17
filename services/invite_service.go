//go:generate go run go.uber.org/mock/mockgen -source=invite_service.go -destination=../mocks/mock_invite_service.go -package=mocks
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

// InviteWindow is how long an invitee has to accept or decline. The same
// trailing window bounds the per-inviter pending-invite quota.
const InviteWindow = time.Hour

type IInviteService interface {
	// Invite admits a peer optimistically (roster or waitlist) and gives
	// them an hour to confirm.
	Invite(ctx context.Context, tenant domain.TenantID, session uuid.UUID, inviter, invitee domain.UserID) (domain.Placement, error)
	// Respond resolves a pending invite. Declining tears the optimistic
	// placement down again.
	Respond(ctx context.Context, tenant domain.TenantID, session uuid.UUID, invitee domain.UserID, accept bool) error
	SweepExpiredInvites(ctx context.Context) error
}

type InviteService struct {
	sessions    repositories.ISessionRepository
	enrollments repositories.IEnrollmentRepository
	waitlist    repositories.IWaitlistRepository
	invites     repositories.IInviteRepository
	tenants     repositories.ITenantRepository
	users       repositories.IUserRepository
	enrollment  *EnrollmentService
	offers      *OfferService
	notifier    contract.Notifier
	clock       contract.Clock
	locks       *SessionLocks
	log         *slog.Logger
}

func NewInviteService(
	sessions repositories.ISessionRepository,
	enrollments repositories.IEnrollmentRepository,
	waitlist repositories.IWaitlistRepository,
	invites repositories.IInviteRepository,
	tenants repositories.ITenantRepository,
	users repositories.IUserRepository,
	enrollment *EnrollmentService,
	offers *OfferService,
	notifier contract.Notifier,
	clock contract.Clock,
	locks *SessionLocks,
	log *slog.Logger,
) *InviteService {
	return &InviteService{
		sessions:    sessions,
		enrollments: enrollments,
		waitlist:    waitlist,
		invites:     invites,
		tenants:     tenants,
		users:       users,
		enrollment:  enrollment,
		offers:      offers,
		notifier:    notifier,
		clock:       clock,
		locks:       locks,
		log:         log,
	}
}

func (s *InviteService) Invite(ctx context.Context, tenant domain.TenantID, session uuid.UUID, inviter, invitee domain.UserID) (domain.Placement, error) {
	defer s.locks.Lock(tenant, session).Unlock()

	record, err := s.sessions.Get(tenant, session)
	if err != nil {
		return domain.Placement{}, err
	}
	if !record.IsOpen() {
		return domain.Placement{}, errors.ErrSessionClosed
	}
	known, err := s.users.Exists(invitee)
	if err != nil {
		return domain.Placement{}, err
	}
	if !known {
		return domain.Placement{}, errors.ErrUnknownUser
	}
	if err := s.checkQuotaLocked(tenant, session, inviter); err != nil {
		return domain.Placement{}, err
	}

	placement, err := s.enrollment.enrollLocked(record, invitee)
	if err != nil {
		return domain.Placement{}, err
	}

	now := s.clock.Now()
	err = s.invites.Put(domain.Invite{
		Tenant:    tenant,
		Session:   session,
		Invitee:   invitee,
		Inviter:   inviter,
		State:     domain.InvitePending,
		CreatedAt: now,
	})
	if err != nil {
		return domain.Placement{}, err
	}

	s.notify(ctx, invitee, domain.Notification{
		Kind:     domain.NoticeInvite,
		Tenant:   tenant,
		Session:  session,
		User:     inviter,
		Position: placement.Position,
		Deadline: now.Add(InviteWindow),
	})
	return placement, nil
}

// checkQuotaLocked enforces the per-inviter limit on pending invites
// issued within the trailing window.
func (s *InviteService) checkQuotaLocked(tenant domain.TenantID, session uuid.UUID, inviter domain.UserID) error {
	settings, err := s.tenants.Settings(tenant)
	if err != nil {
		return err
	}
	if settings.InviteLimit <= 0 {
		return nil
	}
	invites, err := s.invites.ListBySession(tenant, session)
	if err != nil {
		return err
	}
	cutoff := s.clock.Now().Add(-InviteWindow)
	pending := lo.CountBy(invites, func(i domain.Invite) bool {
		return i.Inviter == inviter &&
			i.State == domain.InvitePending &&
			i.CreatedAt.After(cutoff)
	})
	if pending >= settings.InviteLimit {
		return errors.ErrQuotaExceeded
	}
	return nil
}

func (s *InviteService) Respond(ctx context.Context, tenant domain.TenantID, session uuid.UUID, invitee domain.UserID, accept bool) error {
	defer s.locks.Lock(tenant, session).Unlock()

	invite, err := s.invites.Get(tenant, session, invitee)
	if err != nil {
		return err
	}
	if invite.State != domain.InvitePending {
		return errors.ErrInviteExpired
	}
	if s.clock.Now().After(invite.CreatedAt.Add(InviteWindow)) {
		if err := s.expireLocked(ctx, invite); err != nil {
			return err
		}
		return errors.ErrInviteExpired
	}

	if accept {
		invite.State = domain.InviteAccepted
		return s.invites.Put(invite)
	}

	invite.State = domain.InviteDeclined
	if err := s.invites.Put(invite); err != nil {
		return err
	}
	return s.teardownPlacementLocked(ctx, invite)
}

func (s *InviteService) SweepExpiredInvites(ctx context.Context) error {
	pending, err := s.invites.ListPending()
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, invite := range pending {
		if now.Before(invite.CreatedAt.Add(InviteWindow)) {
			continue
		}
		if err := s.expireInvite(ctx, invite); err != nil {
			s.log.Error("invite sweep failed",
				slog.String("tenant", string(invite.Tenant)),
				slog.String("session", invite.Session.String()),
				slog.String("invitee", string(invite.Invitee)),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *InviteService) expireInvite(ctx context.Context, invite domain.Invite) error {
	defer s.locks.Lock(invite.Tenant, invite.Session).Unlock()

	// Re-read under the lock; the invitee may have responded since the
	// sweep listed it.
	current, err := s.invites.Get(invite.Tenant, invite.Session, invite.Invitee)
	if err != nil {
		return nil
	}
	if current.State != domain.InvitePending {
		return nil
	}
	if err := s.expireLocked(ctx, current); err != nil {
		return err
	}
	s.notify(ctx, current.Invitee, domain.Notification{
		Kind:    domain.NoticeInviteExpired,
		Tenant:  current.Tenant,
		Session: current.Session,
		User:    current.Inviter,
	})
	return nil
}

func (s *InviteService) expireLocked(ctx context.Context, invite domain.Invite) error {
	invite.State = domain.InviteExpired
	if err := s.invites.Put(invite); err != nil {
		return err
	}
	return s.teardownPlacementLocked(ctx, invite)
}

// teardownPlacementLocked undoes the optimistic admission, wherever the
// invitee ended up.
func (s *InviteService) teardownPlacementLocked(ctx context.Context, invite domain.Invite) error {
	if _, err := s.enrollments.Get(invite.Tenant, invite.Session, invite.Invitee); err == nil {
		if err := s.enrollments.Delete(invite.Tenant, invite.Session, invite.Invitee); err != nil {
			return err
		}
		return s.offers.promoteNextLocked(ctx, invite.Tenant, invite.Session)
	}
	waitlisted, err := s.waitlist.Contains(invite.Tenant, invite.Session, invite.Invitee)
	if err != nil {
		return err
	}
	if !waitlisted {
		return nil
	}
	return s.waitlist.Remove(invite.Tenant, invite.Session, invite.Invitee)
}

func (s *InviteService) notify(ctx context.Context, recipient domain.UserID, n domain.Notification) {
	if err := s.notifier.Send(ctx, recipient, n); err != nil {
		s.log.Warn("notification delivery failed",
			slog.String("kind", string(n.Kind)),
			slog.String("recipient", string(recipient)),
			slog.Any("error", err))
	}
}
