//go:generate go run go.uber.org/mock/mockgen -source=invite.go -destination=../mocks/mock_invite_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"roster-lab/domain"
	"roster-lab/errors"
)

type IInviteRepository interface {
	Put(invite domain.Invite) error
	Get(tenant domain.TenantID, session uuid.UUID, invitee domain.UserID) (domain.Invite, error)
	ListBySession(tenant domain.TenantID, session uuid.UUID) ([]domain.Invite, error)
	// ListPending returns every pending invite across all tenants, for the
	// expiry sweep.
	ListPending() ([]domain.Invite, error)
	DeleteBySession(tenant domain.TenantID, session uuid.UUID) error
}

type InviteRepository struct {
	db *badger.DB
}

func NewInviteRepository(db *badger.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func inviteKey(tenant domain.TenantID, session uuid.UUID, invitee domain.UserID) []byte {
	return fmt.Appendf(nil, "inv:%s:%s:%s", tenant, session, invitee)
}

func (r *InviteRepository) Put(invite domain.Invite) error {
	data, err := encode(invite)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(inviteKey(invite.Tenant, invite.Session, invite.Invitee), data)
	})
}

func (r *InviteRepository) Get(tenant domain.TenantID, session uuid.UUID, invitee domain.UserID) (domain.Invite, error) {
	var invite domain.Invite
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(inviteKey(tenant, session, invitee))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrInviteExpired
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return decode(v, &invite)
		})
	})
	return invite, err
}

func (r *InviteRepository) ListBySession(tenant domain.TenantID, session uuid.UUID) ([]domain.Invite, error) {
	return r.scan(fmt.Appendf(nil, "inv:%s:%s:", tenant, session), nil)
}

func (r *InviteRepository) ListPending() ([]domain.Invite, error) {
	pending := func(i domain.Invite) bool { return i.State == domain.InvitePending }
	return r.scan([]byte("inv:"), pending)
}

func (r *InviteRepository) scan(prefix []byte, keep func(domain.Invite) bool) ([]domain.Invite, error) {
	var invites []domain.Invite
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var invite domain.Invite
				if err := decode(v, &invite); err != nil {
					return err
				}
				if keep == nil || keep(invite) {
					invites = append(invites, invite)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return invites, err
}

func (r *InviteRepository) DeleteBySession(tenant domain.TenantID, session uuid.UUID) error {
	return deletePrefix(r.db, fmt.Appendf(nil, "inv:%s:%s:", tenant, session))
}
