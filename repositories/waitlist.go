//go:generate go run go.uber.org/mock/mockgen -source=waitlist.go -destination=../mocks/mock_waitlist_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"roster-lab/domain"
	"roster-lab/errors"
)

type IWaitlistRepository interface {
	// Append adds a user at the tail and returns the assigned position.
	Append(tenant domain.TenantID, session uuid.UUID, user domain.UserID, at time.Time) (int, error)
	// Remove deletes a user's entry and compacts every higher position
	// down by one, keeping the 1..N sequence gapless.
	Remove(tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	Head(tenant domain.TenantID, session uuid.UUID) (domain.WaitlistEntry, bool, error)
	Contains(tenant domain.TenantID, session uuid.UUID, user domain.UserID) (bool, error)
	List(tenant domain.TenantID, session uuid.UUID) ([]domain.WaitlistEntry, error)
	DeleteBySession(tenant domain.TenantID, session uuid.UUID) error
}

// WaitlistRepository keys entries by user and stores the position inside
// the record. Position maintenance happens in a single transaction per
// mutation; callers serialize mutations per session, so the read-modify-
// write over the whole list is safe.
type WaitlistRepository struct {
	db *badger.DB
}

func NewWaitlistRepository(db *badger.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

func waitlistKey(tenant domain.TenantID, session uuid.UUID, user domain.UserID) []byte {
	return fmt.Appendf(nil, "wl:%s:%s:%s", tenant, session, user)
}

func waitlistPrefix(tenant domain.TenantID, session uuid.UUID) []byte {
	return fmt.Appendf(nil, "wl:%s:%s:", tenant, session)
}

func (r *WaitlistRepository) Append(tenant domain.TenantID, session uuid.UUID, user domain.UserID, at time.Time) (int, error) {
	position := 0
	err := r.db.Update(func(txn *badger.Txn) error {
		entries, err := listEntries(txn, waitlistPrefix(tenant, session))
		if err != nil {
			return err
		}
		max := 0
		for _, e := range entries {
			if e.Position > max {
				max = e.Position
			}
		}
		position = max + 1
		data, err := encode(domain.WaitlistEntry{
			Tenant:   tenant,
			Session:  session,
			User:     user,
			Position: position,
			JoinedAt: at,
		})
		if err != nil {
			return err
		}
		return txn.Set(waitlistKey(tenant, session, user), data)
	})
	if err != nil {
		return 0, err
	}
	return position, nil
}

func (r *WaitlistRepository) Remove(tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		entries, err := listEntries(txn, waitlistPrefix(tenant, session))
		if err != nil {
			return err
		}
		removed := 0
		for _, e := range entries {
			if e.User == user {
				removed = e.Position
				break
			}
		}
		if removed == 0 {
			return errors.ErrNotWaitlisted
		}
		if err := txn.Delete(waitlistKey(tenant, session, user)); err != nil {
			return err
		}
		for _, e := range entries {
			if e.Position <= removed {
				continue
			}
			e.Position--
			data, err := encode(e)
			if err != nil {
				return err
			}
			if err := txn.Set(waitlistKey(tenant, session, e.User), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *WaitlistRepository) Head(tenant domain.TenantID, session uuid.UUID) (domain.WaitlistEntry, bool, error) {
	entries, err := r.List(tenant, session)
	if err != nil {
		return domain.WaitlistEntry{}, false, err
	}
	if len(entries) == 0 {
		return domain.WaitlistEntry{}, false, nil
	}
	return entries[0], true, nil
}

func (r *WaitlistRepository) Contains(tenant domain.TenantID, session uuid.UUID, user domain.UserID) (bool, error) {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(waitlistKey(tenant, session, user))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// List returns a session's waitlist ordered by position.
func (r *WaitlistRepository) List(tenant domain.TenantID, session uuid.UUID) ([]domain.WaitlistEntry, error) {
	var entries []domain.WaitlistEntry
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		entries, err = listEntries(txn, waitlistPrefix(tenant, session))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})
	return entries, nil
}

func (r *WaitlistRepository) DeleteBySession(tenant domain.TenantID, session uuid.UUID) error {
	return deletePrefix(r.db, waitlistPrefix(tenant, session))
}

func listEntries(txn *badger.Txn, prefix []byte) ([]domain.WaitlistEntry, error) {
	var entries []domain.WaitlistEntry
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(v []byte) error {
			var e domain.WaitlistEntry
			if err := decode(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}
