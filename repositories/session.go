//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"roster-lab/domain"
	"roster-lab/errors"
)

type ISessionRepository interface {
	Put(session domain.Session) error
	Get(tenant domain.TenantID, id uuid.UUID) (domain.Session, error)
	Delete(tenant domain.TenantID, id uuid.UUID) error
	ListByTenant(tenant domain.TenantID) ([]domain.Session, error)
	ListAll() ([]domain.Session, error)
	// MarkReminded records that the reminder for (session, lead) was sent.
	// It reports true on the first call and false afterwards, so a reminder
	// is emitted at most once per lead window.
	MarkReminded(tenant domain.TenantID, id uuid.UUID, lead time.Duration) (bool, error)
}

type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, log *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, log: log}
}

func sessionKey(tenant domain.TenantID, id uuid.UUID) []byte {
	return fmt.Appendf(nil, "session:%s:%s", tenant, id)
}

func (r *SessionRepository) Put(session domain.Session) error {
	data, err := encode(session)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(session.Tenant, session.ID), data)
	})
}

func (r *SessionRepository) Get(tenant domain.TenantID, id uuid.UUID) (domain.Session, error) {
	var session domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(tenant, id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return decode(v, &session)
		})
	})
	return session, err
}

func (r *SessionRepository) Delete(tenant domain.TenantID, id uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(tenant, id))
	})
}

func (r *SessionRepository) ListByTenant(tenant domain.TenantID) ([]domain.Session, error) {
	return r.scan(fmt.Appendf(nil, "session:%s:", tenant))
}

// ListAll returns every tenant's sessions. The sweeps use it to iterate
// the whole session set once per tick.
func (r *SessionRepository) ListAll() ([]domain.Session, error) {
	return r.scan([]byte("session:"))
}

func (r *SessionRepository) scan(prefix []byte) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var s domain.Session
				if err := decode(v, &s); err != nil {
					return err
				}
				sessions = append(sessions, s)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ScheduledAt.Before(sessions[j].ScheduledAt)
	})
	return sessions, nil
}

func (r *SessionRepository) MarkReminded(tenant domain.TenantID, id uuid.UUID, lead time.Duration) (bool, error) {
	key := fmt.Appendf(nil, "remind:%s:%s:%d", tenant, id, int(lead.Minutes()))
	first := false
	err := r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		first = true
		return txn.Set(key, []byte{1})
	})
	return first, err
}
