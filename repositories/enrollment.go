//go:generate go run go.uber.org/mock/mockgen -source=enrollment.go -destination=../mocks/mock_enrollment_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"roster-lab/domain"
	"roster-lab/errors"
)

type IEnrollmentRepository interface {
	Put(e domain.Enrollment) error
	Get(tenant domain.TenantID, session uuid.UUID, user domain.UserID) (domain.Enrollment, error)
	Delete(tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	ListBySession(tenant domain.TenantID, session uuid.UUID) ([]domain.Enrollment, error)
	Count(tenant domain.TenantID, session uuid.UUID) (int, error)
	DeleteBySession(tenant domain.TenantID, session uuid.UUID) error
}

type EnrollmentRepository struct {
	db *badger.DB
}

func NewEnrollmentRepository(db *badger.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func enrollmentKey(tenant domain.TenantID, session uuid.UUID, user domain.UserID) []byte {
	return fmt.Appendf(nil, "enr:%s:%s:%s", tenant, session, user)
}

func enrollmentPrefix(tenant domain.TenantID, session uuid.UUID) []byte {
	return fmt.Appendf(nil, "enr:%s:%s:", tenant, session)
}

func (r *EnrollmentRepository) Put(e domain.Enrollment) error {
	data, err := encode(e)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(enrollmentKey(e.Tenant, e.Session, e.User), data)
	})
}

func (r *EnrollmentRepository) Get(tenant domain.TenantID, session uuid.UUID, user domain.UserID) (domain.Enrollment, error) {
	var e domain.Enrollment
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(enrollmentKey(tenant, session, user))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotEnrolled
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return decode(v, &e)
		})
	})
	return e, err
}

func (r *EnrollmentRepository) Delete(tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(enrollmentKey(tenant, session, user))
	})
}

// ListBySession returns a session's enrollments sorted by enrollment time,
// oldest first.
func (r *EnrollmentRepository) ListBySession(tenant domain.TenantID, session uuid.UUID) ([]domain.Enrollment, error) {
	var enrollments []domain.Enrollment
	prefix := enrollmentPrefix(tenant, session)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var e domain.Enrollment
				if err := decode(v, &e); err != nil {
					return err
				}
				enrollments = append(enrollments, e)
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
	sort.Slice(enrollments, func(i, j int) bool {
		return enrollments[i].EnrolledAt.Before(enrollments[j].EnrolledAt)
	})
	return enrollments, nil
}

func (r *EnrollmentRepository) Count(tenant domain.TenantID, session uuid.UUID) (int, error) {
	count := 0
	prefix := enrollmentPrefix(tenant, session)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (r *EnrollmentRepository) DeleteBySession(tenant domain.TenantID, session uuid.UUID) error {
	return deletePrefix(r.db, enrollmentPrefix(tenant, session))
}

// deletePrefix removes every key under a prefix in one transaction.
func deletePrefix(db *badger.DB, prefix []byte) error {
	return db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
