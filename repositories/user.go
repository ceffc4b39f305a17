//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"roster-lab/domain"
)

// IUserRepository is the registry of users who have interacted with the
// system. It backs the UnknownUser check on invites: nobody can be invited
// before they have shown up once themselves.
type IUserRepository interface {
	Touch(user domain.UserID, at time.Time) error
	Exists(user domain.UserID) (bool, error)
	List() ([]domain.UserID, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(user domain.UserID) []byte {
	return fmt.Appendf(nil, "user:%s", user)
}

type userRecord struct {
	User      domain.UserID
	FirstSeen time.Time
}

func (r *UserRepository) Touch(user domain.UserID, at time.Time) error {
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(user))
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := encode(userRecord{User: user, FirstSeen: at})
		if err != nil {
			return err
		}
		return txn.Set(userKey(user), data)
	})
}

func (r *UserRepository) Exists(user domain.UserID) (bool, error) {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(user))
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

func (r *UserRepository) List() ([]domain.UserID, error) {
	var users []domain.UserID
	prefix := []byte("user:")
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var rec userRecord
				if err := decode(v, &rec); err != nil {
					return err
				}
				users = append(users, rec.User)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return users, err
}
