//go:generate go run go.uber.org/mock/mockgen -source=autosignup.go -destination=../mocks/mock_autosignup_repository.go -package=mocks
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

type IAutoSignupRepository interface {
	// Balance reads a user's credit balance, lazily creating the account
	// with one credit on first read.
	Balance(tenant domain.TenantID, user domain.UserID) (int, error)
	// Adjust adds delta to the balance (negative to consume). It fails
	// with ErrInsufficientCredit when the result would go below zero.
	Adjust(tenant domain.TenantID, user domain.UserID, delta int) (int, error)
	AddRequest(req domain.AutoSignupRequest) error
	HasRequest(tenant domain.TenantID, session uuid.UUID, user domain.UserID) (bool, error)
	CountRequests(tenant domain.TenantID, session uuid.UUID) (int, error)
	// ListRequests returns a session's requests in request-time order.
	ListRequests(tenant domain.TenantID, session uuid.UUID) ([]domain.AutoSignupRequest, error)
	DeleteRequest(tenant domain.TenantID, session uuid.UUID, user domain.UserID) error
	DeleteRequestsBySession(tenant domain.TenantID, session uuid.UUID) error
}

type AutoSignupRepository struct {
	db *badger.DB
}

func NewAutoSignupRepository(db *badger.DB) *AutoSignupRepository {
	return &AutoSignupRepository{db: db}
}

const initialCreditBalance = 1

func balanceKey(tenant domain.TenantID, user domain.UserID) []byte {
	return fmt.Appendf(nil, "autobal:%s:%s", tenant, user)
}

func requestKey(tenant domain.TenantID, session uuid.UUID, user domain.UserID) []byte {
	return fmt.Appendf(nil, "autoreq:%s:%s:%s", tenant, session, user)
}

func requestPrefix(tenant domain.TenantID, session uuid.UUID) []byte {
	return fmt.Appendf(nil, "autoreq:%s:%s:", tenant, session)
}

func (r *AutoSignupRepository) Balance(tenant domain.TenantID, user domain.UserID) (int, error) {
	balance := 0
	err := r.db.Update(func(txn *badger.Txn) error {
		account, err := readAccount(txn, tenant, user)
		if err != nil {
			return err
		}
		if account == nil {
			account = &domain.AutoSignupAccount{Tenant: tenant, User: user, Balance: initialCreditBalance}
			if err := writeAccount(txn, *account); err != nil {
				return err
			}
		}
		balance = account.Balance
		return nil
	})
	return balance, err
}

func (r *AutoSignupRepository) Adjust(tenant domain.TenantID, user domain.UserID, delta int) (int, error) {
	balance := 0
	err := r.db.Update(func(txn *badger.Txn) error {
		account, err := readAccount(txn, tenant, user)
		if err != nil {
			return err
		}
		if account == nil {
			account = &domain.AutoSignupAccount{Tenant: tenant, User: user, Balance: initialCreditBalance}
		}
		if account.Balance+delta < 0 {
			return errors.ErrInsufficientCredit
		}
		account.Balance += delta
		balance = account.Balance
		return writeAccount(txn, *account)
	})
	return balance, err
}

func (r *AutoSignupRepository) AddRequest(req domain.AutoSignupRequest) error {
	data, err := encode(req)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(requestKey(req.Tenant, req.Session, req.User), data)
	})
}

func (r *AutoSignupRepository) HasRequest(tenant domain.TenantID, session uuid.UUID, user domain.UserID) (bool, error) {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(requestKey(tenant, session, user))
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

func (r *AutoSignupRepository) CountRequests(tenant domain.TenantID, session uuid.UUID) (int, error) {
	count := 0
	prefix := requestPrefix(tenant, session)
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

func (r *AutoSignupRepository) ListRequests(tenant domain.TenantID, session uuid.UUID) ([]domain.AutoSignupRequest, error) {
	var requests []domain.AutoSignupRequest
	prefix := requestPrefix(tenant, session)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var req domain.AutoSignupRequest
				if err := decode(v, &req); err != nil {
					return err
				}
				requests = append(requests, req)
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
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].RequestedAt.Before(requests[j].RequestedAt)
	})
	return requests, nil
}

func (r *AutoSignupRepository) DeleteRequest(tenant domain.TenantID, session uuid.UUID, user domain.UserID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(requestKey(tenant, session, user))
	})
}

func (r *AutoSignupRepository) DeleteRequestsBySession(tenant domain.TenantID, session uuid.UUID) error {
	return deletePrefix(r.db, requestPrefix(tenant, session))
}

func readAccount(txn *badger.Txn, tenant domain.TenantID, user domain.UserID) (*domain.AutoSignupAccount, error) {
	item, err := txn.Get(balanceKey(tenant, user))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var account domain.AutoSignupAccount
	if err := item.Value(func(v []byte) error { return decode(v, &account) }); err != nil {
		return nil, err
	}
	return &account, nil
}

func writeAccount(txn *badger.Txn, account domain.AutoSignupAccount) error {
	data, err := encode(account)
	if err != nil {
		return err
	}
	return txn.Set(balanceKey(account.Tenant, account.User), data)
}
