//go:generate go run go.uber.org/mock/mockgen -source=tenant.go -destination=../mocks/mock_tenant_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"roster-lab/domain"
)

type ITenantRepository interface {
	// Settings returns a tenant's settings, falling back to the zero value
	// (no payment deadline, unlimited invites) when none were stored.
	Settings(tenant domain.TenantID) (domain.TenantSettings, error)
	PutSettings(settings domain.TenantSettings) error
}

type TenantRepository struct {
	db *badger.DB
}

func NewTenantRepository(db *badger.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func tenantKey(tenant domain.TenantID) []byte {
	return fmt.Appendf(nil, "tenant:%s", tenant)
}

func (r *TenantRepository) Settings(tenant domain.TenantID) (domain.TenantSettings, error) {
	settings := domain.TenantSettings{Tenant: tenant}
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tenantKey(tenant))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return decode(v, &settings)
		})
	})
	return settings, err
}

func (r *TenantRepository) PutSettings(settings domain.TenantSettings) error {
	data, err := encode(settings)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tenantKey(settings.Tenant), data)
	})
}
