package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"roster-lab/domain"
	"roster-lab/errors"
)

func TestAutoSignupRepository_Balance_LazyCreatesWithOneCredit(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewAutoSignupRepository(db)

	// When: Reading a balance that was never written
	balance, err := repo.Balance("club-a", "alice")

	// Then: The account exists with a single credit
	req.NoError(err)
	req.Equal(1, balance)

	// And: A second read sees the same persisted account
	balance, err = repo.Balance("club-a", "alice")
	req.NoError(err)
	req.Equal(1, balance)
}

func TestAutoSignupRepository_Adjust_ConsumeAndGrant(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewAutoSignupRepository(db)

	// Consuming the starter credit leaves zero
	balance, err := repo.Adjust("club-a", "alice", -1)
	req.NoError(err)
	req.Equal(0, balance)

	// Going below zero is rejected and the balance stays put
	_, err = repo.Adjust("club-a", "alice", -1)
	req.ErrorIs(err, errors.ErrInsufficientCredit)

	balance, err = repo.Balance("club-a", "alice")
	req.NoError(err)
	req.Equal(0, balance)

	// Granting stacks
	balance, err = repo.Adjust("club-a", "alice", 3)
	req.NoError(err)
	req.Equal(3, balance)
}

func TestAutoSignupRepository_Requests_OrderedByTime(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewAutoSignupRepository(db)

	tenant := domain.TenantID("club-a")
	session := uuid.New()
	base := time.Now().UTC()

	// Given: Requests stored out of key order but with increasing timestamps
	users := []domain.UserID{"zoe", "alice", "mike"}
	for i, u := range users {
		req.NoError(repo.AddRequest(domain.AutoSignupRequest{
			Tenant:      tenant,
			Session:     session,
			User:        u,
			RequestedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Then: Listing follows request time, not user ID
	listed, err := repo.ListRequests(tenant, session)
	req.NoError(err)
	req.Len(listed, 3)
	req.Equal(domain.UserID("zoe"), listed[0].User)
	req.Equal(domain.UserID("alice"), listed[1].User)
	req.Equal(domain.UserID("mike"), listed[2].User)

	count, err := repo.CountRequests(tenant, session)
	req.NoError(err)
	req.Equal(3, count)
}

func TestAutoSignupRepository_DeleteRequest(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewAutoSignupRepository(db)

	tenant := domain.TenantID("club-a")
	session := uuid.New()

	req.NoError(repo.AddRequest(domain.AutoSignupRequest{
		Tenant: tenant, Session: session, User: "alice", RequestedAt: time.Now().UTC(),
	}))

	found, err := repo.HasRequest(tenant, session, "alice")
	req.NoError(err)
	req.True(found)

	req.NoError(repo.DeleteRequest(tenant, session, "alice"))

	found, err = repo.HasRequest(tenant, session, "alice")
	req.NoError(err)
	req.False(found)
}
