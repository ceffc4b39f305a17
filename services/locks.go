package services

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"roster-lab/domain"
)

// SessionLocks serializes all mutations of a single session. Every
// roster change is a read-modify-write over several key prefixes, so the
// services take the session's lock before touching anything and the
// unexported *Locked helpers compose under a lock already held.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for (tenant, session) and returns it so the
// caller can `defer locks.Lock(...).Unlock()`.
func (l *SessionLocks) Lock(tenant domain.TenantID, session uuid.UUID) *sync.Mutex {
	key := fmt.Sprintf("%s/%s", tenant, session)
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m
}
