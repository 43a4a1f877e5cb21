// Package revocation tracks signed-out sessions so their tokens stop
// validating before they expire.
package revocation

import (
	"context"
	"sync"
	"time"

	id "virasat/pkg/domain"
)

// MemoryList is an in-memory revocation list for single-instance deployments
// and tests. Entries expire lazily on read.
type MemoryList struct {
	mu      sync.RWMutex
	revoked map[id.SessionID]time.Time
}

func NewMemory() *MemoryList {
	return &MemoryList{revoked: make(map[id.SessionID]time.Time)}
}

func (l *MemoryList) Revoke(_ context.Context, sessionID id.SessionID, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[sessionID] = time.Now().Add(ttl)
	return nil
}

func (l *MemoryList) IsRevoked(_ context.Context, sessionID id.SessionID) (bool, error) {
	l.mu.RLock()
	expiry, ok := l.revoked[sessionID]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		l.mu.Lock()
		delete(l.revoked, sessionID)
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}
