package memory

import (
	"context"
	"sort"
	"sync"

	"virasat/internal/vault"
	id "virasat/pkg/domain"
	"virasat/pkg/sentinel"
)

// Store is an in-memory vault store for development and tests. It mirrors
// the postgres store's owner-scoping semantics exactly.
type Store struct {
	mu      sync.RWMutex
	records map[id.RecordID]vault.Record
}

func New() *Store {
	return &Store{records: make(map[id.RecordID]vault.Record)}
}

func (s *Store) ListByOwner(_ context.Context, owner id.UserID, family string) ([]vault.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vault.Record
	for _, r := range s.records {
		if r.Owner == owner && r.Family == family {
			r.Fields = vault.CloneFields(r.Fields)
			out = append(out, r)
		}
	}
	// Newest first; ties broken by id for a stable order.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (s *Store) Insert(_ context.Context, record vault.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	record.Fields = vault.CloneFields(record.Fields)
	s.records[record.ID] = record
	return nil
}

func (s *Store) Update(_ context.Context, record vault.Record) (vault.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[record.ID]
	if !ok || existing.Owner != record.Owner || existing.Family != record.Family {
		return vault.Record{}, sentinel.ErrNotFound
	}
	existing.Fields = vault.CloneFields(record.Fields)
	existing.UpdatedAt = record.UpdatedAt
	s.records[record.ID] = existing

	existing.Fields = vault.CloneFields(existing.Fields)
	return existing, nil
}

func (s *Store) Delete(_ context.Context, owner id.UserID, family string, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[recordID]
	if !ok || existing.Owner != owner || existing.Family != family {
		return sentinel.ErrNotFound
	}
	delete(s.records, recordID)
	return nil
}
