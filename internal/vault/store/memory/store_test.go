package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"virasat/internal/vault"
	id "virasat/pkg/domain"
	"virasat/pkg/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	now   time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newRecord(owner id.UserID, family string, createdAt time.Time) vault.Record {
	return vault.Record{
		ID:        id.NewRecordID(),
		Owner:     owner,
		Family:    family,
		Fields:    map[string]string{"bank": "Test Bank"},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// TestInsertAndList verifies round-trips and newest-first ordering.
func (s *MemoryStoreSuite) TestInsertAndList() {
	owner := id.NewUserID()

	s.Run("round-trips a record", func() {
		record := s.newRecord(owner, "bank_accounts", s.now)
		s.Require().NoError(s.store.Insert(s.ctx, record))

		records, err := s.store.ListByOwner(s.ctx, owner, "bank_accounts")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(record.ID, records[0].ID)
		s.Equal(record.Fields, records[0].Fields)
	})

	s.Run("lists newest first", func() {
		older := s.newRecord(owner, "vehicles", s.now)
		newer := s.newRecord(owner, "vehicles", s.now.Add(time.Minute))
		s.Require().NoError(s.store.Insert(s.ctx, older))
		s.Require().NoError(s.store.Insert(s.ctx, newer))

		records, err := s.store.ListByOwner(s.ctx, owner, "vehicles")
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.Equal(newer.ID, records[0].ID)
		s.Equal(older.ID, records[1].ID)
	})

	s.Run("list is idempotent", func() {
		first, err := s.store.ListByOwner(s.ctx, owner, "vehicles")
		s.Require().NoError(err)
		second, err := s.store.ListByOwner(s.ctx, owner, "vehicles")
		s.Require().NoError(err)
		s.Equal(first, second)
	})
}

// TestOwnerIsolation verifies one user's records never leak into another's list.
func (s *MemoryStoreSuite) TestOwnerIsolation() {
	alice := id.NewUserID()
	bob := id.NewUserID()

	s.Require().NoError(s.store.Insert(s.ctx, s.newRecord(alice, "passwords", s.now)))
	s.Require().NoError(s.store.Insert(s.ctx, s.newRecord(bob, "passwords", s.now)))

	records, err := s.store.ListByOwner(s.ctx, alice, "passwords")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(alice, records[0].Owner)
}

// TestUpdate verifies updates are scoped to owner and family.
func (s *MemoryStoreSuite) TestUpdate() {
	owner := id.NewUserID()
	record := s.newRecord(owner, "properties", s.now)
	s.Require().NoError(s.store.Insert(s.ctx, record))

	s.Run("persists field changes and keeps created_at", func() {
		record.Fields = map[string]string{"bank": "Updated"}
		record.UpdatedAt = s.now.Add(time.Hour)

		updated, err := s.store.Update(s.ctx, record)
		s.Require().NoError(err)
		s.Equal("Updated", updated.Fields["bank"])
		s.Equal(s.now, updated.CreatedAt)
	})

	s.Run("rejects another owner's record id", func() {
		foreign := record
		foreign.Owner = id.NewUserID()
		_, err := s.store.Update(s.ctx, foreign)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects unknown record", func() {
		ghost := s.newRecord(owner, "properties", s.now)
		_, err := s.store.Update(s.ctx, ghost)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestDelete verifies deletion removes exactly the target row.
func (s *MemoryStoreSuite) TestDelete() {
	owner := id.NewUserID()
	keep := s.newRecord(owner, "medications", s.now)
	drop := s.newRecord(owner, "medications", s.now.Add(time.Second))
	s.Require().NoError(s.store.Insert(s.ctx, keep))
	s.Require().NoError(s.store.Insert(s.ctx, drop))

	s.Run("removes only the target", func() {
		s.Require().NoError(s.store.Delete(s.ctx, owner, "medications", drop.ID))

		records, err := s.store.ListByOwner(s.ctx, owner, "medications")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(keep.ID, records[0].ID)
	})

	s.Run("returns ErrNotFound for nonexistent id", func() {
		err := s.store.Delete(s.ctx, owner, "medications", id.NewRecordID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("refuses cross-owner deletion", func() {
		err := s.store.Delete(s.ctx, id.NewUserID(), "medications", keep.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		records, err := s.store.ListByOwner(s.ctx, owner, "medications")
		s.Require().NoError(err)
		s.Len(records, 1)
	})

	s.Run("refuses wrong-family deletion", func() {
		err := s.store.Delete(s.ctx, owner, "vehicles", keep.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestDefensiveCopies verifies callers cannot mutate stored state through
// returned records.
func (s *MemoryStoreSuite) TestDefensiveCopies() {
	owner := id.NewUserID()
	record := s.newRecord(owner, "health_records", s.now)
	s.Require().NoError(s.store.Insert(s.ctx, record))

	records, err := s.store.ListByOwner(s.ctx, owner, "health_records")
	s.Require().NoError(err)
	records[0].Fields["bank"] = "mutated"

	again, err := s.store.ListByOwner(s.ctx, owner, "health_records")
	s.Require().NoError(err)
	s.Equal("Test Bank", again[0].Fields["bank"])
}
