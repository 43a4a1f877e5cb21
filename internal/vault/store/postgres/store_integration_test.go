//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"virasat/internal/vault"
	"virasat/internal/vault/store/postgres"
	id "virasat/pkg/domain"
	"virasat/pkg/sentinel"
	"virasat/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	owner    id.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "vault_records", "users"))

	// Records reference users, so every test needs an owner row.
	s.owner = id.NewUserID()
	s.insertUser(s.owner)
}

func (s *PostgresStoreSuite) insertUser(userID id.UserID) {
	_, err := s.postgres.DB.ExecContext(context.Background(), `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, '', now(), now())`,
		userID.String(), userID.String()+"@example.com")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newRecord(owner id.UserID, family string, createdAt time.Time) vault.Record {
	return vault.Record{
		ID:        id.NewRecordID(),
		Owner:     owner,
		Family:    family,
		Fields:    map[string]string{"type": "Savings", "bank": "SBI"},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// TestRoundTrip verifies the JSONB field map survives insert and list.
func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	record := s.newRecord(s.owner, "bank_accounts", now)
	s.Require().NoError(s.store.Insert(ctx, record))

	records, err := s.store.ListByOwner(ctx, s.owner, "bank_accounts")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(record.ID, records[0].ID)
	s.Equal(record.Fields, records[0].Fields)
	s.True(records[0].CreatedAt.Equal(now))
}

// TestOrdering verifies created_at DESC ordering.
func (s *PostgresStoreSuite) TestOrdering() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	older := s.newRecord(s.owner, "vehicles", base.Add(-time.Hour))
	newer := s.newRecord(s.owner, "vehicles", base)
	s.Require().NoError(s.store.Insert(ctx, older))
	s.Require().NoError(s.store.Insert(ctx, newer))

	records, err := s.store.ListByOwner(ctx, s.owner, "vehicles")
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(newer.ID, records[0].ID)
}

// TestOwnerIsolation verifies every operation is scoped by owner_id.
func (s *PostgresStoreSuite) TestOwnerIsolation() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	other := id.NewUserID()
	s.insertUser(other)

	mine := s.newRecord(s.owner, "passwords", now)
	s.Require().NoError(s.store.Insert(ctx, mine))

	s.Run("foreign list is empty", func() {
		records, err := s.store.ListByOwner(ctx, other, "passwords")
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("foreign delete affects nothing", func() {
		err := s.store.Delete(ctx, other, "passwords", mine.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		records, err := s.store.ListByOwner(ctx, s.owner, "passwords")
		s.Require().NoError(err)
		s.Len(records, 1)
	})

	s.Run("foreign update affects nothing", func() {
		hijack := mine
		hijack.Owner = other
		hijack.Fields = map[string]string{"type": "Hijacked"}
		_, err := s.store.Update(ctx, hijack)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestUpdate verifies replace semantics and created_at preservation.
func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	record := s.newRecord(s.owner, "properties", now)
	s.Require().NoError(s.store.Insert(ctx, record))

	record.Fields = map[string]string{"type": "Land", "bank": ""}
	record.UpdatedAt = now.Add(time.Minute)
	updated, err := s.store.Update(ctx, record)
	s.Require().NoError(err)
	s.Equal("Land", updated.Fields["type"])
	s.True(updated.CreatedAt.Equal(now))

	ghost := s.newRecord(s.owner, "properties", now)
	_, err = s.store.Update(ctx, ghost)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestDelete verifies exact-row deletion.
func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	keep := s.newRecord(s.owner, "medications", now)
	drop := s.newRecord(s.owner, "medications", now)
	s.Require().NoError(s.store.Insert(ctx, keep))
	s.Require().NoError(s.store.Insert(ctx, drop))

	s.Require().NoError(s.store.Delete(ctx, s.owner, "medications", drop.ID))

	records, err := s.store.ListByOwner(ctx, s.owner, "medications")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(keep.ID, records[0].ID)

	err = s.store.Delete(ctx, s.owner, "medications", id.NewRecordID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
