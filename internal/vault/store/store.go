// Package store defines the persistence contract for vault records.
//
// Every query is scoped by owner: the store must never return, update, or
// delete a row whose owner differs from the caller's. Services pass the
// owner explicitly so the contract is visible at the call site.
package store

import (
	"context"

	"virasat/internal/vault"
	id "virasat/pkg/domain"
)

// Store persists vault records. Implementations: memory, postgres.
type Store interface {
	// ListByOwner returns the owner's records of one family, newest-first
	// by creation time.
	ListByOwner(ctx context.Context, owner id.UserID, family string) ([]vault.Record, error)

	// Insert persists a fully-populated record.
	Insert(ctx context.Context, record vault.Record) error

	// Update replaces the fields of the owner's record and returns the
	// stored row, or sentinel.ErrNotFound when no row matches both id
	// and owner.
	Update(ctx context.Context, record vault.Record) (vault.Record, error)

	// Delete removes the owner's record. Rows owned by other users are
	// invisible: deleting them returns sentinel.ErrNotFound.
	Delete(ctx context.Context, owner id.UserID, family string, recordID id.RecordID) error
}
