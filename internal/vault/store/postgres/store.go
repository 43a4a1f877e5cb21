package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"virasat/internal/vault"
	id "virasat/pkg/domain"
	"virasat/pkg/sentinel"
)

// Store persists vault records in PostgreSQL. All families share one table
// with a family discriminator and a JSONB field map; the schema registry has
// already vetted family names and field sets before queries reach this layer.
// This store is pure I/O; validation belongs in the service.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListByOwner(ctx context.Context, owner id.UserID, family string) ([]vault.Record, error) {
	query := `
		SELECT id, owner_id, family, fields, created_at, updated_at
		FROM vault_records
		WHERE owner_id = $1 AND family = $2
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, owner.String(), family)
	if err != nil {
		return nil, fmt.Errorf("list vault records: %w", err)
	}
	defer rows.Close()

	var records []vault.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vault records: %w", err)
	}
	return records, nil
}

func (s *Store) Insert(ctx context.Context, record vault.Record) error {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("marshal record fields: %w", err)
	}
	query := `
		INSERT INTO vault_records (id, owner_id, family, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID.String(),
		record.Owner.String(),
		record.Family,
		fields,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vault record: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, record vault.Record) (vault.Record, error) {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return vault.Record{}, fmt.Errorf("marshal record fields: %w", err)
	}
	// Owner and family in the predicate keep foreign rows untouchable even
	// if a forged record ID reaches this layer.
	query := `
		UPDATE vault_records
		SET fields = $4, updated_at = $5
		WHERE id = $1 AND owner_id = $2 AND family = $3
		RETURNING created_at
	`
	updated := record
	err = s.db.QueryRowContext(ctx, query,
		record.ID.String(),
		record.Owner.String(),
		record.Family,
		fields,
		record.UpdatedAt,
	).Scan(&updated.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return vault.Record{}, sentinel.ErrNotFound
		}
		return vault.Record{}, fmt.Errorf("update vault record: %w", err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, owner id.UserID, family string, recordID id.RecordID) error {
	query := `
		DELETE FROM vault_records
		WHERE id = $1 AND owner_id = $2 AND family = $3
	`
	result, err := s.db.ExecContext(ctx, query, recordID.String(), owner.String(), family)
	if err != nil {
		return fmt.Errorf("delete vault record: %w", err)
	}
	return requireRowAffected(result, "delete vault record")
}

func requireRowAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanRecord(rows *sql.Rows) (vault.Record, error) {
	var (
		record    vault.Record
		rawID     string
		rawOwner  string
		rawFields []byte
	)
	if err := rows.Scan(&rawID, &rawOwner, &record.Family, &rawFields, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return vault.Record{}, fmt.Errorf("scan vault record: %w", err)
	}

	recordID, err := id.ParseRecordID(rawID)
	if err != nil {
		return vault.Record{}, fmt.Errorf("scan vault record: %w", err)
	}
	owner, err := id.ParseUserID(rawOwner)
	if err != nil {
		return vault.Record{}, fmt.Errorf("scan vault record: %w", err)
	}
	if err := json.Unmarshal(rawFields, &record.Fields); err != nil {
		return vault.Record{}, fmt.Errorf("unmarshal record fields: %w", err)
	}

	record.ID = recordID
	record.Owner = owner
	return record, nil
}
