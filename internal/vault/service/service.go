// Package service implements the owner-scoped CRUD operations shared by all
// entity families. One engine, parameterized by the schema registry, replaces
// ten near-identical per-family flows.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"virasat/internal/audit"
	"virasat/internal/vault"
	vaultmetrics "virasat/internal/vault/metrics"
	"virasat/internal/vault/store"
	id "virasat/pkg/domain"
	derrors "virasat/pkg/domainerrors"
	"virasat/pkg/requestcontext"
	"virasat/pkg/sentinel"
)

// Service orchestrates vault record operations. The owner is always taken
// from the request context, never from a payload, so a client cannot create
// or touch rows under a foreign owner through this layer.
type Service struct {
	registry *vault.Registry
	records  store.Store
	audit    *audit.Publisher
	metrics  *vaultmetrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(registry *vault.Registry, records store.Store, publisher *audit.Publisher, metrics *vaultmetrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		records:  records,
		audit:    publisher,
		metrics:  metrics,
		logger:   logger,
		tracer:   otel.Tracer("virasat/vault"),
	}
}

// List returns the caller's records of one family, newest-first. An empty
// result is a valid state, not an error.
func (s *Service) List(ctx context.Context, family string) ([]vault.Record, error) {
	ctx, span := s.startSpan(ctx, "vault.List", family)
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	f, err := s.lookupFamily(family)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := s.records.ListByOwner(ctx, owner, f.Name)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list records")
	}
	if s.metrics != nil {
		s.metrics.ListDuration.Observe(time.Since(start).Seconds())
	}
	return records, nil
}

// Create validates the submitted fields against the family schema and
// persists a new record owned by the caller. No store call is made when
// validation fails.
func (s *Service) Create(ctx context.Context, family string, fields map[string]string) (vault.Record, error) {
	ctx, span := s.startSpan(ctx, "vault.Create", family)
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return vault.Record{}, err
	}
	f, err := s.lookupFamily(family)
	if err != nil {
		return vault.Record{}, err
	}
	if err := validateFields(f, fields); err != nil {
		return vault.Record{}, err
	}

	now := requestcontext.Now(ctx)
	record := vault.Record{
		ID:        id.NewRecordID(),
		Owner:     owner,
		Family:    f.Name,
		Fields:    vault.CloneFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.records.Insert(ctx, record); err != nil {
		return vault.Record{}, derrors.Wrap(err, derrors.CodeInternal, "failed to create record")
	}

	if s.metrics != nil {
		s.metrics.RecordCreated(f.Name)
	}
	s.emit(ctx, audit.Event{
		UserID:  owner,
		Action:  audit.ActionRecordCreated,
		Subject: f.Name + "/" + record.ID.String(),
	})
	return record, nil
}

// Update replaces the record's fields wholesale (replace-on-edit), keeping
// the same validation as Create.
func (s *Service) Update(ctx context.Context, family string, recordID id.RecordID, fields map[string]string) (vault.Record, error) {
	ctx, span := s.startSpan(ctx, "vault.Update", family)
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return vault.Record{}, err
	}
	f, err := s.lookupFamily(family)
	if err != nil {
		return vault.Record{}, err
	}
	if recordID.IsZero() {
		return vault.Record{}, derrors.New(derrors.CodeBadRequest, "record id is required")
	}
	if err := validateFields(f, fields); err != nil {
		return vault.Record{}, err
	}

	record := vault.Record{
		ID:        recordID,
		Owner:     owner,
		Family:    f.Name,
		Fields:    vault.CloneFields(fields),
		UpdatedAt: requestcontext.Now(ctx),
	}
	record, err = s.records.Update(ctx, record)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return vault.Record{}, derrors.New(derrors.CodeNotFound, "record not found")
		}
		return vault.Record{}, derrors.Wrap(err, derrors.CodeInternal, "failed to update record")
	}

	s.emit(ctx, audit.Event{
		UserID:  owner,
		Action:  audit.ActionRecordUpdated,
		Subject: f.Name + "/" + recordID.String(),
	})
	return record, nil
}

// Delete removes the caller's record. Deleting an id that does not exist (or
// belongs to someone else) reports not-found and touches nothing.
func (s *Service) Delete(ctx context.Context, family string, recordID id.RecordID) error {
	ctx, span := s.startSpan(ctx, "vault.Delete", family)
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return err
	}
	f, err := s.lookupFamily(family)
	if err != nil {
		return err
	}
	if recordID.IsZero() {
		return derrors.New(derrors.CodeBadRequest, "record id is required")
	}

	if err := s.records.Delete(ctx, owner, f.Name, recordID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return derrors.New(derrors.CodeNotFound, "record not found")
		}
		return derrors.Wrap(err, derrors.CodeInternal, "failed to delete record")
	}

	if s.metrics != nil {
		s.metrics.RecordDeleted(f.Name)
	}
	s.emit(ctx, audit.Event{
		UserID:  owner,
		Action:  audit.ActionRecordDeleted,
		Subject: f.Name + "/" + recordID.String(),
	})
	return nil
}

// Families exposes the registered family names for the discovery endpoint.
func (s *Service) Families() []string {
	return s.registry.Names()
}

func (s *Service) requireOwner(ctx context.Context) (id.UserID, error) {
	owner := requestcontext.UserID(ctx)
	if owner.IsZero() {
		return id.UserID{}, derrors.New(derrors.CodeUnauthorized, "authentication required")
	}
	return owner, nil
}

func (s *Service) lookupFamily(name string) (vault.Family, error) {
	f, err := s.registry.Lookup(name)
	if err != nil {
		return vault.Family{}, derrors.Wrap(err, derrors.CodeNotFound, "unknown entity family")
	}
	return f, nil
}

func (s *Service) startSpan(ctx context.Context, name, family string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("vault.family", family),
	))
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	s.audit.Emit(ctx, event)
}

// validateFields enforces the family schema: no unknown fields, required
// fields non-empty, option fields restricted to their labels.
func validateFields(f vault.Family, fields map[string]string) error {
	for name := range fields {
		if !f.HasField(name) {
			return derrors.New(derrors.CodeValidation, fmt.Sprintf("unknown field %q", name))
		}
	}
	for _, required := range f.Required {
		if strings.TrimSpace(fields[required]) == "" {
			return derrors.New(derrors.CodeValidation, fmt.Sprintf("field %q is required", required))
		}
	}
	for name, allowed := range f.Options {
		value := fields[name]
		if value == "" {
			continue
		}
		if !contains(allowed, value) {
			return derrors.New(derrors.CodeValidation, fmt.Sprintf("field %q must be one of %s", name, strings.Join(allowed, ", ")))
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
