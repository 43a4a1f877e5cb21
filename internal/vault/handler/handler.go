// Package handler exposes the vault engine over HTTP. One set of routes
// serves all entity families; the family is a path parameter validated
// against the schema registry.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"virasat/internal/http/shared"
	"virasat/internal/platform/middleware"
	"virasat/internal/vault"
	id "virasat/pkg/domain"
	derrors "virasat/pkg/domainerrors"
	"virasat/pkg/requestcontext"
)

// Service defines the vault operations the handler needs.
type Service interface {
	List(ctx context.Context, family string) ([]vault.Record, error)
	Create(ctx context.Context, family string, fields map[string]string) (vault.Record, error)
	Update(ctx context.Context, family string, recordID id.RecordID, fields map[string]string) (vault.Record, error)
	Delete(ctx context.Context, family string, recordID id.RecordID) error
	Families() []string
}

// Handler handles the /vault routes.
type Handler struct {
	logger    *slog.Logger
	vault     Service
	validator middleware.TokenValidator
}

// New creates a new vault Handler.
func New(vault Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		vault:     vault,
		validator: validator,
	}
}

// Register mounts the vault routes. Auth runs before any handler so an
// expired session is rejected without a store call.
func (h *Handler) Register(r chi.Router) {
	vaultRouter := chi.NewRouter()
	vaultRouter.Use(middleware.Timeout(30 * time.Second))
	vaultRouter.Use(middleware.ContentTypeJSON)
	vaultRouter.Use(middleware.RequireAuth(h.validator, h.logger))
	vaultRouter.Get("/families", h.handleFamilies)
	vaultRouter.Get("/{family}", h.handleList)
	vaultRouter.Post("/{family}", h.handleCreate)
	vaultRouter.Put("/{family}/{id}", h.handleUpdate)
	vaultRouter.Delete("/{family}/{id}", h.handleDelete)

	r.Mount("/vault", vaultRouter)
}

func (h *Handler) handleFamilies(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string][]string{
		"families": h.vault.Families(),
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	family := chi.URLParam(r, "family")

	records, err := h.vault.List(ctx, family)
	if err != nil {
		h.logError(ctx, "failed to list records", family, err)
		shared.WriteError(w, err)
		return
	}
	if records == nil {
		// An empty family renders as an empty list, not null.
		records = []vault.Record{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"family":  family,
		"records": records,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	family := chi.URLParam(r, "family")

	var req struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.vault.Create(ctx, family, req.Fields)
	if err != nil {
		h.logError(ctx, "failed to create record", family, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	family := chi.URLParam(r, "family")

	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid record id"))
		return
	}

	var req struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.vault.Update(ctx, family, recordID, req.Fields)
	if err != nil {
		h.logError(ctx, "failed to update record", family, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	family := chi.URLParam(r, "family")

	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid record id"))
		return
	}

	if err := h.vault.Delete(ctx, family, recordID); err != nil {
		h.logError(ctx, "failed to delete record", family, err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(ctx context.Context, msg, family string, err error) {
	level := slog.LevelError
	switch derrors.CodeOf(err) {
	case derrors.CodeValidation, derrors.CodeBadRequest, derrors.CodeNotFound, derrors.CodeUnauthorized:
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"family", family,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
