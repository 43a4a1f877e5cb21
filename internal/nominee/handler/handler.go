// Package handler exposes the nominee access gate over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"virasat/internal/audit"
	"virasat/internal/http/shared"
	"virasat/internal/nominee/gate"
	"virasat/internal/platform/middleware"
	derrors "virasat/pkg/domainerrors"
	"virasat/pkg/requestcontext"
)

// Handler handles the /nominee routes.
type Handler struct {
	logger    *slog.Logger
	audit     *audit.Publisher
	validator middleware.TokenValidator
}

func New(publisher *audit.Publisher, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		audit:     publisher,
		validator: validator,
	}
}

// Register mounts the nominee routes.
func (h *Handler) Register(r chi.Router) {
	nomineeRouter := chi.NewRouter()
	nomineeRouter.Use(
		middleware.Timeout(10*time.Second),
		middleware.ContentTypeJSON,
		middleware.RequireAuth(h.validator, h.logger),
	)
	nomineeRouter.Post("/verify", h.handleVerify)
	r.Mount("/nominee", nomineeRouter)
}

type verifyRequest struct {
	URL string `json:"url"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return
	}

	verdict := gate.Submit(req.URL, requestcontext.Now(ctx))

	if h.audit != nil {
		decision := "rejected"
		if verdict.State == gate.StateGranted {
			decision = "granted"
		}
		h.audit.Emit(ctx, audit.Event{
			Timestamp: verdict.Timestamp,
			UserID:    requestcontext.UserID(ctx),
			Action:    audit.ActionGateVerdict,
			Subject:   req.URL,
			Decision:  decision,
			Reason:    string(verdict.Reason),
		})
	}

	h.logger.InfoContext(ctx, "nominee gate verdict",
		"state", verdict.State,
		"reason", verdict.Reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	shared.WriteJSON(w, http.StatusOK, verdict)
}
