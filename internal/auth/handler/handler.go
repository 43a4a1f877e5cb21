// Package handler exposes the identity endpoints: sign-up, sign-in (password
// and OAuth), the verification callback, password reset, and profile.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"virasat/internal/auth/models"
	authservice "virasat/internal/auth/service"
	"virasat/internal/http/shared"
	"virasat/internal/platform/middleware"
	derrors "virasat/pkg/domainerrors"
	"virasat/pkg/requestcontext"
)

// Service defines the identity operations the handler needs.
type Service interface {
	SignUp(ctx context.Context, email, password, firstName, lastName string) (models.User, error)
	VerifyEmail(ctx context.Context, token string) error
	SignIn(ctx context.Context, email, password string) (authservice.Session, error)
	SignInOAuth(ctx context.Context, provider, subject, email string) (authservice.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	CurrentUser(ctx context.Context) (models.User, error)
	SignOut(ctx context.Context) error
}

// Handler handles the /auth routes.
type Handler struct {
	logger    *slog.Logger
	auth      Service
	validator middleware.TokenValidator
}

func New(auth Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		auth:      auth,
		validator: validator,
	}
}

// Register mounts the auth routes. Only /auth/me and /auth/signout require a
// valid session.
func (h *Handler) Register(r chi.Router) {
	authRouter := chi.NewRouter()
	authRouter.Use(middleware.Timeout(30 * time.Second))
	authRouter.Use(middleware.ContentTypeJSON)
	authRouter.Post("/signup", h.handleSignUp)
	authRouter.Post("/signin", h.handleSignIn)
	authRouter.Post("/oauth", h.handleOAuth)
	authRouter.Get("/callback", h.handleCallback)
	authRouter.Post("/password-reset", h.handlePasswordResetRequest)
	authRouter.Post("/password-reset/confirm", h.handlePasswordReset)
	authRouter.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/me", h.handleMe)
		r.Post("/signout", h.handleSignOut)
	})

	r.Mount("/auth", authRouter)
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
	}
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		h.logFailure(r.Context(), "sign up failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logFailure(r.Context(), "sign in failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"token": session.Token,
		"user":  toUserResponse(session.User),
	})
}

func (h *Handler) handleOAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		Subject  string `json:"subject"`
		Email    string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.auth.SignInOAuth(r.Context(), req.Provider, req.Subject, req.Email)
	if err != nil {
		h.logFailure(r.Context(), "oauth sign in failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"token": session.Token,
		"user":  toUserResponse(session.User),
	})
}

// handleCallback is the email-verification landing hit from the link in the
// sign-up email.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "token is required"))
		return
	}
	if err := h.auth.VerifyEmail(r.Context(), token); err != nil {
		h.logFailure(r.Context(), "email verification failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *Handler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logFailure(r.Context(), "password reset request failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.logFailure(r.Context(), "password reset failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "profile load failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context()); err != nil {
		h.logFailure(r.Context(), "sign out failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelWarn
	if derrors.CodeOf(err) == derrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
