// Package service implements the identity provider: sign-up, sign-in (password
// and OAuth), email verification, password reset, and sign-out.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"virasat/internal/audit"
	"virasat/internal/auth/device"
	"virasat/internal/auth/mailer"
	"virasat/internal/auth/models"
	"virasat/internal/auth/store/onetime"
	"virasat/internal/platform/config"
	"virasat/internal/platform/metrics"
	id "virasat/pkg/domain"
	derrors "virasat/pkg/domainerrors"
	"virasat/pkg/email"
	"virasat/pkg/requestcontext"
	"virasat/pkg/sentinel"
)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, userID id.UserID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByOAuth(ctx context.Context, provider, subject string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}

// TokenStore issues and consumes single-use verification/reset tokens.
type TokenStore interface {
	Issue(ctx context.Context, userID id.UserID, purpose onetime.Purpose, ttl time.Duration) (string, error)
	Consume(ctx context.Context, token string, purpose onetime.Purpose) (id.UserID, error)
}

// Session is what a successful sign-in yields.
type Session struct {
	Token  string
	User   models.User
	Device models.Device
}

// Service orchestrates account lifecycle. Store errors surface as coded
// domain errors; none are retried here.
type Service struct {
	users   UserStore
	tokens  *TokenManager
	onetime TokenStore
	mailer  mailer.Mailer
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     config.Auth
}

func New(users UserStore, tokens *TokenManager, onetimeStore TokenStore, m mailer.Mailer, publisher *audit.Publisher, platformMetrics *metrics.Metrics, logger *slog.Logger, cfg config.Auth) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		onetime: onetimeStore,
		mailer:  m,
		audit:   publisher,
		metrics: platformMetrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// SignUp registers a password account. The verification email is dispatched
// before the call returns; sign-in stays blocked until the callback runs.
func (s *Service) SignUp(ctx context.Context, emailAddr, password, firstName, lastName string) (models.User, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if err := validateEmail(emailAddr); err != nil {
		return models.User{}, err
	}
	if len(password) < 8 {
		return models.User{}, derrors.New(derrors.CodeValidation, "password must be at least 8 characters")
	}
	if firstName == "" && lastName == "" {
		firstName, lastName = email.DeriveNameFromEmail(emailAddr)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, derrors.Wrap(err, derrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	user := models.User{
		ID:           id.NewUserID(),
		Email:        emailAddr,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.User{}, derrors.New(derrors.CodeConflict, "user already registered")
		}
		return models.User{}, derrors.Wrap(err, derrors.CodeInternal, "failed to create user")
	}

	verifyToken, err := s.onetime.Issue(ctx, user.ID, onetime.PurposeVerifyEmail, s.cfg.ResetTokenTTL)
	if err == nil {
		err = s.mailer.SendVerification(ctx, user.Email, verifyToken)
	}
	if err != nil {
		// The account exists; a failed email is recoverable by re-requesting.
		s.logger.ErrorContext(ctx, "failed to send verification email",
			"error", err,
			"user_id", user.ID.String(),
		)
	}

	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	s.emit(ctx, audit.Event{UserID: user.ID, Action: audit.ActionSignUp})
	return user, nil
}

// VerifyEmail handles the auth callback: consumes the token and marks the
// account confirmed.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.onetime.Consume(ctx, token, onetime.PurposeVerifyEmail)
	if err != nil {
		return invalidTokenError(err)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to load user")
	}
	user.EmailVerified = true
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to update user")
	}
	return nil
}

// SignIn authenticates a password account and opens a session.
func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (Session, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))

	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordSignIn("invalid_credentials")
			return Session{}, derrors.New(derrors.CodeUnauthorized, "invalid email or password")
		}
		return Session{}, derrors.Wrap(err, derrors.CodeInternal, "failed to load user")
	}
	if user.PasswordHash == "" {
		// OAuth-only account.
		s.recordSignIn("invalid_credentials")
		return Session{}, derrors.New(derrors.CodeUnauthorized, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordSignIn("invalid_credentials")
		return Session{}, derrors.New(derrors.CodeUnauthorized, "invalid email or password")
	}
	if !user.EmailVerified {
		s.recordSignIn("email_not_confirmed")
		return Session{}, derrors.New(derrors.CodeForbidden, "email not confirmed")
	}

	return s.openSession(ctx, user, "success")
}

// SignInOAuth exchanges a verified external identity for a session, creating
// the account on first sign-in.
func (s *Service) SignInOAuth(ctx context.Context, provider, subject, emailAddr string) (Session, error) {
	provider = strings.TrimSpace(strings.ToLower(provider))
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if provider == "" || subject == "" {
		return Session{}, derrors.New(derrors.CodeBadRequest, "provider and subject are required")
	}

	user, err := s.users.FindByOAuth(ctx, provider, subject)
	if errors.Is(err, sentinel.ErrNotFound) {
		if err := validateEmail(emailAddr); err != nil {
			return Session{}, err
		}
		firstName, lastName := email.DeriveNameFromEmail(emailAddr)
		now := requestcontext.Now(ctx)
		user = models.User{
			ID:            id.NewUserID(),
			Email:         emailAddr,
			FirstName:     firstName,
			LastName:      lastName,
			EmailVerified: true, // the provider vouches for the address
			OAuthProvider: provider,
			OAuthSubject:  subject,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if createErr := s.users.Create(ctx, user); createErr != nil {
			if errors.Is(createErr, sentinel.ErrConflict) {
				return Session{}, derrors.New(derrors.CodeConflict, "user already registered")
			}
			return Session{}, derrors.Wrap(createErr, derrors.CodeInternal, "failed to create user")
		}
		if s.metrics != nil {
			s.metrics.IncrementUsersCreated()
		}
	} else if err != nil {
		return Session{}, derrors.Wrap(err, derrors.CodeInternal, "failed to load user")
	}

	return s.openSession(ctx, user, "success")
}

// RequestPasswordReset dispatches a reset token. Unknown addresses succeed
// silently so the endpoint can't be used for account enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if err := validateEmail(emailAddr); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return derrors.Wrap(err, derrors.CodeInternal, "failed to load user")
	}

	token, err := s.onetime.Issue(ctx, user.ID, onetime.PurposePasswordReset, s.cfg.ResetTokenTTL)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to issue reset token")
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to send reset email")
	}
	return nil
}

// ResetPassword redeems a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return derrors.New(derrors.CodeValidation, "password must be at least 8 characters")
	}
	userID, err := s.onetime.Consume(ctx, token, onetime.PurposePasswordReset)
	if err != nil {
		return invalidTokenError(err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to load user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to hash password")
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to update user")
	}
	return nil
}

// CurrentUser loads the authenticated user's profile.
func (s *Service) CurrentUser(ctx context.Context) (models.User, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		return models.User{}, derrors.New(derrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.User{}, derrors.New(derrors.CodeNotFound, "user not found")
		}
		return models.User{}, derrors.Wrap(err, derrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// SignOut revokes the current session; the token stops validating immediately.
func (s *Service) SignOut(ctx context.Context) error {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsZero() {
		return derrors.New(derrors.CodeUnauthorized, "authentication required")
	}
	if err := s.tokens.revocation.Revoke(ctx, sessionID, s.tokens.TokenTTL()); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "failed to revoke session")
	}
	s.emit(ctx, audit.Event{UserID: requestcontext.UserID(ctx), Action: audit.ActionSignOut})
	return nil
}

func (s *Service) openSession(ctx context.Context, user models.User, outcome string) (Session, error) {
	now := requestcontext.Now(ctx)
	sessionID := id.NewSessionID()
	token, err := s.tokens.Issue(user.ID, sessionID, now)
	if err != nil {
		return Session{}, derrors.Wrap(err, derrors.CodeInternal, "failed to issue token")
	}

	dev := device.FromUserAgent(requestcontext.UserAgent(ctx), requestcontext.ClientIP(ctx))
	s.logger.InfoContext(ctx, "session opened",
		"user_id", user.ID.String(),
		"session_id", sessionID.String(),
		"browser", dev.Browser,
		"os", dev.OS,
		"client_ip", dev.ClientIP,
	)

	s.recordSignIn(outcome)
	s.emit(ctx, audit.Event{UserID: user.ID, Action: audit.ActionSignIn})
	return Session{Token: token, User: user, Device: dev}, nil
}

func (s *Service) recordSignIn(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSignIn(outcome)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	s.audit.Emit(ctx, event)
}

func invalidTokenError(err error) error {
	if errors.Is(err, sentinel.ErrExpired) {
		return derrors.New(derrors.CodeUnauthorized, "token expired")
	}
	return derrors.New(derrors.CodeUnauthorized, "invalid token")
}

func validateEmail(emailAddr string) error {
	at := strings.IndexByte(emailAddr, '@')
	if at <= 0 || at == len(emailAddr)-1 || !strings.Contains(emailAddr[at:], ".") {
		return derrors.New(derrors.CodeValidation, "invalid email address")
	}
	return nil
}
