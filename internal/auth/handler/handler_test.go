package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"virasat/internal/auth/handler"
	"virasat/internal/auth/mailer"
	authservice "virasat/internal/auth/service"
	"virasat/internal/auth/store/onetime"
	"virasat/internal/auth/store/revocation"
	"virasat/internal/auth/store/user"
	"virasat/internal/platform/config"
	"virasat/internal/platform/logger"
	"virasat/internal/platform/middleware"
)

// recordingMailer captures tokens so the suite can follow the email links.
type recordingMailer struct {
	verifyTokens map[string]string
	resetTokens  map[string]string
}

func (m *recordingMailer) SendVerification(_ context.Context, email, token string) error {
	m.verifyTokens[email] = token
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.resetTokens[email] = token
	return nil
}

var _ mailer.Mailer = (*recordingMailer)(nil)

// AuthFlowSuite exercises the full HTTP surface against the real service with
// in-memory stores.
type AuthFlowSuite struct {
	suite.Suite
	router chi.Router
	mailer *recordingMailer
}

func (s *AuthFlowSuite) SetupTest() {
	cfg := config.Auth{
		JWTSigningKey: "test-signing-key",
		TokenTTL:      time.Hour,
		ResetTokenTTL: 30 * time.Minute,
	}
	log := logger.New("test")
	s.mailer = &recordingMailer{
		verifyTokens: make(map[string]string),
		resetTokens:  make(map[string]string),
	}
	tokens := authservice.NewTokenManager(cfg.JWTSigningKey, cfg.TokenTTL, revocation.NewMemory())
	service := authservice.New(user.NewMemory(), tokens, onetime.NewMemory(), s.mailer, nil, nil, log, cfg)

	s.router = chi.NewRouter()
	s.router.Use(middleware.RequestTime)
	handler.New(service, tokens, log).Register(s.router)
}

func TestAuthFlowSuite(t *testing.T) {
	suite.Run(t, new(AuthFlowSuite))
}

func (s *AuthFlowSuite) do(method, target, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// signUpAndSignIn walks the register/verify/signin path and returns the token.
func (s *AuthFlowSuite) signUpAndSignIn(email, password string) string {
	rec := s.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": password,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/auth/callback?token="+s.mailer.verifyTokens[email], "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/signin", "", map[string]string{
		"email": email, "password": password,
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotEmpty(resp.Token)
	return resp.Token
}

// TestSignUpFlow covers registration through first sign-in.
func (s *AuthFlowSuite) TestSignUpFlow() {
	s.Run("signin before verification is forbidden", func() {
		rec := s.do(http.MethodPost, "/auth/signup", "", map[string]string{
			"email": "new@example.com", "password": "password123",
		})
		s.Require().Equal(http.StatusCreated, rec.Code)

		rec = s.do(http.MethodPost, "/auth/signin", "", map[string]string{
			"email": "new@example.com", "password": "password123",
		})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("full flow yields a working session", func() {
		token := s.signUpAndSignIn("flow@example.com", "password123")

		rec := s.do(http.MethodGet, "/auth/me", token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var me struct {
			Email string `json:"email"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &me))
		s.Equal("flow@example.com", me.Email)
	})

	s.Run("duplicate registration conflicts", func() {
		rec := s.do(http.MethodPost, "/auth/signup", "", map[string]string{
			"email": "flow@example.com", "password": "password123",
		})
		s.Equal(http.StatusConflict, rec.Code)
	})
}

// TestSignOut verifies the session stops working immediately.
func (s *AuthFlowSuite) TestSignOut() {
	token := s.signUpAndSignIn("out@example.com", "password123")

	rec := s.do(http.MethodPost, "/auth/signout", token, nil)
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/auth/me", token, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

// TestProtectedRoutes verifies /me and /signout reject anonymous callers.
func (s *AuthFlowSuite) TestProtectedRoutes() {
	rec := s.do(http.MethodGet, "/auth/me", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/signout", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

// TestPasswordReset walks the reset request and confirmation endpoints.
func (s *AuthFlowSuite) TestPasswordReset() {
	s.signUpAndSignIn("reset@example.com", "oldpassword1")

	rec := s.do(http.MethodPost, "/auth/password-reset", "", map[string]string{
		"email": "reset@example.com",
	})
	s.Require().Equal(http.StatusAccepted, rec.Code)

	rec = s.do(http.MethodPost, "/auth/password-reset/confirm", "", map[string]string{
		"token": s.mailer.resetTokens["reset@example.com"], "password": "newpassword1",
	})
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, "/auth/signin", "", map[string]string{
		"email": "reset@example.com", "password": "newpassword1",
	})
	s.Equal(http.StatusOK, rec.Code)
}

// TestMissingCallbackToken verifies the callback validates its input.
func (s *AuthFlowSuite) TestMissingCallbackToken() {
	rec := s.do(http.MethodGet, "/auth/callback", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}
