package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"virasat/internal/auth/mailer"
	"virasat/internal/auth/store/onetime"
	"virasat/internal/auth/store/revocation"
	"virasat/internal/auth/store/user"
	"virasat/internal/platform/config"
	"virasat/internal/platform/logger"
	derrors "virasat/pkg/domainerrors"
	"virasat/pkg/requestcontext"
)

// captureMailer records dispatched tokens instead of sending mail.
type captureMailer struct {
	verifyTokens map[string]string
	resetTokens  map[string]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{
		verifyTokens: make(map[string]string),
		resetTokens:  make(map[string]string),
	}
}

func (m *captureMailer) SendVerification(_ context.Context, email, token string) error {
	m.verifyTokens[email] = token
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.resetTokens[email] = token
	return nil
}

var _ mailer.Mailer = (*captureMailer)(nil)

type AuthServiceSuite struct {
	suite.Suite
	service *Service
	tokens  *TokenManager
	mailer  *captureMailer
	ctx     context.Context
	now     time.Time
}

func (s *AuthServiceSuite) SetupTest() {
	cfg := config.Auth{
		JWTSigningKey: "test-signing-key",
		TokenTTL:      time.Hour,
		ResetTokenTTL: 30 * time.Minute,
	}
	s.tokens = NewTokenManager(cfg.JWTSigningKey, cfg.TokenTTL, revocation.NewMemory())
	s.mailer = newCaptureMailer()
	s.service = New(user.NewMemory(), s.tokens, onetime.NewMemory(), s.mailer, nil, nil, logger.New("test"), cfg)
	// Token expiry is checked against the wall clock, so the pinned request
	// time must be real.
	s.now = time.Now().UTC().Truncate(time.Second)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

// signUpVerified is the happy-path helper most tests build on.
func (s *AuthServiceSuite) signUpVerified(email, password string) {
	_, err := s.service.SignUp(s.ctx, email, password, "", "")
	s.Require().NoError(err)
	s.Require().NoError(s.service.VerifyEmail(s.ctx, s.mailer.verifyTokens[email]))
}

// TestSignUp covers registration, name derivation, and conflicts.
func (s *AuthServiceSuite) TestSignUp() {
	s.Run("derives names from the email when absent", func() {
		u, err := s.service.SignUp(s.ctx, "priya.sharma@example.com", "password123", "", "")
		s.Require().NoError(err)
		s.Equal("Priya", u.FirstName)
		s.Equal("Sharma", u.LastName)
		s.False(u.EmailVerified)
		s.NotEmpty(s.mailer.verifyTokens["priya.sharma@example.com"])
	})

	s.Run("normalizes the email address", func() {
		u, err := s.service.SignUp(s.ctx, "  Mixed.Case@Example.COM ", "password123", "A", "B")
		s.Require().NoError(err)
		s.Equal("mixed.case@example.com", u.Email)
	})

	s.Run("rejects duplicate registration", func() {
		_, err := s.service.SignUp(s.ctx, "priya.sharma@example.com", "otherpassword", "", "")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeConflict))
		s.Equal("user already registered", derrors.MessageOf(err))
	})

	s.Run("rejects short passwords", func() {
		_, err := s.service.SignUp(s.ctx, "short@example.com", "short", "", "")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeValidation))
	})

	s.Run("rejects malformed emails", func() {
		_, err := s.service.SignUp(s.ctx, "not-an-email", "password123", "", "")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeValidation))
	})
}

// TestSignIn covers credential checking and the verification gate.
func (s *AuthServiceSuite) TestSignIn() {
	_, err := s.service.SignUp(s.ctx, "ravi@example.com", "password123", "Ravi", "Kumar")
	s.Require().NoError(err)

	s.Run("blocks unverified accounts", func() {
		_, err := s.service.SignIn(s.ctx, "ravi@example.com", "password123")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeForbidden))
		s.Equal("email not confirmed", derrors.MessageOf(err))
	})

	s.Require().NoError(s.service.VerifyEmail(s.ctx, s.mailer.verifyTokens["ravi@example.com"]))

	s.Run("succeeds after verification", func() {
		session, err := s.service.SignIn(s.ctx, "ravi@example.com", "password123")
		s.Require().NoError(err)
		s.NotEmpty(session.Token)
		s.Equal("Ravi", session.User.FirstName)

		claims, err := s.tokens.ValidateToken(s.ctx, session.Token)
		s.Require().NoError(err)
		s.Equal(session.User.ID, claims.UserID)
	})

	s.Run("wrong password and unknown email are indistinguishable", func() {
		_, wrongPass := s.service.SignIn(s.ctx, "ravi@example.com", "wrongpassword")
		_, unknown := s.service.SignIn(s.ctx, "nobody@example.com", "password123")

		s.Require().Error(wrongPass)
		s.Require().Error(unknown)
		s.True(derrors.HasCode(wrongPass, derrors.CodeUnauthorized))
		s.True(derrors.HasCode(unknown, derrors.CodeUnauthorized))
		s.Equal(derrors.MessageOf(wrongPass), derrors.MessageOf(unknown))
	})
}

// TestSignInOAuth covers first-time provisioning and repeat sign-ins.
func (s *AuthServiceSuite) TestSignInOAuth() {
	s.Run("provisions a verified account on first sign-in", func() {
		session, err := s.service.SignInOAuth(s.ctx, "google", "subject-1", "meera@example.com")
		s.Require().NoError(err)
		s.True(session.User.EmailVerified)
		s.Equal("google", session.User.OAuthProvider)
	})

	s.Run("reuses the account on repeat sign-ins", func() {
		first, err := s.service.SignInOAuth(s.ctx, "google", "subject-1", "meera@example.com")
		s.Require().NoError(err)
		second, err := s.service.SignInOAuth(s.ctx, "google", "subject-1", "meera@example.com")
		s.Require().NoError(err)
		s.Equal(first.User.ID, second.User.ID)
	})

	s.Run("password sign-in is rejected for oauth-only accounts", func() {
		_, err := s.service.SignIn(s.ctx, "meera@example.com", "anything-here")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeUnauthorized))
	})

	s.Run("rejects missing provider or subject", func() {
		_, err := s.service.SignInOAuth(s.ctx, "", "subject", "x@example.com")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))
	})
}

// TestPasswordReset covers the full request/redeem cycle.
func (s *AuthServiceSuite) TestPasswordReset() {
	s.signUpVerified("amit@example.com", "oldpassword1")

	s.Run("unknown address succeeds silently", func() {
		s.Require().NoError(s.service.RequestPasswordReset(s.ctx, "ghost@example.com"))
		s.Empty(s.mailer.resetTokens["ghost@example.com"])
	})

	s.Run("resets with a valid token", func() {
		s.Require().NoError(s.service.RequestPasswordReset(s.ctx, "amit@example.com"))
		token := s.mailer.resetTokens["amit@example.com"]
		s.Require().NotEmpty(token)

		s.Require().NoError(s.service.ResetPassword(s.ctx, token, "newpassword1"))

		_, err := s.service.SignIn(s.ctx, "amit@example.com", "oldpassword1")
		s.Require().Error(err)
		_, err = s.service.SignIn(s.ctx, "amit@example.com", "newpassword1")
		s.Require().NoError(err)
	})

	s.Run("token is single use", func() {
		token := s.mailer.resetTokens["amit@example.com"]
		err := s.service.ResetPassword(s.ctx, token, "anotherpassword1")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeUnauthorized))
	})

	s.Run("rejects short replacement passwords", func() {
		err := s.service.ResetPassword(s.ctx, "whatever", "short")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeValidation))
	})
}

// TestSignOut verifies revocation takes effect immediately.
func (s *AuthServiceSuite) TestSignOut() {
	s.signUpVerified("dev@example.com", "password123")
	session, err := s.service.SignIn(s.ctx, "dev@example.com", "password123")
	s.Require().NoError(err)

	claims, err := s.tokens.ValidateToken(s.ctx, session.Token)
	s.Require().NoError(err)

	ctx := requestcontext.WithUserID(s.ctx, claims.UserID)
	ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
	s.Require().NoError(s.service.SignOut(ctx))

	_, err = s.tokens.ValidateToken(s.ctx, session.Token)
	s.Require().ErrorIs(err, ErrInvalidToken)

	s.Run("other sessions stay valid", func() {
		other, err := s.service.SignIn(s.ctx, "dev@example.com", "password123")
		s.Require().NoError(err)
		_, err = s.tokens.ValidateToken(s.ctx, other.Token)
		s.Require().NoError(err)
	})
}

// TestCurrentUser verifies profile lookup requires an identity.
func (s *AuthServiceSuite) TestCurrentUser() {
	s.signUpVerified("self@example.com", "password123")
	session, err := s.service.SignIn(s.ctx, "self@example.com", "password123")
	s.Require().NoError(err)

	ctx := requestcontext.WithUserID(s.ctx, session.User.ID)
	u, err := s.service.CurrentUser(ctx)
	s.Require().NoError(err)
	s.Equal("self@example.com", u.Email)

	_, err = s.service.CurrentUser(s.ctx)
	s.Require().Error(err)
	s.True(derrors.HasCode(err, derrors.CodeUnauthorized))
}
