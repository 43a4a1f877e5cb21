package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"virasat/internal/platform/middleware"
	id "virasat/pkg/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// RevocationList answers whether a session has been signed out. The Redis
// implementation shares state across instances; the memory one is for
// single-instance and test use.
type RevocationList interface {
	Revoke(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID id.SessionID) (bool, error)
}

// TokenManager issues and validates the HS256 session tokens. The session ID
// rides in the jti claim so sign-out can revoke one session without touching
// the others.
type TokenManager struct {
	signingKey []byte
	tokenTTL   time.Duration
	revocation RevocationList
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func NewTokenManager(signingKey string, tokenTTL time.Duration, revocation RevocationList) *TokenManager {
	return &TokenManager{
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		revocation: revocation,
	}
}

// Issue signs a token for the user/session pair.
func (m *TokenManager) Issue(userID id.UserID, sessionID id.SessionID, now time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TokenTTL exposes the configured lifetime so revocation entries can match it.
func (m *TokenManager) TokenTTL() time.Duration {
	return m.tokenTTL
}

// ValidateToken implements middleware.TokenValidator: signature, expiry, and
// revocation are all checked before a request reaches a store.
func (m *TokenManager) ValidateToken(ctx context.Context, tokenString string) (middleware.Claims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return middleware.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return middleware.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	sessionID, err := id.ParseSessionID(claims.ID)
	if err != nil {
		return middleware.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	revoked, err := m.revocation.IsRevoked(ctx, sessionID)
	if err != nil {
		return middleware.Claims{}, fmt.Errorf("revocation check: %w", err)
	}
	if revoked {
		return middleware.Claims{}, fmt.Errorf("%w: session revoked", ErrInvalidToken)
	}

	return middleware.Claims{UserID: userID, SessionID: sessionID}, nil
}
