// Package onetime stores single-use tokens for email verification and
// password resets. Tokens are random, short-lived, and consumed on first use.
package onetime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	id "virasat/pkg/domain"
	"virasat/pkg/sentinel"
)

// Purpose separates token namespaces so a reset token can never be redeemed
// as a verification token.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposePasswordReset Purpose = "password_reset"
)

type entry struct {
	userID    id.UserID
	purpose   Purpose
	expiresAt time.Time
}

// MemoryStore holds tokens in memory. Tokens are small and short-lived, so
// process-local storage is acceptable even in production; a lost token just
// means the user requests a new email.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]entry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]entry)}
}

// Issue mints a token bound to the user and purpose.
func (s *MemoryStore) Issue(_ context.Context, userID id.UserID, purpose Purpose, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = entry{userID: userID, purpose: purpose, expiresAt: time.Now().Add(ttl)}
	return token, nil
}

// Consume redeems a token exactly once. Wrong purpose, unknown, or expired
// tokens return sentinel errors.
func (s *MemoryStore) Consume(_ context.Context, token string, purpose Purpose) (id.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[token]
	if !ok || e.purpose != purpose {
		return id.UserID{}, sentinel.ErrNotFound
	}
	delete(s.tokens, token)
	if time.Now().After(e.expiresAt) {
		return id.UserID{}, sentinel.ErrExpired
	}
	return e.userID, nil
}
