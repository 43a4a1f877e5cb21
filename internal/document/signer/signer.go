// Package signer issues and verifies the HMAC tokens behind time-limited
// document URLs. A signed URL is a capability: whoever holds it can read
// exactly one object until the expiry, with no further authentication.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

var (
	ErrBadSignature = errors.New("bad signature")
	ErrExpired      = errors.New("signed url expired")
)

// Signer binds an object path to an expiry with an HMAC-SHA256 tag.
type Signer struct {
	key []byte
}

func New(key string) *Signer {
	return &Signer{key: []byte(key)}
}

// Sign returns the hex tag for path valid until expires.
func (s *Signer) Sign(path string, expires time.Time) string {
	return hex.EncodeToString(s.mac(path, expires.Unix()))
}

// Verify checks the tag and the expiry, in that order: a forged URL is
// always reported as a bad signature, never as merely expired.
func (s *Signer) Verify(path, tag string, expires time.Time, now time.Time) error {
	decoded, err := hex.DecodeString(tag)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal(decoded, s.mac(path, expires.Unix())) {
		return ErrBadSignature
	}
	if now.After(expires) {
		return ErrExpired
	}
	return nil
}

func (s *Signer) mac(path string, expiresUnix int64) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(path))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expiresUnix, 10)))
	return mac.Sum(nil)
}
