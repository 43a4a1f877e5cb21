// Package gate decides whether a nominee's claimed death-certificate URL
// qualifies for access. The verdict is recorded in the audit trail but does
// not change any record's visibility; entitlement semantics are intentionally
// out of scope.
package gate

import (
	"net/url"
	"strings"
	"time"
)

// State of one verification attempt.
type State string

const (
	StateIdle      State = "idle"
	StateSubmitted State = "submitted"
	StateGranted   State = "granted"
	StateRejected  State = "rejected"
)

// Reason classifies a rejection.
type Reason string

const (
	ReasonInvalidURL      Reason = "invalid_url"
	ReasonUntrustedDomain Reason = "untrusted_domain"
)

// trustedSuffix is the only hostname suffix accepted for certificates.
const trustedSuffix = "gov.in"

// Verdict is the outcome of one Submit call.
type Verdict struct {
	State     State     `json:"state"`
	URL       string    `json:"url"`
	Verified  bool      `json:"verified"`
	Reason    Reason    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Submit parses and judges a claimed certificate URL. The attempt moves
// through submitted to a terminal granted or rejected state; callers reset to
// idle by simply submitting again.
func Submit(rawURL string, now time.Time) Verdict {
	verdict := Verdict{
		State:     StateSubmitted,
		URL:       rawURL,
		Timestamp: now,
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		verdict.State = StateRejected
		verdict.Reason = ReasonInvalidURL
		return verdict
	}

	if !TrustedHost(parsed.Hostname()) {
		verdict.State = StateRejected
		verdict.Reason = ReasonUntrustedDomain
		return verdict
	}

	verdict.State = StateGranted
	verdict.Verified = true
	return verdict
}

// TrustedHost reports whether host is gov.in or one of its subdomains. The
// check is label-aware: "evilgov.in" shares the suffix but not the domain,
// and "fake.gov.in.evil.com" merely embeds it.
func TrustedHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == trustedSuffix {
		return true
	}
	return strings.HasSuffix(host, "."+trustedSuffix)
}
