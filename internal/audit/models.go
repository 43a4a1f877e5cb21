package audit

import (
	"time"

	id "virasat/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    id.UserID `json:"user_id"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Actions recorded by the vault. The set is closed so downstream consumers
// can switch on it.
const (
	ActionSignUp         = "auth.sign_up"
	ActionSignIn         = "auth.sign_in"
	ActionSignOut        = "auth.sign_out"
	ActionRecordCreated  = "vault.record_created"
	ActionRecordUpdated  = "vault.record_updated"
	ActionRecordDeleted  = "vault.record_deleted"
	ActionDocumentUpload = "document.uploaded"
	ActionDocumentDelete = "document.deleted"
	ActionGateVerdict    = "nominee.gate_verdict"
)
