// Package audit provides the append-only audit trail. Domain services emit
// events through a Publisher; a Worker drains them into a Store and an
// optional Kafka sink. Audit is best-effort: a full buffer drops the event
// rather than blocking the request path.
package audit

import (
	"context"
	"log/slog"

	id "virasat/pkg/domain"
)

// Store persists audit events. Implementations: memory, postgres.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Publisher hands events to the background worker without blocking callers.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

// Emit enqueues an event for persistence. Dropped (with a log line) when the
// buffer is full; the audit trail must never stall user-facing requests.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"user_id", event.UserID.String(),
		)
	}
}
