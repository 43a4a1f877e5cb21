package audit

import (
	"context"
	"log/slog"
)

// Sink receives a copy of every event after it is persisted. Used for the
// Kafka publisher; nil-safe to omit.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker consumes audit events from the inbox and persists them. Persistence
// errors are logged, not fatal; losing one audit line must not kill the drain
// loop.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"error", err,
					"action", event.Action,
				)
				continue
			}
			if w.sink != nil {
				if err := w.sink.Publish(ctx, event); err != nil {
					w.logger.ErrorContext(ctx, "audit sink publish failed",
						"error", err,
						"action", event.Action,
					)
				}
			}
		}
	}
}
