// Package worker drains buffered audit events into a store.
package worker

import (
	"context"
	"log/slog"

	"rangerwatch/internal/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Append
// failures are logged and the event dropped; the worker keeps running so one
// bad event cannot wedge the pipeline.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run processes events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event",
					"action", event.Action,
					"error", err.Error(),
				)
			}
		}
	}
}
