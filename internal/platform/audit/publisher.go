package audit

import (
	"context"
	"log/slog"
	"time"

	"rangerwatch/pkg/requestcontext"
)

// Publisher buffers events in-process so domain operations never block on the
// audit sink. A full buffer drops the event with a warning; audit is
// best-effort operational data here, never a reason to fail a submission.
type Publisher struct {
	events chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	return &Publisher{
		events: make(chan Event, buffer),
		logger: logger,
	}
}

// Events exposes the inbox for the worker.
func (p *Publisher) Events() <-chan Event { return p.events }

// Emit enriches the event with request-scoped metadata and queues it.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	select {
	case p.events <- event:
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, dropping event",
				"action", event.Action,
				"request_id", event.RequestID,
			)
		}
	}
}
