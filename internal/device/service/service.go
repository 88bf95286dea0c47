// Package service hands out anonymous user numbers. A device calls Register
// once on first launch and keeps the number for all later submissions; the
// number is a display handle, never an authentication credential.
package service

import (
	"context"
	"errors"
	"log/slog"

	"rangerwatch/internal/device/metrics"
	"rangerwatch/internal/device/store"
	"rangerwatch/internal/platform/audit"
	dErrors "rangerwatch/pkg/domain-errors"
	"rangerwatch/pkg/requestcontext"
)

// AuditEmitter queues lifecycle events without blocking the caller.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditEmitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditEmitter(emitter AuditEmitter) Option {
	return func(s *Service) { s.audit = emitter }
}

// New creates the device registration service.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("device store is required")
	}

	svc := &Service{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register allocates the next anonymous user number.
func (s *Service) Register(ctx context.Context) (int64, error) {
	n, err := s.store.NextNumber(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "allocate anon user number")
	}

	if s.metrics != nil {
		s.metrics.DevicesRegistered.Inc()
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{Action: audit.ActionDeviceRegistered})
	}
	s.logger.InfoContext(ctx, "device registered",
		"request_id", requestcontext.RequestID(ctx),
		"anon_user_number", n,
	)

	return n, nil
}
