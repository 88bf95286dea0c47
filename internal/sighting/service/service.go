// Package service implements the sighting lifecycle and anti-abuse rules:
// submission validation, duplicate matching, rate limiting, check-in
// windowing/cooldown, aggregation, and the filtered active view.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/asaskevich/govalidator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"rangerwatch/internal/platform/audit"
	"rangerwatch/internal/sighting/metrics"
	"rangerwatch/internal/sighting/models"
	"rangerwatch/internal/sighting/policy"
	"rangerwatch/internal/sighting/store"
	dErrors "rangerwatch/pkg/domain-errors"
)

// AuditEmitter queues lifecycle events without blocking the caller.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store          store.Store
	logger         *slog.Logger
	metrics        *metrics.Metrics
	audit          AuditEmitter
	mediaURLPrefix string
	tracer         trace.Tracer

	// cells serializes the duplicate-check/insert critical section per
	// geographic grid cell. Keyed weighted(1) semaphores so acquisition
	// respects request cancellation.
	cells sync.Map // cell key -> *semaphore.Weighted
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

// New creates the sighting service. mediaURLPrefix is the exact trusted
// media-store prefix a supplied media URL must start with.
func New(st store.Store, mediaURLPrefix string, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("sighting store is required")
	}

	svc := &Service{
		store:          st,
		logger:         slog.Default(),
		mediaURLPrefix: mediaURLPrefix,
		tracer:         otel.Tracer("rangerwatch/sighting"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// cellLock returns the serialization semaphore for a geographic cell.
func (s *Service) cellLock(key string) *semaphore.Weighted {
	if sem, ok := s.cells.Load(key); ok {
		return sem.(*semaphore.Weighted)
	}
	sem, _ := s.cells.LoadOrStore(key, semaphore.NewWeighted(1))
	return sem.(*semaphore.Weighted)
}

// validateSubmission enforces the field rules of a submission candidate.
// Ordered cheap-to-expensive with the later store checks: everything here is
// CPU-only.
func (s *Service) validateSubmission(req *models.CreateSightingRequest) error {
	if !models.Tag(req.Tag).IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid tag, must be Sighting, Warning, or Ticket")
	}
	if !policy.ValidCoordinate(req.Lat, req.Lng) ||
		!govalidator.InRangeFloat64(req.Lat, -90, 90) ||
		!govalidator.InRangeFloat64(req.Lng, -180, 180) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid lat/lng coordinates")
	}
	if !govalidator.StringLength(req.DeviceUUID, "1", "128") {
		return dErrors.New(dErrors.CodeInvalidInput, "device_uuid is required")
	}
	if !govalidator.StringLength(req.Description, "0", "500") {
		return dErrors.New(dErrors.CodeInvalidInput, "description exceeds 500 characters")
	}
	if req.MediaURL != "" {
		if s.mediaURLPrefix == "" || !strings.HasPrefix(req.MediaURL, s.mediaURLPrefix) {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid media_url origin")
		}
	}
	return nil
}

func (s *Service) rejectSubmission(ctx context.Context, reason string, deviceUUID string) {
	if s.metrics != nil {
		s.metrics.RecordSubmissionRejected(reason)
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:     audit.ActionSightingRejected,
			DeviceUUID: deviceUUID,
			Reason:     reason,
		})
	}
}

func (s *Service) rejectCheckin(ctx context.Context, reason, sightingID, deviceUUID string) {
	if s.metrics != nil {
		s.metrics.RecordCheckinRejected(reason)
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:     audit.ActionCheckinRejected,
			SightingID: sightingID,
			DeviceUUID: deviceUUID,
			Reason:     reason,
		})
	}
}
