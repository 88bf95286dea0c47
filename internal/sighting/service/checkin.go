package service

import (
	"context"
	"errors"

	"rangerwatch/internal/platform/audit"
	"rangerwatch/internal/sighting/models"
	"rangerwatch/internal/sighting/policy"
	id "rangerwatch/pkg/domain"
	dErrors "rangerwatch/pkg/domain-errors"
	"rangerwatch/pkg/requestcontext"
	"rangerwatch/pkg/sentinel"
)

// SubmitCheckin validates a corroboration request and persists the check-in.
// Preconditions, in order: the sighting exists and is live, its check-in
// window is open, and the device is not in cooldown on it. On success the
// aggregates are recomputed reading after the write; a failed recompute after
// a successful insert is logged but does not fail the check-in, since
// aggregates are recomputable on the next read.
func (s *Service) SubmitCheckin(ctx context.Context, req *models.CheckinRequest) (models.CheckinAggregate, error) {
	ctx, span := s.tracer.Start(ctx, "sighting.Checkin")
	defer span.End()

	sightingID, err := id.ParseSightingID(req.SightingID)
	if err != nil {
		return models.CheckinAggregate{}, err
	}
	if req.DeviceUUID == "" {
		return models.CheckinAggregate{}, dErrors.New(dErrors.CodeInvalidInput, "device_uuid is required")
	}
	if req.AnonUserNumber == nil {
		return models.CheckinAggregate{}, dErrors.New(dErrors.CodeInvalidInput, "anon_user_number is required")
	}

	sighting, err := s.store.GetSighting(ctx, sightingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejectCheckin(ctx, "not_found", req.SightingID, req.DeviceUUID)
			return models.CheckinAggregate{}, dErrors.New(dErrors.CodeNotFound, "sighting not found")
		}
		return models.CheckinAggregate{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sighting")
	}

	now := requestcontext.Now(ctx)
	if !policy.IsCheckinOpen(sighting.CreatedAt, now) {
		s.rejectCheckin(ctx, "window_closed", req.SightingID, req.DeviceUUID)
		return models.CheckinAggregate{}, dErrors.New(dErrors.CodeWindowClosed,
			"check-ins are closed for this sighting (older than 90 minutes)")
	}

	last, err := s.store.LastCheckinByDevice(ctx, sightingID, req.DeviceUUID)
	if err != nil {
		return models.CheckinAggregate{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check cooldown")
	}
	if policy.InCooldown(last, now) {
		s.rejectCheckin(ctx, "cooldown_active", req.SightingID, req.DeviceUUID)
		return models.CheckinAggregate{}, dErrors.New(dErrors.CodeCooldownActive,
			"cooldown active: you can check in again in a few minutes")
	}

	checkin := &models.Checkin{
		ID:             id.NewCheckinID(),
		SightingID:     sightingID,
		CreatedAt:      now,
		DeviceUUID:     req.DeviceUUID,
		AnonUserNumber: *req.AnonUserNumber,
	}
	if err := s.store.InsertCheckin(ctx, checkin); err != nil {
		return models.CheckinAggregate{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check in")
	}

	if s.metrics != nil {
		s.metrics.CheckinsCreated.Inc()
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:     audit.ActionCheckinCreated,
			SightingID: sightingID.String(),
			DeviceUUID: req.DeviceUUID,
		})
	}

	agg, err := s.store.AggregateCheckins(ctx, sightingID)
	if err != nil {
		// The insert succeeded; the response degrades to zero aggregates and
		// the next read recomputes.
		s.logger.ErrorContext(ctx, "aggregate recompute failed after checkin insert",
			"sighting_id", sightingID.String(),
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.CheckinAggregate{}, nil
	}
	return agg, nil
}
