package service

import (
	"context"

	"rangerwatch/internal/platform/audit"
	"rangerwatch/internal/sighting/models"
	"rangerwatch/internal/sighting/policy"
	id "rangerwatch/pkg/domain"
	dErrors "rangerwatch/pkg/domain-errors"
	"rangerwatch/pkg/requestcontext"
)

// SubmitSighting validates a submission candidate and persists it. Checks run
// cheap-to-expensive and the first failure wins: field validation, then the
// per-device rate limit, then the proximity duplicate match. The duplicate
// check and the insert run under a per-geographic-cell lock so concurrent
// submissions at the same spot cannot both win.
func (s *Service) SubmitSighting(ctx context.Context, req *models.CreateSightingRequest) (*models.EnrichedSighting, error) {
	ctx, span := s.tracer.Start(ctx, "sighting.Submit")
	defer span.End()

	if err := s.validateSubmission(req); err != nil {
		s.rejectSubmission(ctx, "invalid_input", req.DeviceUUID)
		return nil, err
	}

	now := requestcontext.Now(ctx)

	recent, err := s.store.CountRecentByDevice(ctx, req.DeviceUUID, now.Add(-policy.RateLimitWindow))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check submission rate limit")
	}
	if recent >= policy.MaxSightingsPerWindow {
		s.rejectSubmission(ctx, "rate_limited", req.DeviceUUID)
		return nil, dErrors.New(dErrors.CodeRateLimited, "rate limit: you can only post 3 sightings per hour")
	}

	lock := s.cellLock(policy.CellKey(req.Lat, req.Lng))
	if err := lock.Acquire(ctx, 1); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "submission cancelled")
	}
	defer lock.Release(1)

	match, err := s.store.FindNearbyActive(ctx, req.Lat, req.Lng,
		policy.DuplicateRadiusMeters, now.Add(-policy.VisibilityWindow))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for nearby sightings")
	}
	if match != nil {
		s.rejectSubmission(ctx, "duplicate", req.DeviceUUID)
		return nil, dErrors.New(dErrors.CodeDuplicate, "a recent sighting already exists here").
			WithMeta(dErrors.MetaExistingSightingID, match.ID.String())
	}

	sighting := &models.Sighting{
		ID:             id.NewSightingID(),
		CreatedAt:      now,
		Tag:            models.Tag(req.Tag),
		Description:    req.Description,
		MediaURL:       req.MediaURL,
		Lat:            req.Lat,
		Lng:            req.Lng,
		DeviceUUID:     req.DeviceUUID,
		AnonUserNumber: req.AnonUserNumber,
	}
	if err := s.store.InsertSighting(ctx, sighting); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sighting")
	}

	if s.metrics != nil {
		s.metrics.SightingsCreated.Inc()
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:     audit.ActionSightingCreated,
			SightingID: sighting.ID.String(),
			DeviceUUID: sighting.DeviceUUID,
		})
	}
	s.logger.InfoContext(ctx, "sighting created",
		"sighting_id", sighting.ID.String(),
		"tag", string(sighting.Tag),
		"request_id", requestcontext.RequestID(ctx),
	)

	enriched := models.Enrich(sighting, models.CheckinAggregate{})
	return &enriched, nil
}

// FindNearby answers the pre-submission nearby check: is there a live
// sighting within the duplicate radius of this point? Read-only.
func (s *Service) FindNearby(ctx context.Context, lat, lng float64) (models.NearbyResult, error) {
	ctx, span := s.tracer.Start(ctx, "sighting.FindNearby")
	defer span.End()

	if !policy.ValidCoordinate(lat, lng) {
		return models.NearbyResult{}, dErrors.New(dErrors.CodeInvalidInput, "invalid lat/lng coordinates")
	}

	now := requestcontext.Now(ctx)
	match, err := s.store.FindNearbyActive(ctx, lat, lng,
		policy.DuplicateRadiusMeters, now.Add(-policy.VisibilityWindow))
	if err != nil {
		return models.NearbyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for nearby sightings")
	}
	if match == nil {
		return models.NearbyResult{Duplicate: false}, nil
	}
	existing := match.ID
	return models.NearbyResult{Duplicate: true, ExistingSightingID: &existing}, nil
}
