package service

import (
	"context"
	"errors"

	"rangerwatch/internal/platform/audit"
	"rangerwatch/internal/sighting/models"
	id "rangerwatch/pkg/domain"
	dErrors "rangerwatch/pkg/domain-errors"
	"rangerwatch/pkg/requestcontext"
	"rangerwatch/pkg/sentinel"
)

// SoftDelete flags a sighting as deleted. The record stays in storage and
// retrievable via GetAdmin; it disappears from all public reads and from
// duplicate matching immediately. Deleting an already-deleted or missing
// sighting reports not found.
func (s *Service) SoftDelete(ctx context.Context, rawSightingID string) (id.SightingID, error) {
	ctx, span := s.tracer.Start(ctx, "sighting.SoftDelete")
	defer span.End()

	sightingID, err := id.ParseSightingID(rawSightingID)
	if err != nil {
		return id.SightingID{}, err
	}

	if err := s.store.SoftDeleteSighting(ctx, sightingID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.SightingID{}, dErrors.New(dErrors.CodeNotFound, "sighting not found or already deleted")
		}
		return id.SightingID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete sighting")
	}

	if s.metrics != nil {
		s.metrics.SightingsDeleted.Inc()
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:     audit.ActionSightingDeleted,
			SightingID: sightingID.String(),
		})
	}
	s.logger.InfoContext(ctx, "sighting soft-deleted",
		"sighting_id", sightingID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return sightingID, nil
}

// GetAdmin returns a sighting by id regardless of its deletion flag, for the
// administrative view.
func (s *Service) GetAdmin(ctx context.Context, rawSightingID string) (*models.Sighting, error) {
	sightingID, err := id.ParseSightingID(rawSightingID)
	if err != nil {
		return nil, err
	}
	sighting, err := s.store.GetAnySighting(ctx, sightingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sighting not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sighting")
	}
	return sighting, nil
}
