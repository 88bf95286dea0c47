package service

import (
	"context"

	"rangerwatch/internal/sighting/models"
	"rangerwatch/internal/sighting/policy"
	id "rangerwatch/pkg/domain"
	dErrors "rangerwatch/pkg/domain-errors"
	"rangerwatch/pkg/requestcontext"
)

// ListActive returns the active sightings for the query's lookback window,
// newest first, at most MaxListResults, enriched with check-in aggregates
// computed in one pass over the returned id set. Read-only and safe to cancel
// mid-flight; a cancelled read never affects writes.
func (s *Service) ListActive(ctx context.Context, q models.ListQuery) ([]models.EnrichedSighting, error) {
	ctx, span := s.tracer.Start(ctx, "sighting.ListActive")
	defer span.End()

	now := requestcontext.Now(ctx)
	since := now.Add(-policy.Lookback(q))

	sightings, err := s.store.ListActive(ctx, since, policy.MaxListResults)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sightings")
	}
	if len(sightings) == 0 {
		return []models.EnrichedSighting{}, nil
	}

	ids := make([]id.SightingID, len(sightings))
	for i, sighting := range sightings {
		ids[i] = sighting.ID
	}
	aggs, err := s.store.AggregateCheckinsMany(ctx, ids)
	if err != nil {
		// Non-fatal: serve the sightings with zero aggregates.
		s.logger.WarnContext(ctx, "checkin aggregation failed, serving zero counts",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		aggs = nil
	}

	out := make([]models.EnrichedSighting, len(sightings))
	for i, sighting := range sightings {
		out[i] = models.Enrich(sighting, aggs[sighting.ID])
	}
	return out, nil
}
