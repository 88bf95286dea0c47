package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"rangerwatch/internal/sighting/models"
	"rangerwatch/internal/sighting/policy"
	id "rangerwatch/pkg/domain"
	"rangerwatch/pkg/sentinel"
)

// MemoryStore implements Store with mutex-guarded maps. Used by unit tests
// and by the dev server when no database is configured; postgres is the
// authoritative store in production.
type MemoryStore struct {
	mu        sync.RWMutex
	sightings map[id.SightingID]*models.Sighting
	checkins  map[id.SightingID][]*models.Checkin
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sightings: make(map[id.SightingID]*models.Sighting),
		checkins:  make(map[id.SightingID][]*models.Checkin),
	}
}

func (m *MemoryStore) InsertSighting(ctx context.Context, s *models.Sighting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sightings[s.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *s
	m.sightings[s.ID] = &cp
	return nil
}

func (m *MemoryStore) GetSighting(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sightings[sightingID]
	if !ok || s.IsDeleted {
		return nil, sentinel.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) GetAnySighting(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sightings[sightingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) SoftDeleteSighting(ctx context.Context, sightingID id.SightingID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sightings[sightingID]
	if !ok || s.IsDeleted {
		return sentinel.ErrNotFound
	}
	s.IsDeleted = true
	return nil
}

func (m *MemoryStore) CountRecentByDevice(ctx context.Context, deviceUUID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sightings {
		if s.IsDeleted || s.DeviceUUID != deviceUUID {
			continue
		}
		if !s.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) FindNearbyActive(ctx context.Context, lat, lng, radiusMeters float64, since time.Time) (*models.NearbyMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *models.NearbyMatch
	for _, s := range m.sightings {
		if s.IsDeleted || s.CreatedAt.Before(since) {
			continue
		}
		d := policy.Distance(lat, lng, s.Lat, s.Lng)
		if d > radiusMeters {
			continue
		}
		if best == nil || d < best.Distance {
			best = &models.NearbyMatch{ID: s.ID, Distance: d}
		}
	}
	return best, nil
}

func (m *MemoryStore) ListActive(ctx context.Context, since time.Time, limit int) ([]*models.Sighting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Sighting, 0)
	for _, s := range m.sightings {
		if s.IsDeleted || s.CreatedAt.Before(since) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	// Newest first; id as tiebreaker keeps repeated reads identical.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) InsertCheckin(ctx context.Context, c *models.Checkin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.checkins[c.SightingID] = append(m.checkins[c.SightingID], &cp)
	return nil
}

func (m *MemoryStore) LastCheckinByDevice(ctx context.Context, sightingID id.SightingID, deviceUUID string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last time.Time
	for _, c := range m.checkins[sightingID] {
		if c.DeviceUUID == deviceUUID && c.CreatedAt.After(last) {
			last = c.CreatedAt
		}
	}
	return last, nil
}

func (m *MemoryStore) AggregateCheckins(ctx context.Context, sightingID id.SightingID) (models.CheckinAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aggregateLocked(sightingID), nil
}

func (m *MemoryStore) AggregateCheckinsMany(ctx context.Context, sightingIDs []id.SightingID) (map[id.SightingID]models.CheckinAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[id.SightingID]models.CheckinAggregate, len(sightingIDs))
	for _, sid := range sightingIDs {
		if len(m.checkins[sid]) == 0 {
			continue
		}
		out[sid] = m.aggregateLocked(sid)
	}
	return out, nil
}

func (m *MemoryStore) aggregateLocked(sightingID id.SightingID) models.CheckinAggregate {
	rows := m.checkins[sightingID]
	agg := models.CheckinAggregate{CheckinCount: len(rows)}
	var last time.Time
	for _, c := range rows {
		if c.CreatedAt.After(last) {
			last = c.CreatedAt
		}
	}
	if !last.IsZero() {
		agg.LastCheckinAt = &last
	}
	return agg
}
