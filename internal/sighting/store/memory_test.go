package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangerwatch/internal/sighting/models"
	"rangerwatch/internal/sighting/policy"
	id "rangerwatch/pkg/domain"
	"rangerwatch/pkg/sentinel"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newSighting(createdAt time.Time, lat, lng float64, device string) *models.Sighting {
	return &models.Sighting{
		ID:         id.NewSightingID(),
		CreatedAt:  createdAt,
		Tag:        models.TagSighting,
		Lat:        lat,
		Lng:        lng,
		DeviceUUID: device,
	}
}

func TestMemoryStore_SightingLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSighting(testNow, 40.7128, -74.0060, "device-a")
	require.NoError(t, m.InsertSighting(ctx, s))

	t.Run("get returns live sighting", func(t *testing.T) {
		got, err := m.GetSighting(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, s.CreatedAt, got.CreatedAt)
	})

	t.Run("duplicate id insert conflicts", func(t *testing.T) {
		dup := *s
		assert.ErrorIs(t, m.InsertSighting(ctx, &dup), sentinel.ErrConflict)
	})

	t.Run("soft delete hides from public reads, keeps record", func(t *testing.T) {
		require.NoError(t, m.SoftDeleteSighting(ctx, s.ID))

		_, err := m.GetSighting(ctx, s.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		got, err := m.GetAnySighting(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, got.IsDeleted)
	})

	t.Run("second soft delete reports not found", func(t *testing.T) {
		assert.ErrorIs(t, m.SoftDeleteSighting(ctx, s.ID), sentinel.ErrNotFound)
	})
}

func TestMemoryStore_CountRecentByDevice(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	since := testNow.Add(-policy.RateLimitWindow)

	require.NoError(t, m.InsertSighting(ctx, newSighting(testNow.Add(-10*time.Minute), 1, 1, "device-a")))
	require.NoError(t, m.InsertSighting(ctx, newSighting(testNow.Add(-50*time.Minute), 2, 2, "device-a")))
	require.NoError(t, m.InsertSighting(ctx, newSighting(testNow.Add(-2*time.Hour), 3, 3, "device-a")))
	require.NoError(t, m.InsertSighting(ctx, newSighting(testNow.Add(-5*time.Minute), 4, 4, "device-b")))

	count, err := m.CountRecentByDevice(ctx, "device-a", since)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	t.Run("soft-deleted sightings do not count", func(t *testing.T) {
		s := newSighting(testNow.Add(-1*time.Minute), 5, 5, "device-a")
		require.NoError(t, m.InsertSighting(ctx, s))
		require.NoError(t, m.SoftDeleteSighting(ctx, s.ID))

		count, err := m.CountRecentByDevice(ctx, "device-a", since)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestMemoryStore_FindNearbyActive(t *testing.T) {
	ctx := context.Background()
	since := testNow.Add(-policy.VisibilityWindow)

	t.Run("no match on empty store", func(t *testing.T) {
		m := NewMemory()
		match, err := m.FindNearbyActive(ctx, 40.7128, -74.0060, policy.DuplicateRadiusMeters, since)
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("returns nearest of multiple candidates", func(t *testing.T) {
		m := NewMemory()
		far := newSighting(testNow, 40.71295, -74.0060, "d1")  // ~17m away
		near := newSighting(testNow, 40.71285, -74.0060, "d2") // ~6m away
		require.NoError(t, m.InsertSighting(ctx, far))
		require.NoError(t, m.InsertSighting(ctx, near))

		match, err := m.FindNearbyActive(ctx, 40.7128, -74.0060, policy.DuplicateRadiusMeters, since)
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, near.ID, match.ID)
	})

	t.Run("ignores out-of-window and deleted sightings", func(t *testing.T) {
		m := NewMemory()
		stale := newSighting(testNow.Add(-2*time.Hour), 40.7128, -74.0060, "d1")
		deleted := newSighting(testNow, 40.7128, -74.0060, "d2")
		require.NoError(t, m.InsertSighting(ctx, stale))
		require.NoError(t, m.InsertSighting(ctx, deleted))
		require.NoError(t, m.SoftDeleteSighting(ctx, deleted.ID))

		match, err := m.FindNearbyActive(ctx, 40.7128, -74.0060, policy.DuplicateRadiusMeters, since)
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("ignores sightings beyond the radius", func(t *testing.T) {
		m := NewMemory()
		// ~110m north of the query point.
		require.NoError(t, m.InsertSighting(ctx, newSighting(testNow, 40.7138, -74.0060, "d1")))

		match, err := m.FindNearbyActive(ctx, 40.7128, -74.0060, policy.DuplicateRadiusMeters, since)
		require.NoError(t, err)
		assert.Nil(t, match)
	})
}

func TestMemoryStore_ListActive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	since := testNow.Add(-24 * time.Hour)

	oldest := newSighting(testNow.Add(-3*time.Hour), 1, 1, "d")
	middle := newSighting(testNow.Add(-2*time.Hour), 2, 2, "d")
	newest := newSighting(testNow.Add(-1*time.Hour), 3, 3, "d")
	outside := newSighting(testNow.Add(-25*time.Hour), 4, 4, "d")
	for _, s := range []*models.Sighting{oldest, middle, newest, outside} {
		require.NoError(t, m.InsertSighting(ctx, s))
	}

	list, err := m.ListActive(ctx, since, policy.MaxListResults)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, newest.ID, list[0].ID)
	assert.Equal(t, middle.ID, list[1].ID)
	assert.Equal(t, oldest.ID, list[2].ID)

	t.Run("limit truncates", func(t *testing.T) {
		list, err := m.ListActive(ctx, since, 2)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("repeated reads are identical", func(t *testing.T) {
		a, err := m.ListActive(ctx, since, policy.MaxListResults)
		require.NoError(t, err)
		b, err := m.ListActive(ctx, since, policy.MaxListResults)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestMemoryStore_Checkins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSighting(testNow.Add(-30*time.Minute), 1, 1, "reporter")
	require.NoError(t, m.InsertSighting(ctx, s))

	t.Run("zero aggregate without checkins", func(t *testing.T) {
		agg, err := m.AggregateCheckins(ctx, s.ID)
		require.NoError(t, err)
		assert.Zero(t, agg.CheckinCount)
		assert.Nil(t, agg.LastCheckinAt)
	})

	first := testNow.Add(-20 * time.Minute)
	second := testNow.Add(-5 * time.Minute)
	require.NoError(t, m.InsertCheckin(ctx, &models.Checkin{
		ID: id.NewCheckinID(), SightingID: s.ID, CreatedAt: first, DeviceUUID: "witness-a",
	}))
	require.NoError(t, m.InsertCheckin(ctx, &models.Checkin{
		ID: id.NewCheckinID(), SightingID: s.ID, CreatedAt: second, DeviceUUID: "witness-b",
	}))

	t.Run("aggregate counts all and tracks latest", func(t *testing.T) {
		agg, err := m.AggregateCheckins(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, agg.CheckinCount)
		require.NotNil(t, agg.LastCheckinAt)
		assert.Equal(t, second, *agg.LastCheckinAt)
	})

	t.Run("last checkin is per device", func(t *testing.T) {
		last, err := m.LastCheckinByDevice(ctx, s.ID, "witness-a")
		require.NoError(t, err)
		assert.Equal(t, first, last)

		last, err = m.LastCheckinByDevice(ctx, s.ID, "stranger")
		require.NoError(t, err)
		assert.True(t, last.IsZero())
	})

	t.Run("bulk aggregate skips sightings without checkins", func(t *testing.T) {
		other := newSighting(testNow, 2, 2, "reporter")
		require.NoError(t, m.InsertSighting(ctx, other))

		aggs, err := m.AggregateCheckinsMany(ctx, []id.SightingID{s.ID, other.ID})
		require.NoError(t, err)
		assert.Len(t, aggs, 1)
		assert.Equal(t, 2, aggs[s.ID].CheckinCount)
	})
}
