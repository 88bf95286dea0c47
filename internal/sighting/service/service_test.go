package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rangerwatch/internal/platform/audit"
	auditmem "rangerwatch/internal/platform/audit/store/memory"
	"rangerwatch/internal/sighting/models"
	"rangerwatch/internal/sighting/policy"
	"rangerwatch/internal/sighting/store"
	dErrors "rangerwatch/pkg/domain-errors"
	"rangerwatch/pkg/requestcontext"
)

// =============================================================================
// Sighting Service Test Suite
// =============================================================================
// The service holds the windowing, rate-limit, duplicate, and cooldown rules;
// every temporal predicate reads the frozen request clock so the suite pins
// "now" per call instead of sleeping.

type SightingServiceSuite struct {
	suite.Suite
	store   *store.MemoryStore
	service *Service
	now     time.Time
}

func TestSightingServiceSuite(t *testing.T) {
	suite.Run(t, new(SightingServiceSuite))
}

const mediaPrefix = "https://media.rangerwatch.example/storage/public/"

func (s *SightingServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store, mediaPrefix)
	s.Require().NoError(err)
}

// ctxAt freezes the request clock at the given instant.
func (s *SightingServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func validRequest(device string, lat, lng float64) *models.CreateSightingRequest {
	return &models.CreateSightingRequest{
		Tag:            string(models.TagSighting),
		Lat:            lat,
		Lng:            lng,
		DeviceUUID:     device,
		AnonUserNumber: 42,
	}
}

func (s *SightingServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, mediaPrefix)
		s.Error(err)
		s.Contains(err.Error(), "store is required")
	})

	s.Run("valid store returns configured service", func() {
		svc, err := New(s.store, mediaPrefix)
		s.NoError(err)
		s.NotNil(svc)
	})
}

// =============================================================================
// Submission: field validation
// =============================================================================

func (s *SightingServiceSuite) TestSubmitSighting_Validation() {
	ctx := s.ctxAt(s.now)

	s.Run("rejects unknown tag", func() {
		req := validRequest("device-a", 40, -74)
		req.Tag = "Rumor"
		_, err := s.service.SubmitSighting(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects out-of-range coordinates", func() {
		for _, bad := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}} {
			req := validRequest("device-a", bad[0], bad[1])
			_, err := s.service.SubmitSighting(ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "lat=%v lng=%v", bad[0], bad[1])
		}
	})

	s.Run("rejects empty device id", func() {
		req := validRequest("", 40, -74)
		_, err := s.service.SubmitSighting(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects media url outside trusted prefix", func() {
		req := validRequest("device-a", 40, -74)
		req.MediaURL = "https://evil.example/photo.jpg"
		_, err := s.service.SubmitSighting(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("accepts media url under trusted prefix", func() {
		req := validRequest("device-a", 40, -74)
		req.MediaURL = mediaPrefix + "photo.jpg"
		created, err := s.service.SubmitSighting(ctx, req)
		s.NoError(err)
		s.NotNil(created.MediaURL)
	})
}

// =============================================================================
// Submission: rate limit and duplicate matching
// =============================================================================

func (s *SightingServiceSuite) TestSubmitSighting_RateLimit() {
	// Three accepted submissions, the fourth rejects regardless of location.
	for i := range 3 {
		ctx := s.ctxAt(s.now.Add(time.Duration(i) * 15 * time.Minute))
		// Spread points far apart so only the rate limit can trigger.
		_, err := s.service.SubmitSighting(ctx, validRequest("device-a", float64(i*10), float64(i*10)))
		s.Require().NoError(err)
	}

	ctx := s.ctxAt(s.now.Add(46 * time.Minute))
	_, err := s.service.SubmitSighting(ctx, validRequest("device-a", -60, 100))
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	s.Run("other devices are unaffected", func() {
		_, err := s.service.SubmitSighting(ctx, validRequest("device-b", -60, 100))
		s.NoError(err)
	})

	s.Run("cap frees up once the hour rolls past", func() {
		later := s.ctxAt(s.now.Add(policy.RateLimitWindow + 16*time.Minute))
		_, err := s.service.SubmitSighting(later, validRequest("device-a", 60, -100))
		s.NoError(err)
	})
}

func (s *SightingServiceSuite) TestSubmitSighting_Duplicate() {
	ctx := s.ctxAt(s.now)
	first, err := s.service.SubmitSighting(ctx, validRequest("device-a", 40.7128, -74.0060))
	s.Require().NoError(err)

	s.Run("second submission within 25m rejects with the winner's id", func() {
		// ~11m north.
		later := s.ctxAt(s.now.Add(time.Minute))
		_, err := s.service.SubmitSighting(later, validRequest("device-b", 40.71290, -74.0060))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
		s.Equal(first.ID.String(), dErrors.From(err).Meta[dErrors.MetaExistingSightingID])
	})

	s.Run("same point is free again after the visibility window", func() {
		// Fresh location so the sightings above cannot interfere.
		base, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("device-c", -33.8688, 151.2093))
		s.Require().NoError(err)
		s.NotNil(base)

		later := s.ctxAt(s.now.Add(policy.VisibilityWindow + time.Minute))
		_, err = s.service.SubmitSighting(later, validRequest("device-d", -33.8688, 151.2093))
		s.NoError(err)
	})

	s.Run("soft-deleted winner no longer blocks", func() {
		base, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("device-e", 35.6762, 139.6503))
		s.Require().NoError(err)
		_, err = s.service.SoftDelete(context.Background(), base.ID.String())
		s.Require().NoError(err)

		later := s.ctxAt(s.now.Add(2 * time.Minute))
		_, err = s.service.SubmitSighting(later, validRequest("device-f", 35.67621, 139.65031))
		s.NoError(err)
	})
}

func (s *SightingServiceSuite) TestSubmitSighting_InitialAggregatesZero() {
	created, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("device-a", 40, -74))
	s.Require().NoError(err)
	s.Zero(created.CheckinCount)
	s.Nil(created.LastCheckinAt)
	s.Equal(s.now, created.CreatedAt)
}

// =============================================================================
// Nearby pre-check
// =============================================================================

func (s *SightingServiceSuite) TestFindNearby() {
	s.Run("invalid coordinates reject", func() {
		_, err := s.service.FindNearby(s.ctxAt(s.now), 120, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty map reports no duplicate anywhere", func() {
		for _, c := range [][2]float64{{-90, -180}, {0, 0}, {90, 180}, {47.6, -122.3}} {
			res, err := s.service.FindNearby(s.ctxAt(s.now), c[0], c[1])
			s.Require().NoError(err)
			s.False(res.Duplicate)
			s.Nil(res.ExistingSightingID)
		}
	})

	s.Run("live sighting within radius reports duplicate", func() {
		created, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("device-a", 51.5074, -0.1278))
		s.Require().NoError(err)

		res, err := s.service.FindNearby(s.ctxAt(s.now.Add(time.Minute)), 51.50745, -0.1278)
		s.Require().NoError(err)
		s.True(res.Duplicate)
		s.Equal(created.ID, *res.ExistingSightingID)
	})
}

// =============================================================================
// Check-ins
// =============================================================================

func (s *SightingServiceSuite) checkinReq(sightingID, device string) *models.CheckinRequest {
	n := int64(7)
	return &models.CheckinRequest{SightingID: sightingID, DeviceUUID: device, AnonUserNumber: &n}
}

func (s *SightingServiceSuite) TestSubmitCheckin_Preconditions() {
	created, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("reporter", 40, -74))
	s.Require().NoError(err)

	s.Run("malformed sighting id rejects", func() {
		_, err := s.service.SubmitCheckin(s.ctxAt(s.now), s.checkinReq("not-a-uuid", "witness"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown sighting is not found", func() {
		_, err := s.service.SubmitCheckin(s.ctxAt(s.now),
			s.checkinReq("3d7a1c2e-9b4f-4c6d-8e1a-2f5b7c9d0e3a", "witness"))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing anon_user_number rejects", func() {
		req := s.checkinReq(created.ID.String(), "witness")
		req.AnonUserNumber = nil
		_, err := s.service.SubmitCheckin(s.ctxAt(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("91 minutes after creation the window is closed", func() {
		ctx := s.ctxAt(s.now.Add(91 * time.Minute))
		_, err := s.service.SubmitCheckin(ctx, s.checkinReq(created.ID.String(), "witness"))
		s.True(dErrors.HasCode(err, dErrors.CodeWindowClosed))
	})

	s.Run("soft-deleted sighting is not found", func() {
		other, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("reporter-2", 10, 10))
		s.Require().NoError(err)
		_, err = s.service.SoftDelete(context.Background(), other.ID.String())
		s.Require().NoError(err)

		_, err = s.service.SubmitCheckin(s.ctxAt(s.now.Add(time.Minute)),
			s.checkinReq(other.ID.String(), "witness"))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *SightingServiceSuite) TestSubmitCheckin_Cooldown() {
	created, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("reporter", 40, -74))
	s.Require().NoError(err)

	_, err = s.service.SubmitCheckin(s.ctxAt(s.now.Add(5*time.Minute)),
		s.checkinReq(created.ID.String(), "witness"))
	s.Require().NoError(err)

	s.Run("second checkin inside 10 minutes rejects", func() {
		_, err := s.service.SubmitCheckin(s.ctxAt(s.now.Add(14*time.Minute)),
			s.checkinReq(created.ID.String(), "witness"))
		s.True(dErrors.HasCode(err, dErrors.CodeCooldownActive))
	})

	s.Run("succeeds once the cooldown elapses", func() {
		agg, err := s.service.SubmitCheckin(s.ctxAt(s.now.Add(15*time.Minute)),
			s.checkinReq(created.ID.String(), "witness"))
		s.NoError(err)
		s.Equal(2, agg.CheckinCount)
	})

	s.Run("cooldown is per device", func() {
		agg, err := s.service.SubmitCheckin(s.ctxAt(s.now.Add(16*time.Minute)),
			s.checkinReq(created.ID.String(), "other-witness"))
		s.NoError(err)
		s.Equal(3, agg.CheckinCount)
	})
}

func (s *SightingServiceSuite) TestSubmitCheckin_AggregatesGrow() {
	created, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("reporter", 40, -74))
	s.Require().NoError(err)

	var lastAgg models.CheckinAggregate
	for i := range 5 {
		at := s.now.Add(time.Duration(i+1) * time.Minute)
		agg, err := s.service.SubmitCheckin(s.ctxAt(at),
			s.checkinReq(created.ID.String(), fmt.Sprintf("witness-%d", i)))
		s.Require().NoError(err)
		s.Equal(i+1, agg.CheckinCount)
		s.Require().NotNil(agg.LastCheckinAt)
		s.Equal(at, *agg.LastCheckinAt)
		lastAgg = agg
	}
	s.Equal(5, lastAgg.CheckinCount)
}

// =============================================================================
// Active view
// =============================================================================

func (s *SightingServiceSuite) TestListActive() {
	old := s.now.Add(-30 * time.Hour)
	recent := s.now.Add(-20 * time.Minute)
	earlier := s.now.Add(-3 * time.Hour)

	for _, at := range []time.Time{old, earlier, recent} {
		_, err := s.service.SubmitSighting(s.ctxAt(at),
			validRequest(fmt.Sprintf("device-%d", at.Unix()), float64(at.Unix()%80), float64(at.Unix()%170)))
		s.Require().NoError(err)
	}

	s.Run("24h window excludes the old row, newest first", func() {
		list, err := s.service.ListActive(s.ctxAt(s.now), models.ListQuery{Range: models.Range24h})
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal(recent, list[0].CreatedAt)
		s.Equal(earlier, list[1].CreatedAt)
	})

	s.Run("recently pins to the visibility window", func() {
		list, err := s.service.ListActive(s.ctxAt(s.now),
			models.ListQuery{Range: models.Range90d, Recently: true})
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(recent, list[0].CreatedAt)
	})

	s.Run("90d window sees everything", func() {
		list, err := s.service.ListActive(s.ctxAt(s.now), models.ListQuery{Range: models.Range90d})
		s.Require().NoError(err)
		s.Len(list, 3)
	})

	s.Run("identical query with no writes returns identical sequence", func() {
		a, err := s.service.ListActive(s.ctxAt(s.now), models.ListQuery{Range: models.Range24h})
		s.Require().NoError(err)
		b, err := s.service.ListActive(s.ctxAt(s.now), models.ListQuery{Range: models.Range24h})
		s.Require().NoError(err)
		s.Equal(a, b)
	})
}

func (s *SightingServiceSuite) TestListActive_EnrichedWithAggregates() {
	created, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("reporter", 40, -74))
	s.Require().NoError(err)

	lastAt := s.now.Add(3 * time.Minute)
	for i, at := range []time.Time{s.now.Add(time.Minute), s.now.Add(2 * time.Minute), lastAt} {
		_, err := s.service.SubmitCheckin(s.ctxAt(at),
			s.checkinReq(created.ID.String(), fmt.Sprintf("witness-%d", i)))
		s.Require().NoError(err)
	}

	list, err := s.service.ListActive(s.ctxAt(s.now.Add(4*time.Minute)),
		models.ListQuery{Recently: true})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(3, list[0].CheckinCount)
	s.Require().NotNil(list[0].LastCheckinAt)
	s.Equal(lastAt, *list[0].LastCheckinAt)
}

// =============================================================================
// Soft deletion
// =============================================================================

func (s *SightingServiceSuite) TestSoftDelete() {
	created, err := s.service.SubmitSighting(s.ctxAt(s.now), validRequest("reporter", 40, -74))
	s.Require().NoError(err)

	deletedID, err := s.service.SoftDelete(context.Background(), created.ID.String())
	s.Require().NoError(err)
	s.Equal(created.ID, deletedID)

	s.Run("removed from the active view", func() {
		list, err := s.service.ListActive(s.ctxAt(s.now), models.ListQuery{Recently: true})
		s.Require().NoError(err)
		s.Empty(list)
	})

	s.Run("removed from duplicate matching", func() {
		res, err := s.service.FindNearby(s.ctxAt(s.now), 40, -74)
		s.Require().NoError(err)
		s.False(res.Duplicate)
	})

	s.Run("record stays retrievable for the admin view", func() {
		got, err := s.service.GetAdmin(context.Background(), created.ID.String())
		s.Require().NoError(err)
		s.True(got.IsDeleted)
		s.Equal(created.ID, got.ID)
	})

	s.Run("deleting again reports not found", func() {
		_, err := s.service.SoftDelete(context.Background(), created.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Audit emission
// =============================================================================

func (s *SightingServiceSuite) TestAuditEvents() {
	auditStore := auditmem.New()
	publisher := newSyncEmitter(auditStore)

	svc, err := New(s.store, mediaPrefix, WithAuditEmitter(publisher))
	s.Require().NoError(err)

	created, err := svc.SubmitSighting(s.ctxAt(s.now), validRequest("reporter", 40, -74))
	s.Require().NoError(err)
	_, err = svc.SubmitSighting(s.ctxAt(s.now.Add(time.Minute)), validRequest("other", 40, -74))
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
	_, err = svc.SoftDelete(context.Background(), created.ID.String())
	s.Require().NoError(err)

	events := auditStore.Events()
	s.Require().Len(events, 3)
	s.Equal("sighting_created", string(events[0].Action))
	s.Equal("sighting_rejected", string(events[1].Action))
	s.Equal("duplicate", events[1].Reason)
	s.Equal("sighting_deleted", string(events[2].Action))
}

// memEmitter appends events inline, bypassing the async publisher buffer so
// assertions see them immediately.
type memEmitter struct {
	store *auditmem.Store
}

func newSyncEmitter(store *auditmem.Store) *memEmitter {
	return &memEmitter{store: store}
}

func (e *memEmitter) Emit(ctx context.Context, event audit.Event) {
	_ = e.store.Append(ctx, event)
}
