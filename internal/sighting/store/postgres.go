package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rangerwatch/internal/sighting/models"
	id "rangerwatch/pkg/domain"
	"rangerwatch/pkg/sentinel"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore is the authoritative Store backed by PostgreSQL. The
// nearest-match query runs in the database via the earthdistance extension so
// concurrent submitters race against one consistent set, not a client-side
// snapshot.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies the embedded schema. Idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertSighting(ctx context.Context, sighting *models.Sighting) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sightings (id, created_at, tag, description, media_url, lat, lng, device_uuid, anon_user_number, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)`,
		uuid.UUID(sighting.ID), sighting.CreatedAt, string(sighting.Tag),
		nullString(sighting.Description), nullString(sighting.MediaURL),
		sighting.Lat, sighting.Lng, sighting.DeviceUUID, sighting.AnonUserNumber,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert sighting: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSighting(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	return s.getSighting(ctx, sightingID, true)
}

func (s *PostgresStore) GetAnySighting(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	return s.getSighting(ctx, sightingID, false)
}

func (s *PostgresStore) getSighting(ctx context.Context, sightingID id.SightingID, liveOnly bool) (*models.Sighting, error) {
	query := `
		SELECT id, created_at, tag, description, media_url, lat, lng, device_uuid, anon_user_number, is_deleted
		FROM sightings WHERE id = $1`
	if liveOnly {
		query += ` AND NOT is_deleted`
	}
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(sightingID))
	sighting, err := scanSighting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sighting: %w", err)
	}
	return sighting, nil
}

func (s *PostgresStore) SoftDeleteSighting(ctx context.Context, sightingID id.SightingID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sightings SET is_deleted = TRUE
		WHERE id = $1 AND NOT is_deleted`,
		uuid.UUID(sightingID),
	)
	if err != nil {
		return fmt.Errorf("soft delete sighting: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete sighting: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountRecentByDevice(ctx context.Context, deviceUUID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sightings
		WHERE device_uuid = $1 AND NOT is_deleted AND created_at >= $2`,
		deviceUUID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent by device: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) FindNearbyActive(ctx context.Context, lat, lng, radiusMeters float64, since time.Time) (*models.NearbyMatch, error) {
	// earth_box prunes via the gist index; earth_distance gives the exact
	// great-circle cut and the ordering.
	row := s.db.QueryRowContext(ctx, `
		SELECT id, earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)) AS distance
		FROM sightings
		WHERE NOT is_deleted
		  AND created_at >= $3
		  AND earth_box(ll_to_earth($1, $2), $4) @> ll_to_earth(lat, lng)
		  AND earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)) <= $4
		ORDER BY distance
		LIMIT 1`,
		lat, lng, since, radiusMeters,
	)
	var rawID uuid.UUID
	var distance float64
	if err := row.Scan(&rawID, &distance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find nearby active: %w", err)
	}
	return &models.NearbyMatch{ID: id.SightingID(rawID), Distance: distance}, nil
}

func (s *PostgresStore) ListActive(ctx context.Context, since time.Time, limit int) ([]*models.Sighting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, tag, description, media_url, lat, lng, device_uuid, anon_user_number, is_deleted
		FROM sightings
		WHERE NOT is_deleted AND created_at >= $1
		ORDER BY created_at DESC, id
		LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list active sightings: %w", err)
	}
	defer rows.Close()

	var out []*models.Sighting
	for rows.Next() {
		sighting, err := scanSighting(rows)
		if err != nil {
			return nil, fmt.Errorf("list active sightings: %w", err)
		}
		out = append(out, sighting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active sightings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) InsertCheckin(ctx context.Context, c *models.Checkin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkins (id, sighting_id, created_at, device_uuid, anon_user_number)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(c.ID), uuid.UUID(c.SightingID), c.CreatedAt, c.DeviceUUID, c.AnonUserNumber,
	)
	if err != nil {
		return fmt.Errorf("insert checkin: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastCheckinByDevice(ctx context.Context, sightingID id.SightingID, deviceUUID string) (time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM checkins
		WHERE sighting_id = $1 AND device_uuid = $2`,
		uuid.UUID(sightingID), deviceUUID,
	).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("last checkin by device: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

func (s *PostgresStore) AggregateCheckins(ctx context.Context, sightingID id.SightingID) (models.CheckinAggregate, error) {
	var count int
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(created_at) FROM checkins WHERE sighting_id = $1`,
		uuid.UUID(sightingID),
	).Scan(&count, &last)
	if err != nil {
		return models.CheckinAggregate{}, fmt.Errorf("aggregate checkins: %w", err)
	}
	agg := models.CheckinAggregate{CheckinCount: count}
	if last.Valid {
		t := last.Time
		agg.LastCheckinAt = &t
	}
	return agg, nil
}

func (s *PostgresStore) AggregateCheckinsMany(ctx context.Context, sightingIDs []id.SightingID) (map[id.SightingID]models.CheckinAggregate, error) {
	out := make(map[id.SightingID]models.CheckinAggregate, len(sightingIDs))
	if len(sightingIDs) == 0 {
		return out, nil
	}
	raw := make([]uuid.UUID, len(sightingIDs))
	for i, sid := range sightingIDs {
		raw[i] = uuid.UUID(sid)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sighting_id, COUNT(*), MAX(created_at)
		FROM checkins
		WHERE sighting_id = ANY($1)
		GROUP BY sighting_id`,
		pq.Array(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate checkins many: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sid uuid.UUID
		var count int
		var last time.Time
		if err := rows.Scan(&sid, &count, &last); err != nil {
			return nil, fmt.Errorf("aggregate checkins many: %w", err)
		}
		lastCopy := last
		out[id.SightingID(sid)] = models.CheckinAggregate{
			CheckinCount:  count,
			LastCheckinAt: &lastCopy,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate checkins many: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSighting(row rowScanner) (*models.Sighting, error) {
	var (
		rawID       uuid.UUID
		sighting    models.Sighting
		tag         string
		description sql.NullString
		mediaURL    sql.NullString
	)
	err := row.Scan(&rawID, &sighting.CreatedAt, &tag, &description, &mediaURL,
		&sighting.Lat, &sighting.Lng, &sighting.DeviceUUID, &sighting.AnonUserNumber, &sighting.IsDeleted)
	if err != nil {
		return nil, err
	}
	sighting.ID = id.SightingID(rawID)
	sighting.Tag = models.Tag(tag)
	sighting.Description = description.String
	sighting.MediaURL = mediaURL.String
	return &sighting, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
