package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"freightdispatch/pkg/apperrors"
	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

type eventRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewEventRepo(db *pgxpool.Pool, log logger.ILogger) storage.IEventStorage {
	return &eventRepo{db: db, log: log}
}

// insertEvent assigns the id and timestamp and writes the row. Shared with
// the load repo so transition events land in the same transaction.
func insertEvent(ctx context.Context, q querier, e *models.TrackingEvent) error {
	if e.ID == "" {
		e.ID = models.NewEventID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var lat, lon *float64
	if e.Location != nil {
		lat = &e.Location.Lat
		lon = &e.Location.Lon
	}
	_, err := q.Exec(ctx, `
		INSERT INTO tracking_events (id, load_id, event_type, description, lat, lon, author, automatic, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.LoadID, string(e.Type), e.Description, lat, lon, e.Author, e.Automatic, e.CreatedAt)
	return err
}

func (r *eventRepo) Append(ctx context.Context, event *models.TrackingEvent) (*models.TrackingEvent, error) {
	if err := insertEvent(ctx, r.db, event); err != nil {
		r.log.Error("failed to append tracking event", logger.String("load_id", event.LoadID), logger.Error(err))
		return nil, apperrors.Storage(err)
	}
	return event, nil
}

func (r *eventRepo) GetByLoad(ctx context.Context, loadID string) ([]*models.TrackingEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, load_id, event_type, description, lat, lon, author, automatic, created_at
		FROM tracking_events
		WHERE load_id = $1
		ORDER BY created_at, id
	`, loadID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer rows.Close()

	var events []*models.TrackingEvent
	for rows.Next() {
		var e models.TrackingEvent
		var eventType string
		var lat, lon *float64
		if err := rows.Scan(&e.ID, &e.LoadID, &eventType, &e.Description, &lat, &lon, &e.Author, &e.Automatic, &e.CreatedAt); err != nil {
			return nil, apperrors.Storage(err)
		}
		e.Type = models.EventType(eventType)
		if lat != nil && lon != nil {
			e.Location = &models.GeoPoint{Lat: *lat, Lon: *lon}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err)
	}
	return events, nil
}
