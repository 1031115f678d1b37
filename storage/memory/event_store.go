package memory

import (
	"context"
	"time"

	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

type eventStore struct {
	data *db
}

var _ storage.IEventStorage = (*eventStore)(nil)

// appendEventLocked assigns id/timestamp and appends. Caller holds data.mu.
func appendEventLocked(d *db, e *models.TrackingEvent) {
	if e.ID == "" {
		e.ID = models.NewEventID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	d.events[e.LoadID] = append(d.events[e.LoadID], cloneEvent(e))
}

func (s *eventStore) Append(ctx context.Context, event *models.TrackingEvent) (*models.TrackingEvent, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	appendEventLocked(s.data, event)
	return cloneEvent(event), nil
}

func (s *eventStore) GetByLoad(ctx context.Context, loadID string) ([]*models.TrackingEvent, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	stored := s.data.events[loadID]
	events := make([]*models.TrackingEvent, 0, len(stored))
	for _, e := range stored {
		events = append(events, cloneEvent(e))
	}
	return events, nil
}
