package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCreated   EventType = "created"
	EventDispatch  EventType = "dispatch"
	EventEnRoute   EventType = "en_route"
	EventArrival   EventType = "arrival"
	EventDeparture EventType = "departure"
	EventDelivered EventType = "delivered"
	EventCompleted EventType = "completed"
	EventException EventType = "exception"
)

// TrackingEvent is one immutable entry in a load's audit log. Events are
// appended by the storage layer together with the state change they record
// and are never rewritten.
type TrackingEvent struct {
	ID          string    `json:"id"`
	LoadID      string    `json:"load_id"`
	Type        EventType `json:"event_type"`
	Description string    `json:"description"`
	Location    *GeoPoint `json:"location"`
	Author      string    `json:"author"`
	Automatic   bool      `json:"automatic"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEventID returns a time-ordered unique event id.
func NewEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}
