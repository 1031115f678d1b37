package models

import "time"

type StopType string

const (
	StopTypePickup   StopType = "pickup"
	StopTypeDelivery StopType = "delivery"
)

type StopStatus string

const (
	StopStatusPending   StopStatus = "pending"
	StopStatusArrived   StopStatus = "arrived"
	StopStatusCompleted StopStatus = "completed"
)

// Stop is one stop in a load's route. Position 0 is the origin, the last
// position is the final destination.
type Stop struct {
	LoadID       string     `json:"load_id"`
	Position     int        `json:"position"`
	Type         StopType   `json:"stop_type"`
	FacilityName string     `json:"facility_name"`
	Address      string     `json:"address"`
	Location     GeoPoint   `json:"location"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	ArrivedAt    *time.Time `json:"arrived_at"`
	DepartedAt   *time.Time `json:"departed_at"`
	Status       StopStatus `json:"status"`
}

type StopSpec struct {
	Type         StopType  `json:"stop_type"`
	FacilityName string    `json:"facility_name"`
	Address      string    `json:"address"`
	Location     GeoPoint  `json:"location"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}
