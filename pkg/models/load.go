package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Load struct {
	ID                 string           `json:"id"`
	LoadNumber         string           `json:"load_number"`
	Commodity          string           `json:"commodity"`
	WeightLbs          float64          `json:"weight_lbs"`
	EquipmentType      string           `json:"equipment_type"`
	Rate               decimal.Decimal  `json:"rate"`
	PickupDate         time.Time        `json:"pickup_date"`
	DeliveryDate       time.Time        `json:"delivery_date"`
	ActualPickupTime   *time.Time       `json:"actual_pickup_time"`
	ActualDeliveryTime *time.Time       `json:"actual_delivery_time"`
	DriverID           *int64           `json:"driver_id"`
	VehicleID          *int64           `json:"vehicle_id"`
	Status             LoadStatus       `json:"status"`
	Version            int64            `json:"version"`
	Stops              []Stop           `json:"stops"`
	POD                *ProofOfDelivery `json:"proof_of_delivery"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// LoadSpec is the caller-supplied shape for creating a load.
type LoadSpec struct {
	Commodity     string          `json:"commodity"`
	WeightLbs     float64         `json:"weight_lbs"`
	EquipmentType string          `json:"equipment_type"`
	Rate          decimal.Decimal `json:"rate"`
	PickupDate    time.Time       `json:"pickup_date"`
	DeliveryDate  time.Time       `json:"delivery_date"`
	Stops         []StopSpec      `json:"stops"`
}

func (l *Load) OriginStop() *Stop {
	if len(l.Stops) == 0 {
		return nil
	}
	return &l.Stops[0]
}

func (l *Load) TerminalStop() *Stop {
	if len(l.Stops) == 0 {
		return nil
	}
	return &l.Stops[len(l.Stops)-1]
}

func NewLoadID() string {
	return uuid.NewString()
}

// NewLoadNumber generates a human-readable, unique load number.
func NewLoadNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("LD-%s-%s", now.UTC().Format("20060102"), suffix)
}
