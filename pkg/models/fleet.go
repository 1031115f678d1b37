package models

import "time"

const (
	DriverStatusActive   = "active"
	DriverStatusInactive = "inactive"

	VehicleStatusActive      = "active"
	VehicleStatusMaintenance = "maintenance"
)

type Driver struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"full_name"`
	Phone         *string   `json:"phone"`
	LicenseNumber string    `json:"license_number"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type Vehicle struct {
	ID            int64     `json:"id"`
	UnitNumber    string    `json:"unit_number"`
	EquipmentType string    `json:"equipment_type"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
