package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freightdispatch/pkg/apperrors"
	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

type fleetRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewFleetRepo(db *pgxpool.Pool, log logger.ILogger) storage.IFleetStorage {
	return &fleetRepo{db: db, log: log}
}

func (r *fleetRepo) CreateDriver(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO drivers (full_name, phone, license_number, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, driver.FullName, driver.Phone, driver.LicenseNumber, driver.Status).Scan(&driver.ID, &driver.CreatedAt)
	if err != nil {
		r.log.Error("failed to create driver", logger.Error(err))
		return nil, apperrors.Storage(err)
	}
	return driver, nil
}

func (r *fleetRepo) GetDriver(ctx context.Context, id int64) (*models.Driver, error) {
	var d models.Driver
	err := r.db.QueryRow(ctx, `
		SELECT id, full_name, phone, license_number, status, created_at
		FROM drivers
		WHERE id = $1
	`, id).Scan(&d.ID, &d.FullName, &d.Phone, &d.LicenseNumber, &d.Status, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "driver %d", id)
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return &d, nil
}

func (r *fleetRepo) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO vehicles (unit_number, equipment_type, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, vehicle.UnitNumber, vehicle.EquipmentType, vehicle.Status).Scan(&vehicle.ID, &vehicle.CreatedAt)
	if err != nil {
		r.log.Error("failed to create vehicle", logger.Error(err))
		return nil, apperrors.Storage(err)
	}
	return vehicle, nil
}

func (r *fleetRepo) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	var v models.Vehicle
	err := r.db.QueryRow(ctx, `
		SELECT id, unit_number, equipment_type, status, created_at
		FROM vehicles
		WHERE id = $1
	`, id).Scan(&v.ID, &v.UnitNumber, &v.EquipmentType, &v.Status, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "vehicle %d", id)
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return &v, nil
}

func (r *fleetRepo) GetAvailableDrivers(ctx context.Context) ([]*models.Driver, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.id, d.full_name, d.phone, d.license_number, d.status, d.created_at
		FROM drivers d
		LEFT JOIN loads l ON l.driver_id = d.id AND l.status = ANY($1)
		WHERE d.status = $2 AND l.id IS NULL
		ORDER BY d.id
	`, activeStatusList(), models.DriverStatusActive)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer rows.Close()

	var drivers []*models.Driver
	for rows.Next() {
		var d models.Driver
		if err := rows.Scan(&d.ID, &d.FullName, &d.Phone, &d.LicenseNumber, &d.Status, &d.CreatedAt); err != nil {
			return nil, apperrors.Storage(err)
		}
		drivers = append(drivers, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err)
	}
	return drivers, nil
}

func (r *fleetRepo) GetAvailableVehicles(ctx context.Context, equipmentType string) ([]*models.Vehicle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.id, v.unit_number, v.equipment_type, v.status, v.created_at
		FROM vehicles v
		LEFT JOIN loads l ON l.vehicle_id = v.id AND l.status = ANY($1)
		WHERE v.status = $2 AND l.id IS NULL
		  AND ($3 = '' OR v.equipment_type = $3)
		ORDER BY v.id
	`, activeStatusList(), models.VehicleStatusActive, equipmentType)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.UnitNumber, &v.EquipmentType, &v.Status, &v.CreatedAt); err != nil {
			return nil, apperrors.Storage(err)
		}
		vehicles = append(vehicles, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err)
	}
	return vehicles, nil
}
