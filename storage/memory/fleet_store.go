package memory

import (
	"context"
	"sort"
	"time"

	"freightdispatch/pkg/apperrors"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

type fleetStore struct {
	data *db
}

var _ storage.IFleetStorage = (*fleetStore)(nil)

func (s *fleetStore) CreateDriver(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	s.data.nextDriverID++
	driver.ID = s.data.nextDriverID
	driver.CreatedAt = time.Now().UTC()
	cp := *driver
	s.data.drivers[driver.ID] = &cp
	return driver, nil
}

func (s *fleetStore) GetDriver(ctx context.Context, id int64) (*models.Driver, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	d, ok := s.data.drivers[id]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "driver %d", id)
	}
	cp := *d
	return &cp, nil
}

func (s *fleetStore) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	s.data.nextVehicleID++
	vehicle.ID = s.data.nextVehicleID
	vehicle.CreatedAt = time.Now().UTC()
	cp := *vehicle
	s.data.vehicles[vehicle.ID] = &cp
	return vehicle, nil
}

func (s *fleetStore) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	v, ok := s.data.vehicles[id]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "vehicle %d", id)
	}
	cp := *v
	return &cp, nil
}

func (s *fleetStore) GetAvailableDrivers(ctx context.Context) ([]*models.Driver, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	busy := make(map[int64]bool)
	for _, l := range s.data.loads {
		if l.Status.IsActive() && l.DriverID != nil {
			busy[*l.DriverID] = true
		}
	}

	var drivers []*models.Driver
	for _, d := range s.data.drivers {
		if d.Status == models.DriverStatusActive && !busy[d.ID] {
			cp := *d
			drivers = append(drivers, &cp)
		}
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].ID < drivers[j].ID })
	return drivers, nil
}

func (s *fleetStore) GetAvailableVehicles(ctx context.Context, equipmentType string) ([]*models.Vehicle, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	busy := make(map[int64]bool)
	for _, l := range s.data.loads {
		if l.Status.IsActive() && l.VehicleID != nil {
			busy[*l.VehicleID] = true
		}
	}

	var vehicles []*models.Vehicle
	for _, v := range s.data.vehicles {
		if v.Status != models.VehicleStatusActive || busy[v.ID] {
			continue
		}
		if equipmentType != "" && v.EquipmentType != equipmentType {
			continue
		}
		cp := *v
		vehicles = append(vehicles, &cp)
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles, nil
}
