package service

import (
	"context"
	"errors"
	"sort"

	"freightdispatch/pkg/apperrors"
	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

// AssignmentService binds driver/vehicle pairs to loads and answers
// availability-aware queries. Exclusivity is enforced by the storage
// layer's transactional availability check; this service validates inputs
// and decides candidates.
type AssignmentService interface {
	Assign(ctx context.Context, loadID string, driverID, vehicleID int64) (*models.Load, error)
	Unassign(ctx context.Context, loadID string, actor string) (*models.Load, error)
	AutoAssign(ctx context.Context, loadID string) (*models.Load, error)
	SuggestBackhaul(ctx context.Context, driverID int64, location models.GeoPoint) ([]*models.Load, error)
}

// Ranker orders auto-assign candidates. Implementations may rank by
// proximity, hours-of-service headroom or anything else; callers must not
// assume more than best-effort ordering.
type Ranker interface {
	Rank(ctx context.Context, load *models.Load, drivers []*models.Driver) []*models.Driver
}

// FIFORanker preserves the fleet query's order.
type FIFORanker struct{}

func (FIFORanker) Rank(_ context.Context, _ *models.Load, drivers []*models.Driver) []*models.Driver {
	return drivers
}

type assignmentService struct {
	loads  storage.ILoadStorage
	fleet  storage.IFleetStorage
	ranker Ranker
	log    logger.ILogger
}

func NewAssignmentService(stg storage.IStorage, log logger.ILogger, ranker Ranker) AssignmentService {
	if ranker == nil {
		ranker = FIFORanker{}
	}
	return &assignmentService{
		loads:  stg.Load(),
		fleet:  stg.Fleet(),
		ranker: ranker,
		log:    log,
	}
}

func (s *assignmentService) Assign(ctx context.Context, loadID string, driverID, vehicleID int64) (*models.Load, error) {
	if _, err := s.fleet.GetDriver(ctx, driverID); err != nil {
		return nil, err
	}
	if _, err := s.fleet.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	event := models.TrackingEvent{
		Type:        models.StatusEventType(models.StatusAssigned),
		Description: models.StatusEventDescription(models.StatusAssigned),
		Author:      "dispatch",
		Automatic:   true,
	}
	updated, err := s.loads.AssignDriver(ctx, loadID, driverID, vehicleID, event)
	if err != nil {
		return nil, err
	}
	s.log.Info("load assigned",
		logger.String("load_id", loadID),
		logger.Int64("driver_id", driverID),
		logger.Int64("vehicle_id", vehicleID))
	return updated, nil
}

func (s *assignmentService) Unassign(ctx context.Context, loadID string, actor string) (*models.Load, error) {
	load, err := s.loads.GetByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if load.Status == models.StatusDelivered || load.Status.IsTerminal() {
		return nil, apperrors.Wrapf(apperrors.ErrTerminalLoad, "load %s is %s", loadID, load.Status)
	}
	if load.DriverID == nil {
		// Nothing bound; the load is already back in the dispatch queue.
		return load, nil
	}

	up := storage.TransitionUpdate{
		FromStatus:      load.Status,
		ToStatus:        models.StatusPending,
		ClearAssignment: true,
		Event: models.TrackingEvent{
			Type:        models.EventException,
			Description: "Driver unassigned, load returned to dispatch queue",
			Author:      actor,
			Automatic:   true,
		},
	}
	updated, err := s.loads.ApplyTransition(ctx, loadID, up)
	if err != nil {
		return nil, err
	}
	s.log.Warning("load unassigned",
		logger.String("load_id", loadID),
		logger.String("previous_status", string(load.Status)),
		logger.String("actor", actor))
	return updated, nil
}

func (s *assignmentService) AutoAssign(ctx context.Context, loadID string) (*models.Load, error) {
	load, err := s.loads.GetByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if load.Status != models.StatusPending {
		return nil, apperrors.Wrapf(apperrors.ErrAlreadyAssigned, "load %s is %s", loadID, load.Status)
	}

	drivers, err := s.fleet.GetAvailableDrivers(ctx)
	if err != nil {
		return nil, err
	}
	if len(drivers) == 0 {
		return nil, apperrors.ErrNoDriversAvailable
	}
	vehicles, err := s.fleet.GetAvailableVehicles(ctx, load.EquipmentType)
	if err != nil {
		return nil, err
	}
	if len(vehicles) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrVehicleUnavailable,
			"no %s vehicle available", load.EquipmentType)
	}

	vehicle := vehicles[0]
	for _, driver := range s.ranker.Rank(ctx, load, drivers) {
		updated, err := s.Assign(ctx, loadID, driver.ID, vehicle.ID)
		if err == nil {
			return updated, nil
		}
		// Another dispatcher may have grabbed the candidate between the
		// availability read and the write; move to the next one.
		if errors.Is(err, apperrors.ErrDriverUnavailable) {
			continue
		}
		return nil, err
	}
	return nil, apperrors.ErrNoDriversAvailable
}

func (s *assignmentService) SuggestBackhaul(ctx context.Context, driverID int64, location models.GeoPoint) ([]*models.Load, error) {
	if _, err := s.fleet.GetDriver(ctx, driverID); err != nil {
		return nil, err
	}
	pending, err := s.loads.GetPending(ctx)
	if err != nil {
		return nil, err
	}

	// Closer origin first, best effort. Callers must not depend on more.
	sort.SliceStable(pending, func(i, j int) bool {
		return backhaulDistance(pending[i], location) < backhaulDistance(pending[j], location)
	})
	return pending, nil
}

func backhaulDistance(load *models.Load, from models.GeoPoint) float64 {
	origin := load.OriginStop()
	if origin == nil {
		return 1 << 30
	}
	return from.DistanceKm(origin.Location)
}
