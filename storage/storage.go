package storage

import (
	"context"
	"time"

	"freightdispatch/pkg/models"
)

type IStorage interface {
	Load() ILoadStorage
	Event() IEventStorage
	Fleet() IFleetStorage
	Close()
}

// IChangeNotifier receives a notification after every committed load write.
// The projection layer consumes these; the engine itself never waits on
// them. Implementations must not block the writer.
type IChangeNotifier interface {
	LoadChanged(ctx context.Context, loadID string, status models.LoadStatus)
	LoadDeleted(ctx context.Context, loadID string)
}

// TransitionUpdate describes one atomic status change. The store must apply
// the status update, the event append and any optional effects as a single
// unit, and must fail with ErrConcurrentModification when the load's status
// no longer equals FromStatus at write time.
type TransitionUpdate struct {
	FromStatus models.LoadStatus
	ToStatus   models.LoadStatus

	ActualPickupTime   *time.Time
	ActualDeliveryTime *time.Time

	// ClearAssignment drops driver/vehicle together (unassignment).
	ClearAssignment bool

	// CompleteStop, when set, completes the stop at this position if it is
	// currently arrived, stamping its departure alongside the transition.
	CompleteStop *int

	POD   *models.ProofOfDelivery
	Event models.TrackingEvent
}

// StopUpdate describes one atomic stop state change plus its event. The
// store fails with ErrInvalidStopState when the stop's status no longer
// equals FromStatus at write time.
type StopUpdate struct {
	FromStatus models.StopStatus
	ToStatus   models.StopStatus
	ArrivedAt  *time.Time
	DepartedAt *time.Time
	Event      models.TrackingEvent
}

type ILoadStorage interface {
	// Create persists the load, its stops and the seed event in one unit.
	Create(ctx context.Context, load *models.Load, seed *models.TrackingEvent) (*models.Load, error)
	GetByID(ctx context.Context, id string) (*models.Load, error)
	GetByNumber(ctx context.Context, number string) (*models.Load, error)
	GetAll(ctx context.Context) ([]*models.Load, error)
	GetByStatus(ctx context.Context, status models.LoadStatus) ([]*models.Load, error)
	GetPending(ctx context.Context) ([]*models.Load, error)
	GetActive(ctx context.Context) ([]*models.Load, error)
	GetCreatedBetween(ctx context.Context, from, to time.Time) ([]*models.Load, error)
	GetDeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Load, error)
	CountByStatus(ctx context.Context) (map[models.LoadStatus]int, error)
	ApplyTransition(ctx context.Context, loadID string, up TransitionUpdate) (*models.Load, error)
	// AssignDriver binds the pair to a pending load. The availability check
	// against active loads runs inside the same transaction as the write;
	// losing the race surfaces ErrDriverUnavailable / ErrVehicleUnavailable,
	// never a silent double-booking.
	AssignDriver(ctx context.Context, loadID string, driverID, vehicleID int64, event models.TrackingEvent) (*models.Load, error)
	UpdateStop(ctx context.Context, loadID string, position int, up StopUpdate) (*models.Load, error)
	// Delete is a hard removal reserved for erroneous records.
	Delete(ctx context.Context, loadID string) error
}

type IEventStorage interface {
	// Append assigns the event id and timestamp on insertion.
	Append(ctx context.Context, event *models.TrackingEvent) (*models.TrackingEvent, error)
	// GetByLoad returns the log in insertion order, oldest first.
	GetByLoad(ctx context.Context, loadID string) ([]*models.TrackingEvent, error)
}

type IFleetStorage interface {
	CreateDriver(ctx context.Context, driver *models.Driver) (*models.Driver, error)
	GetDriver(ctx context.Context, id int64) (*models.Driver, error)
	CreateVehicle(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
	// GetAvailableDrivers returns active drivers not referenced by any
	// load in an active status, soonest-registered first.
	GetAvailableDrivers(ctx context.Context) ([]*models.Driver, error)
	GetAvailableVehicles(ctx context.Context, equipmentType string) ([]*models.Vehicle, error)
}
