package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage/memory"
)

func newTestEnv(t *testing.T) (*memory.Store, IServiceManager) {
	t.Helper()
	stg := memory.New(logger.New("service-test", "error"), nil)
	return stg, New(stg, logger.New("service-test", "error"))
}

func testLoadSpec(rate int64) models.LoadSpec {
	now := time.Now().UTC()
	return models.LoadSpec{
		Commodity:     "produce",
		WeightLbs:     24000,
		EquipmentType: "reefer",
		Rate:          decimal.NewFromInt(rate),
		PickupDate:    now,
		DeliveryDate:  now.Add(48 * time.Hour),
		Stops: []models.StopSpec{
			{
				Type:         models.StopTypePickup,
				FacilityName: "Fresno DC",
				Address:      "100 Shipper Rd, Fresno, CA",
				Location:     models.GeoPoint{Lat: 36.74, Lon: -119.79},
				ScheduledAt:  now,
			},
			{
				Type:         models.StopTypeDelivery,
				FacilityName: "Denver DC",
				Address:      "200 Receiver Ave, Denver, CO",
				Location:     models.GeoPoint{Lat: 39.74, Lon: -104.99},
				ScheduledAt:  now.Add(48 * time.Hour),
			},
		},
	}
}

func addFleetPair(t *testing.T, stg *memory.Store) (driverID, vehicleID int64) {
	t.Helper()
	ctx := context.Background()
	d, err := stg.Fleet().CreateDriver(ctx, &models.Driver{
		FullName:      "Alex Romero",
		LicenseNumber: "CDL-4417",
		Status:        models.DriverStatusActive,
	})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	v, err := stg.Fleet().CreateVehicle(ctx, &models.Vehicle{
		UnitNumber:    "TRK-88",
		EquipmentType: "reefer",
		Status:        models.VehicleStatusActive,
	})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return d.ID, v.ID
}

// driveToAtDelivery walks a fresh load through the forward states up to
// at_delivery with both stops visited.
func driveToAtDelivery(t *testing.T, stg *memory.Store, svc IServiceManager, spec models.LoadSpec) *models.Load {
	t.Helper()
	ctx := context.Background()

	load, err := svc.Lifecycle().CreateLoad(ctx, spec)
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	driverID, vehicleID := addFleetPair(t, stg)
	if _, err := svc.Assignment().Assign(ctx, load.ID, driverID, vehicleID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, target := range []models.LoadStatus{models.StatusEnRoutePickup, models.StatusAtPickup} {
		if _, err := svc.Lifecycle().Transition(ctx, load.ID, target, "dispatcher"); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}
	if _, err := svc.Lifecycle().RecordArrival(ctx, load.ID, 0, nil, "driver"); err != nil {
		t.Fatalf("record arrival at origin: %v", err)
	}
	for _, target := range []models.LoadStatus{models.StatusLoaded, models.StatusEnRouteDelivery, models.StatusAtDelivery} {
		if _, err := svc.Lifecycle().Transition(ctx, load.ID, target, "dispatcher"); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}
	if _, err := svc.Lifecycle().RecordArrival(ctx, load.ID, len(spec.Stops)-1, nil, "driver"); err != nil {
		t.Fatalf("record arrival at destination: %v", err)
	}

	updated, err := svc.Lifecycle().GetLoad(ctx, load.ID)
	if err != nil {
		t.Fatalf("get load: %v", err)
	}
	return updated
}

// deliverLoad drives a fresh load all the way to delivered.
func deliverLoad(t *testing.T, stg *memory.Store, svc IServiceManager, spec models.LoadSpec, deliveredAt time.Time) *models.Load {
	t.Helper()
	load := driveToAtDelivery(t, stg, svc, spec)
	delivered, err := svc.Lifecycle().SubmitProofOfDelivery(context.Background(), load.ID, models.ProofOfDelivery{
		SignerName:  "Jane Doe",
		DeliveredAt: deliveredAt,
	})
	if err != nil {
		t.Fatalf("submit proof of delivery: %v", err)
	}
	return delivered
}
