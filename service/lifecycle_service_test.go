package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"freightdispatch/pkg/apperrors"
	"freightdispatch/pkg/models"
)

func TestCreateLoad(t *testing.T) {
	_, svc := newTestEnv(t)
	ctx := context.Background()

	load, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if load.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", load.Status)
	}
	if !strings.HasPrefix(load.LoadNumber, "LD-") {
		t.Fatalf("unexpected load number %q", load.LoadNumber)
	}
	if len(load.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(load.Stops))
	}
	if load.Stops[0].Status != models.StopStatusPending {
		t.Fatalf("expected pending origin stop, got %s", load.Stops[0].Status)
	}

	history, err := svc.Lifecycle().GetHistory(ctx, load.ID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 seed event, got %d", len(history))
	}
	if history[0].Type != models.EventCreated || !history[0].Automatic {
		t.Fatalf("unexpected seed event %+v", history[0])
	}
}

func TestCreateLoadValidation(t *testing.T) {
	_, svc := newTestEnv(t)
	ctx := context.Background()

	spec := testLoadSpec(1000)
	spec.Stops = spec.Stops[:1]
	if _, err := svc.Lifecycle().CreateLoad(ctx, spec); !errors.Is(err, apperrors.ErrInvalidLoadSpec) {
		t.Fatalf("expected ErrInvalidLoadSpec, got %v", err)
	}

	spec = testLoadSpec(1000)
	spec.Stops[0].Type = models.StopTypeDelivery
	if _, err := svc.Lifecycle().CreateLoad(ctx, spec); !errors.Is(err, apperrors.ErrInvalidLoadSpec) {
		t.Fatalf("expected ErrInvalidLoadSpec for delivery-first route, got %v", err)
	}
}

func TestTransitionRejectsSkippedState(t *testing.T) {
	_, svc := newTestEnv(t)
	ctx := context.Background()

	load, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	_, err = svc.Lifecycle().Transition(ctx, load.ID, models.StatusLoaded, "dispatcher")
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, err := svc.Lifecycle().GetLoad(ctx, load.ID)
	if err != nil {
		t.Fatalf("get load: %v", err)
	}
	if got.Status != models.StatusPending {
		t.Fatalf("load should stay pending, got %s", got.Status)
	}
}

func TestTransitionRejectsUnknownLoad(t *testing.T) {
	_, svc := newTestEnv(t)
	_, err := svc.Lifecycle().Transition(context.Background(), "no-such-load", models.StatusAssigned, "dispatcher")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionDirectDeliveredRejected(t *testing.T) {
	stg, svc := newTestEnv(t)
	load := driveToAtDelivery(t, stg, svc, testLoadSpec(1000))

	_, err := svc.Lifecycle().Transition(context.Background(), load.ID, models.StatusDelivered, "dispatcher")
	if !errors.Is(err, apperrors.ErrMissingProofOfDelivery) {
		t.Fatalf("expected ErrMissingProofOfDelivery, got %v", err)
	}
}

func TestForwardProgressionAndProofOfDelivery(t *testing.T) {
	stg, svc := newTestEnv(t)
	ctx := context.Background()

	deliveredAt := time.Now().UTC().Add(4 * time.Hour)
	load := deliverLoad(t, stg, svc, testLoadSpec(1000), deliveredAt)

	if load.Status != models.StatusDelivered {
		t.Fatalf("expected delivered, got %s", load.Status)
	}
	if load.ActualDeliveryTime == nil || !load.ActualDeliveryTime.Equal(deliveredAt) {
		t.Fatalf("actual delivery time not stamped from pod: %v", load.ActualDeliveryTime)
	}
	if load.ActualPickupTime == nil {
		t.Fatal("actual pickup time not stamped on loaded")
	}
	if load.POD == nil || load.POD.SignerName != "Jane Doe" {
		t.Fatalf("pod not stored: %+v", load.POD)
	}
	terminal := load.TerminalStop()
	if terminal.Status != models.StopStatusCompleted {
		t.Fatalf("terminal stop should be completed, got %s", terminal.Status)
	}
	if load.Stops[0].Status != models.StopStatusCompleted {
		t.Fatalf("origin stop should be completed after loaded, got %s", load.Stops[0].Status)
	}

	history, err := svc.Lifecycle().GetHistory(ctx, load.ID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	last := history[len(history)-1]
	if last.Type != models.EventDelivered {
		t.Fatalf("last event should be delivered, got %s", last.Type)
	}
	if last.Automatic {
		t.Fatal("delivered event is user-attested and must not be automatic")
	}
	if last.Author != "Jane Doe" {
		t.Fatalf("delivered event author should be the signer, got %q", last.Author)
	}

	// delivered -> completed is still a legal forward step
	completed, err := svc.Lifecycle().Transition(ctx, load.ID, models.StatusCompleted, "billing")
	if err != nil {
		t.Fatalf("transition to completed: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
}

func TestSubmitProofOfDeliveryPreconditions(t *testing.T) {
	stg, svc := newTestEnv(t)
	ctx := context.Background()

	// Not yet at_delivery.
	load, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	_, err = svc.Lifecycle().SubmitProofOfDelivery(ctx, load.ID, models.ProofOfDelivery{SignerName: "Jane Doe"})
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// At delivery but terminal stop never arrived.
	load2, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	driverID, vehicleID := addFleetPair(t, stg)
	if _, err := svc.Assignment().Assign(ctx, load2.ID, driverID, vehicleID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, target := range []models.LoadStatus{
		models.StatusEnRoutePickup, models.StatusAtPickup, models.StatusLoaded,
		models.StatusEnRouteDelivery, models.StatusAtDelivery,
	} {
		if _, err := svc.Lifecycle().Transition(ctx, load2.ID, target, "dispatcher"); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}
	_, err = svc.Lifecycle().SubmitProofOfDelivery(ctx, load2.ID, models.ProofOfDelivery{SignerName: "Jane Doe"})
	if !errors.Is(err, apperrors.ErrInvalidStopState) {
		t.Fatalf("expected ErrInvalidStopState, got %v", err)
	}
}

func TestRecordArrivalIdempotence(t *testing.T) {
	_, svc := newTestEnv(t)
	ctx := context.Background()

	load, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	first, err := svc.Lifecycle().RecordArrival(ctx, load.ID, 0, &models.GeoPoint{Lat: 36.74, Lon: -119.79}, "driver")
	if err != nil {
		t.Fatalf("first arrival: %v", err)
	}
	if first.Stops[0].Status != models.StopStatusArrived || first.Stops[0].ArrivedAt == nil {
		t.Fatalf("arrival not recorded: %+v", first.Stops[0])
	}

	_, err = svc.Lifecycle().RecordArrival(ctx, load.ID, 0, nil, "driver")
	if !errors.Is(err, apperrors.ErrInvalidStopState) {
		t.Fatalf("expected ErrInvalidStopState on repeat arrival, got %v", err)
	}

	after, err := svc.Lifecycle().GetLoad(ctx, load.ID)
	if err != nil {
		t.Fatalf("get load: %v", err)
	}
	if !after.Stops[0].ArrivedAt.Equal(*first.Stops[0].ArrivedAt) {
		t.Fatal("repeat arrival must not change the stop")
	}
}

func TestRecordDepartureRequiresArrival(t *testing.T) {
	_, svc := newTestEnv(t)
	ctx := context.Background()

	load, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	_, err = svc.Lifecycle().RecordDeparture(ctx, load.ID, 0, "driver")
	if !errors.Is(err, apperrors.ErrInvalidStopState) {
		t.Fatalf("expected ErrInvalidStopState, got %v", err)
	}

	if _, err := svc.Lifecycle().RecordArrival(ctx, load.ID, 0, nil, "driver"); err != nil {
		t.Fatalf("arrival: %v", err)
	}
	departed, err := svc.Lifecycle().RecordDeparture(ctx, load.ID, 0, "driver")
	if err != nil {
		t.Fatalf("departure: %v", err)
	}
	if departed.Stops[0].Status != models.StopStatusCompleted || departed.Stops[0].DepartedAt == nil {
		t.Fatalf("departure not recorded: %+v", departed.Stops[0])
	}
}

func TestCancelIsTerminal(t *testing.T) {
	_, svc := newTestEnv(t)
	ctx := context.Background()

	load, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	cancelled, err := svc.Lifecycle().Transition(ctx, load.ID, models.StatusCancelled, "dispatcher")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	_, err = svc.Lifecycle().Transition(ctx, load.ID, models.StatusAssigned, "dispatcher")
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after cancel, got %v", err)
	}
	_, err = svc.Lifecycle().Transition(ctx, load.ID, models.StatusCancelled, "dispatcher")
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("cancel must not repeat, got %v", err)
	}
}

func TestStopUpdatesRejectedOnTerminalLoad(t *testing.T) {
	stg, svc := newTestEnv(t)
	ctx := context.Background()

	load, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	if _, err := svc.Lifecycle().Transition(ctx, load.ID, models.StatusCancelled, "dispatcher"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err = svc.Lifecycle().RecordArrival(ctx, load.ID, 0, nil, "driver")
	if !errors.Is(err, apperrors.ErrTerminalLoad) {
		t.Fatalf("expected ErrTerminalLoad on arrival, got %v", err)
	}
	_, err = svc.Lifecycle().RecordDeparture(ctx, load.ID, 0, "driver")
	if !errors.Is(err, apperrors.ErrTerminalLoad) {
		t.Fatalf("expected ErrTerminalLoad on departure, got %v", err)
	}

	// The cancelled load's stops and log are untouched.
	after, err := svc.Lifecycle().GetLoad(ctx, load.ID)
	if err != nil {
		t.Fatalf("get load: %v", err)
	}
	if after.Stops[0].Status != models.StopStatusPending {
		t.Fatalf("stop mutated after cancellation: %s", after.Stops[0].Status)
	}
	history, err := svc.Lifecycle().GetHistory(ctx, load.ID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if last := history[len(history)-1]; last.Type != models.EventException {
		t.Fatalf("last event must remain the cancellation, got %s", last.Type)
	}

	// Same for delivered loads.
	delivered := deliverLoad(t, stg, svc, testLoadSpec(1000), time.Now().UTC())
	_, err = svc.Lifecycle().RecordArrival(ctx, delivered.ID, 0, nil, "driver")
	if !errors.Is(err, apperrors.ErrTerminalLoad) {
		t.Fatalf("expected ErrTerminalLoad after delivery, got %v", err)
	}
}

func TestCancelRejectedAfterDelivery(t *testing.T) {
	stg, svc := newTestEnv(t)
	load := deliverLoad(t, stg, svc, testLoadSpec(1000), time.Now().UTC())

	_, err := svc.Lifecycle().Transition(context.Background(), load.ID, models.StatusCancelled, "dispatcher")
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDeleteLoad(t *testing.T) {
	_, svc := newTestEnv(t)
	ctx := context.Background()

	load, err := svc.Lifecycle().CreateLoad(ctx, testLoadSpec(1000))
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	if err := svc.Lifecycle().DeleteLoad(ctx, load.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Lifecycle().GetLoad(ctx, load.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Lifecycle().DeleteLoad(ctx, load.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}
