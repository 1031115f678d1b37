package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"freightdispatch/pkg/apperrors"
	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

// LifecycleService owns the load status machine, the stop sub-state and the
// proof-of-delivery close-out. Every mutation re-reads the load, validates
// the step, and hands the storage layer a compare-and-update so a racing
// writer surfaces as ErrConcurrentModification instead of a lost update.
type LifecycleService interface {
	CreateLoad(ctx context.Context, spec models.LoadSpec) (*models.Load, error)
	GetLoad(ctx context.Context, loadID string) (*models.Load, error)
	GetHistory(ctx context.Context, loadID string) ([]*models.TrackingEvent, error)
	Transition(ctx context.Context, loadID string, target models.LoadStatus, actor string) (*models.Load, error)
	RecordArrival(ctx context.Context, loadID string, stopIndex int, location *models.GeoPoint, actor string) (*models.Load, error)
	RecordDeparture(ctx context.Context, loadID string, stopIndex int, actor string) (*models.Load, error)
	SubmitProofOfDelivery(ctx context.Context, loadID string, pod models.ProofOfDelivery) (*models.Load, error)
	DeleteLoad(ctx context.Context, loadID string) error
}

type lifecycleService struct {
	loads  storage.ILoadStorage
	events storage.IEventStorage
	log    logger.ILogger
}

func NewLifecycleService(stg storage.IStorage, log logger.ILogger) LifecycleService {
	return &lifecycleService{
		loads:  stg.Load(),
		events: stg.Event(),
		log:    log,
	}
}

func (s *lifecycleService) CreateLoad(ctx context.Context, spec models.LoadSpec) (*models.Load, error) {
	if len(spec.Stops) < 2 {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidLoadSpec, "need at least a pickup and a delivery stop, got %d", len(spec.Stops))
	}
	if spec.Stops[0].Type != models.StopTypePickup {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidLoadSpec, "first stop must be a pickup")
	}
	if spec.Stops[len(spec.Stops)-1].Type != models.StopTypeDelivery {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidLoadSpec, "last stop must be a delivery")
	}
	if spec.Rate.IsNegative() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidLoadSpec, "rate must not be negative")
	}

	now := time.Now().UTC()
	load := &models.Load{
		ID:            models.NewLoadID(),
		LoadNumber:    models.NewLoadNumber(now),
		Commodity:     spec.Commodity,
		WeightLbs:     spec.WeightLbs,
		EquipmentType: spec.EquipmentType,
		Rate:          spec.Rate,
		PickupDate:    spec.PickupDate,
		DeliveryDate:  spec.DeliveryDate,
		Status:        models.StatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, ss := range spec.Stops {
		load.Stops = append(load.Stops, models.Stop{
			LoadID:       load.ID,
			Position:     i,
			Type:         ss.Type,
			FacilityName: ss.FacilityName,
			Address:      ss.Address,
			Location:     ss.Location,
			ScheduledAt:  ss.ScheduledAt,
			Status:       models.StopStatusPending,
		})
	}

	seed := &models.TrackingEvent{
		Type:        models.StatusEventType(models.StatusPending),
		Description: models.StatusEventDescription(models.StatusPending),
		Author:      "system",
		Automatic:   true,
	}

	created, err := s.loads.Create(ctx, load, seed)
	if err != nil {
		return nil, err
	}
	s.log.Info("load created",
		logger.String("load_id", created.ID),
		logger.String("load_number", created.LoadNumber))
	return created, nil
}

func (s *lifecycleService) GetLoad(ctx context.Context, loadID string) (*models.Load, error) {
	return s.loads.GetByID(ctx, loadID)
}

func (s *lifecycleService) GetHistory(ctx context.Context, loadID string) ([]*models.TrackingEvent, error) {
	if _, err := s.loads.GetByID(ctx, loadID); err != nil {
		return nil, err
	}
	return s.events.GetByLoad(ctx, loadID)
}

func (s *lifecycleService) Transition(ctx context.Context, loadID string, target models.LoadStatus, actor string) (*models.Load, error) {
	load, err := s.loads.GetByID(ctx, loadID)
	if err != nil {
		return nil, err
	}

	// Delivered is only reachable through SubmitProofOfDelivery.
	if target == models.StatusDelivered {
		return nil, apperrors.Wrapf(apperrors.ErrMissingProofOfDelivery,
			"load %s requires a proof of delivery to reach delivered", loadID)
	}
	if !models.CanTransition(load.Status, target) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidTransition,
			"load %s cannot move from %s to %s", loadID, load.Status, target)
	}

	up := storage.TransitionUpdate{
		FromStatus: load.Status,
		ToStatus:   target,
		Event: models.TrackingEvent{
			Type:        models.StatusEventType(target),
			Description: models.StatusEventDescription(target),
			Author:      actor,
			Automatic:   true,
		},
	}
	if target == models.StatusLoaded {
		now := time.Now().UTC()
		origin := 0
		up.ActualPickupTime = &now
		up.CompleteStop = &origin
	}

	updated, err := s.loads.ApplyTransition(ctx, loadID, up)
	if err != nil {
		return nil, err
	}
	s.log.Info("load status changed",
		logger.String("load_id", loadID),
		logger.String("from", string(load.Status)),
		logger.String("to", string(target)),
		logger.String("actor", actor))
	return updated, nil
}

func (s *lifecycleService) RecordArrival(ctx context.Context, loadID string, stopIndex int, location *models.GeoPoint, actor string) (*models.Load, error) {
	load, err := s.loads.GetByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if load.Status == models.StatusDelivered || load.Status.IsTerminal() {
		return nil, apperrors.Wrapf(apperrors.ErrTerminalLoad, "load %s is %s", loadID, load.Status)
	}
	stop, err := stopAt(load, stopIndex)
	if err != nil {
		return nil, err
	}
	if stop.Status != models.StopStatusPending {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidStopState,
			"stop %d is %s, arrival requires pending", stopIndex, stop.Status)
	}

	now := time.Now().UTC()
	up := storage.StopUpdate{
		FromStatus: models.StopStatusPending,
		ToStatus:   models.StopStatusArrived,
		ArrivedAt:  &now,
		Event: models.TrackingEvent{
			Type:        models.EventArrival,
			Description: fmt.Sprintf("Arrived at %s", stopLabel(stop)),
			Location:    location,
			Author:      actor,
		},
	}
	return s.loads.UpdateStop(ctx, loadID, stopIndex, up)
}

func (s *lifecycleService) RecordDeparture(ctx context.Context, loadID string, stopIndex int, actor string) (*models.Load, error) {
	load, err := s.loads.GetByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if load.Status == models.StatusDelivered || load.Status.IsTerminal() {
		return nil, apperrors.Wrapf(apperrors.ErrTerminalLoad, "load %s is %s", loadID, load.Status)
	}
	stop, err := stopAt(load, stopIndex)
	if err != nil {
		return nil, err
	}
	if stop.Status != models.StopStatusArrived {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidStopState,
			"stop %d is %s, departure requires arrived", stopIndex, stop.Status)
	}

	now := time.Now().UTC()
	up := storage.StopUpdate{
		FromStatus: models.StopStatusArrived,
		ToStatus:   models.StopStatusCompleted,
		DepartedAt: &now,
		Event: models.TrackingEvent{
			Type:        models.EventDeparture,
			Description: fmt.Sprintf("Departed %s", stopLabel(stop)),
			Author:      actor,
		},
	}
	return s.loads.UpdateStop(ctx, loadID, stopIndex, up)
}

func (s *lifecycleService) SubmitProofOfDelivery(ctx context.Context, loadID string, pod models.ProofOfDelivery) (*models.Load, error) {
	load, err := s.loads.GetByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if load.Status == models.StatusDelivered || load.Status.IsTerminal() {
		return nil, apperrors.Wrapf(apperrors.ErrTerminalLoad, "load %s is %s", loadID, load.Status)
	}
	if !models.CanTransition(load.Status, models.StatusDelivered) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidTransition,
			"load %s cannot move from %s to %s", loadID, load.Status, models.StatusDelivered)
	}

	terminal := load.TerminalStop()
	if terminal == nil || terminal.Status == models.StopStatusPending {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidStopState,
			"terminal stop must be arrived or completed before delivery")
	}
	for _, st := range load.Stops[:len(load.Stops)-1] {
		if st.Status == models.StopStatusPending {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidStopState,
				"stop %d is still pending", st.Position)
		}
	}

	if pod.ID == "" {
		pod.ID = uuid.NewString()
	}
	if pod.DeliveredAt.IsZero() {
		pod.DeliveredAt = time.Now().UTC()
	}
	pod.LoadID = loadID

	terminalPos := terminal.Position
	up := storage.TransitionUpdate{
		FromStatus:         load.Status,
		ToStatus:           models.StatusDelivered,
		ActualDeliveryTime: &pod.DeliveredAt,
		CompleteStop:       &terminalPos,
		POD:                &pod,
		Event: models.TrackingEvent{
			Type:        models.EventDelivered,
			Description: models.StatusEventDescription(models.StatusDelivered),
			Author:      pod.SignerName,
			// User-attested, so deliberately not marked automatic.
			Automatic: false,
		},
	}

	updated, err := s.loads.ApplyTransition(ctx, loadID, up)
	if err != nil {
		return nil, err
	}
	s.log.Info("proof of delivery accepted",
		logger.String("load_id", loadID),
		logger.String("signer", pod.SignerName))
	return updated, nil
}

func (s *lifecycleService) DeleteLoad(ctx context.Context, loadID string) error {
	if err := s.loads.Delete(ctx, loadID); err != nil {
		return err
	}
	s.log.Warning("load hard-deleted", logger.String("load_id", loadID))
	return nil
}

func stopAt(load *models.Load, index int) (*models.Stop, error) {
	if index < 0 || index >= len(load.Stops) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "load %s has no stop %d", load.ID, index)
	}
	return &load.Stops[index], nil
}

func stopLabel(stop *models.Stop) string {
	if stop.FacilityName != "" {
		return stop.FacilityName
	}
	return fmt.Sprintf("stop %d", stop.Position)
}
