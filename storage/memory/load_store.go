package memory

import (
	"context"
	"sort"
	"time"

	"freightdispatch/pkg/apperrors"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

type loadStore struct {
	data     *db
	notifier storage.IChangeNotifier
}

func (s *loadStore) notifyChanged(ctx context.Context, loadID string, status models.LoadStatus) {
	if s.notifier != nil {
		s.notifier.LoadChanged(ctx, loadID, status)
	}
}

func (s *loadStore) Create(ctx context.Context, load *models.Load, seed *models.TrackingEvent) (*models.Load, error) {
	s.data.mu.Lock()
	if _, exists := s.data.loadNumbers[load.LoadNumber]; exists {
		s.data.mu.Unlock()
		return nil, apperrors.Storage(errDuplicateNumber(load.LoadNumber))
	}
	stored := cloneLoad(load)
	s.data.loads[stored.ID] = stored
	s.data.loadNumbers[stored.LoadNumber] = stored.ID
	if seed != nil {
		seed.LoadID = stored.ID
		appendEventLocked(s.data, seed)
	}
	result := cloneLoad(stored)
	s.data.mu.Unlock()

	s.notifyChanged(ctx, result.ID, result.Status)
	return result, nil
}

func (s *loadStore) GetByID(ctx context.Context, id string) (*models.Load, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	l, ok := s.data.loads[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneLoad(l), nil
}

func (s *loadStore) GetByNumber(ctx context.Context, number string) (*models.Load, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	id, ok := s.data.loadNumbers[number]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneLoad(s.data.loads[id]), nil
}

func (s *loadStore) list(filter func(*models.Load) bool) []*models.Load {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	var loads []*models.Load
	for _, l := range s.data.loads {
		if filter == nil || filter(l) {
			loads = append(loads, cloneLoad(l))
		}
	}
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].CreatedAt.Before(loads[j].CreatedAt)
	})
	return loads
}

func (s *loadStore) GetAll(ctx context.Context) ([]*models.Load, error) {
	return s.list(nil), nil
}

func (s *loadStore) GetByStatus(ctx context.Context, status models.LoadStatus) ([]*models.Load, error) {
	return s.list(func(l *models.Load) bool { return l.Status == status }), nil
}

func (s *loadStore) GetPending(ctx context.Context) ([]*models.Load, error) {
	return s.GetByStatus(ctx, models.StatusPending)
}

func (s *loadStore) GetActive(ctx context.Context) ([]*models.Load, error) {
	return s.list(func(l *models.Load) bool { return l.Status.IsActive() }), nil
}

func (s *loadStore) GetCreatedBetween(ctx context.Context, from, to time.Time) ([]*models.Load, error) {
	return s.list(func(l *models.Load) bool {
		return !l.CreatedAt.Before(from) && l.CreatedAt.Before(to)
	}), nil
}

func (s *loadStore) GetDeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Load, error) {
	return s.list(func(l *models.Load) bool {
		t := l.ActualDeliveryTime
		return t != nil && !t.Before(from) && t.Before(to)
	}), nil
}

func (s *loadStore) CountByStatus(ctx context.Context) (map[models.LoadStatus]int, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	counts := make(map[models.LoadStatus]int)
	for _, l := range s.data.loads {
		counts[l.Status]++
	}
	return counts, nil
}

func (s *loadStore) ApplyTransition(ctx context.Context, loadID string, up storage.TransitionUpdate) (*models.Load, error) {
	result, err := s.applyTransition(loadID, up)
	if err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, result.ID, result.Status)
	return result, nil
}

func (s *loadStore) applyTransition(loadID string, up storage.TransitionUpdate) (*models.Load, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	l, ok := s.data.loads[loadID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if l.Status != up.FromStatus {
		return nil, apperrors.Wrapf(apperrors.ErrConcurrentModification,
			"load %s is %s, expected %s", loadID, l.Status, up.FromStatus)
	}

	// Stage the change on a copy so the status update and its event land
	// together or not at all.
	now := time.Now().UTC()
	next := cloneLoad(l)
	next.Status = up.ToStatus
	next.Version++
	next.UpdatedAt = now
	if up.ActualPickupTime != nil {
		next.ActualPickupTime = cloneTime(up.ActualPickupTime)
	}
	if up.ActualDeliveryTime != nil {
		next.ActualDeliveryTime = cloneTime(up.ActualDeliveryTime)
	}
	if up.ClearAssignment {
		next.DriverID = nil
		next.VehicleID = nil
	}
	if up.CompleteStop != nil {
		pos := *up.CompleteStop
		if pos >= 0 && pos < len(next.Stops) && next.Stops[pos].Status == models.StopStatusArrived {
			next.Stops[pos].Status = models.StopStatusCompleted
			if next.Stops[pos].DepartedAt == nil {
				next.Stops[pos].DepartedAt = &now
			}
		}
	}
	if up.POD != nil {
		pod := *up.POD
		pod.LoadID = loadID
		if pod.CreatedAt.IsZero() {
			pod.CreatedAt = now
		}
		next.POD = &pod
	}

	if s.data.commitHook != nil {
		if err := s.data.commitHook(); err != nil {
			return nil, apperrors.Storage(err)
		}
	}

	s.data.loads[loadID] = next
	ev := up.Event
	ev.LoadID = loadID
	appendEventLocked(s.data, &ev)

	return cloneLoad(next), nil
}

func (s *loadStore) AssignDriver(ctx context.Context, loadID string, driverID, vehicleID int64, event models.TrackingEvent) (*models.Load, error) {
	result, err := s.assignDriver(loadID, driverID, vehicleID, event)
	if err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, result.ID, result.Status)
	return result, nil
}

func (s *loadStore) assignDriver(loadID string, driverID, vehicleID int64, event models.TrackingEvent) (*models.Load, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	l, ok := s.data.loads[loadID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if l.Status != models.StatusPending {
		return nil, apperrors.Wrapf(apperrors.ErrAlreadyAssigned, "load %s is %s", loadID, l.Status)
	}
	if _, ok := s.data.drivers[driverID]; !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "driver %d", driverID)
	}
	if _, ok := s.data.vehicles[vehicleID]; !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "vehicle %d", vehicleID)
	}
	for _, other := range s.data.loads {
		if !other.Status.IsActive() {
			continue
		}
		if other.DriverID != nil && *other.DriverID == driverID {
			return nil, apperrors.Wrapf(apperrors.ErrDriverUnavailable, "driver %d has an active load", driverID)
		}
		if other.VehicleID != nil && *other.VehicleID == vehicleID {
			return nil, apperrors.Wrapf(apperrors.ErrVehicleUnavailable, "vehicle %d has an active load", vehicleID)
		}
	}

	now := time.Now().UTC()
	l.DriverID = &driverID
	l.VehicleID = &vehicleID
	l.Status = models.StatusAssigned
	l.Version++
	l.UpdatedAt = now

	event.LoadID = loadID
	appendEventLocked(s.data, &event)

	return cloneLoad(l), nil
}

func (s *loadStore) UpdateStop(ctx context.Context, loadID string, position int, up storage.StopUpdate) (*models.Load, error) {
	result, err := s.updateStop(loadID, position, up)
	if err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, result.ID, result.Status)
	return result, nil
}

func (s *loadStore) updateStop(loadID string, position int, up storage.StopUpdate) (*models.Load, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	l, ok := s.data.loads[loadID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if position < 0 || position >= len(l.Stops) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "load %s has no stop %d", loadID, position)
	}
	st := &l.Stops[position]
	if st.Status != up.FromStatus {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidStopState,
			"stop %d is %s, expected %s", position, st.Status, up.FromStatus)
	}

	st.Status = up.ToStatus
	if up.ArrivedAt != nil {
		st.ArrivedAt = cloneTime(up.ArrivedAt)
	}
	if up.DepartedAt != nil {
		st.DepartedAt = cloneTime(up.DepartedAt)
	}
	l.Version++
	l.UpdatedAt = time.Now().UTC()

	ev := up.Event
	ev.LoadID = loadID
	appendEventLocked(s.data, &ev)

	return cloneLoad(l), nil
}

func (s *loadStore) Delete(ctx context.Context, loadID string) error {
	s.data.mu.Lock()
	l, ok := s.data.loads[loadID]
	if !ok {
		s.data.mu.Unlock()
		return apperrors.ErrNotFound
	}
	delete(s.data.loadNumbers, l.LoadNumber)
	delete(s.data.loads, loadID)
	delete(s.data.events, loadID)
	s.data.mu.Unlock()

	if s.notifier != nil {
		s.notifier.LoadDeleted(ctx, loadID)
	}
	return nil
}

type errDuplicateNumber string

func (e errDuplicateNumber) Error() string {
	return "duplicate load number " + string(e)
}
