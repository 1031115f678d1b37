// Package memory provides an in-memory IStorage used by tests and by
// projection rebuild experiments. It mirrors the postgres backend's
// semantics, including compare-and-update failures, but holds everything
// behind one mutex.
package memory

import (
	"sync"
	"time"

	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

type db struct {
	mu          sync.Mutex
	loads       map[string]*models.Load
	events      map[string][]*models.TrackingEvent
	drivers     map[int64]*models.Driver
	vehicles    map[int64]*models.Vehicle
	loadNumbers map[string]string

	nextDriverID  int64
	nextVehicleID int64

	// commitHook, when set, runs after a transition is staged and before it
	// commits. Tests inject failures here to exercise write atomicity.
	commitHook func() error
}

type Store struct {
	data     *db
	log      logger.ILogger
	notifier storage.IChangeNotifier
}

func New(log logger.ILogger, notifier storage.IChangeNotifier) *Store {
	return &Store{
		data: &db{
			loads:       make(map[string]*models.Load),
			events:      make(map[string][]*models.TrackingEvent),
			drivers:     make(map[int64]*models.Driver),
			vehicles:    make(map[int64]*models.Vehicle),
			loadNumbers: make(map[string]string),
		},
		log:      log,
		notifier: notifier,
	}
}

func (s *Store) Load() storage.ILoadStorage   { return &loadStore{data: s.data, notifier: s.notifier} }
func (s *Store) Event() storage.IEventStorage { return &eventStore{data: s.data} }
func (s *Store) Fleet() storage.IFleetStorage { return &fleetStore{data: s.data} }
func (s *Store) Close()                       {}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneLoad(l *models.Load) *models.Load {
	cp := *l
	cp.ActualPickupTime = cloneTime(l.ActualPickupTime)
	cp.ActualDeliveryTime = cloneTime(l.ActualDeliveryTime)
	cp.DriverID = cloneInt64(l.DriverID)
	cp.VehicleID = cloneInt64(l.VehicleID)
	cp.Stops = make([]models.Stop, len(l.Stops))
	for i, st := range l.Stops {
		cp.Stops[i] = st
		cp.Stops[i].ArrivedAt = cloneTime(st.ArrivedAt)
		cp.Stops[i].DepartedAt = cloneTime(st.DepartedAt)
	}
	if l.POD != nil {
		pod := *l.POD
		pod.SignatureRef = cloneString(l.POD.SignatureRef)
		pod.PhotoRef = cloneString(l.POD.PhotoRef)
		cp.POD = &pod
	}
	return &cp
}

func cloneEvent(e *models.TrackingEvent) *models.TrackingEvent {
	cp := *e
	if e.Location != nil {
		loc := *e.Location
		cp.Location = &loc
	}
	return &cp
}
