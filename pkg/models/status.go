package models

type LoadStatus string

const (
	StatusPending         LoadStatus = "pending"
	StatusAssigned        LoadStatus = "assigned"
	StatusEnRoutePickup   LoadStatus = "en_route_pickup"
	StatusAtPickup        LoadStatus = "at_pickup"
	StatusLoaded          LoadStatus = "loaded"
	StatusEnRouteDelivery LoadStatus = "en_route_delivery"
	StatusAtDelivery      LoadStatus = "at_delivery"
	StatusDelivered       LoadStatus = "delivered"
	StatusCompleted       LoadStatus = "completed"
	StatusCancelled       LoadStatus = "cancelled"
)

// StatusOrder is the forward progression of a load. Every consumer
// (assignment availability, analytics, projections) must derive status
// ordering from this slice instead of keeping its own list.
var StatusOrder = []LoadStatus{
	StatusPending,
	StatusAssigned,
	StatusEnRoutePickup,
	StatusAtPickup,
	StatusLoaded,
	StatusEnRouteDelivery,
	StatusAtDelivery,
	StatusDelivered,
	StatusCompleted,
}

// ActiveStatuses are the statuses during which a load holds its driver and
// vehicle exclusively.
var ActiveStatuses = []LoadStatus{
	StatusAssigned,
	StatusEnRoutePickup,
	StatusAtPickup,
	StatusLoaded,
	StatusEnRouteDelivery,
	StatusAtDelivery,
}

// Rank returns the position of s in the forward order, or -1 for
// cancelled and unknown statuses.
func (s LoadStatus) Rank() int {
	for i, st := range StatusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s LoadStatus) Valid() bool {
	return s == StatusCancelled || s.Rank() >= 0
}

// IsTerminal reports whether no further transitions are accepted.
func (s LoadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether a load in this status counts against driver and
// vehicle availability.
func (s LoadStatus) IsActive() bool {
	for _, st := range ActiveStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanCancel reports whether the load may still be cancelled.
func (s LoadStatus) CanCancel() bool {
	return s != StatusDelivered && s != StatusCompleted && s != StatusCancelled
}

// CanTransition reports whether to is a legal single step from from.
// Forward steps advance exactly one position; cancelled is reachable from
// any state that has not delivered or completed. Backward steps are never
// legal here (unassignment bypasses the machine deliberately).
func CanTransition(from, to LoadStatus) bool {
	if to == StatusCancelled {
		return from.CanCancel()
	}
	fr, tr := from.Rank(), to.Rank()
	if fr < 0 || tr < 0 {
		return false
	}
	return tr == fr+1
}

// statusEvents maps each status to the event appended when a load enters it.
var statusEvents = map[LoadStatus]struct {
	Type        EventType
	Description string
}{
	StatusPending:         {EventCreated, "Load created and awaiting assignment"},
	StatusAssigned:        {EventDispatch, "Driver and vehicle assigned to load"},
	StatusEnRoutePickup:   {EventEnRoute, "Driver en route to pickup facility"},
	StatusAtPickup:        {EventArrival, "Driver arrived at pickup facility"},
	StatusLoaded:          {EventDeparture, "Freight loaded, departing pickup"},
	StatusEnRouteDelivery: {EventEnRoute, "En route to delivery facility"},
	StatusAtDelivery:      {EventArrival, "Arrived at delivery facility"},
	StatusDelivered:       {EventDelivered, "Load delivered"},
	StatusCompleted:       {EventCompleted, "Load completed and closed out"},
	StatusCancelled:       {EventException, "Load cancelled"},
}

// StatusEventType returns the tracking event type recorded when a load
// enters s.
func StatusEventType(s LoadStatus) EventType {
	if e, ok := statusEvents[s]; ok {
		return e.Type
	}
	return EventException
}

// StatusEventDescription returns the fixed description recorded when a load
// enters s.
func StatusEventDescription(s LoadStatus) string {
	if e, ok := statusEvents[s]; ok {
		return e.Description
	}
	return "Load status changed"
}
