package models

import "testing"

func TestCanTransitionForwardSteps(t *testing.T) {
	for i := 0; i < len(StatusOrder)-1; i++ {
		from, to := StatusOrder[i], StatusOrder[i+1]
		if !CanTransition(from, to) {
			t.Errorf("expected %s -> %s to be legal", from, to)
		}
	}
}

func TestCanTransitionRejectsSkipsAndBackward(t *testing.T) {
	cases := []struct{ from, to LoadStatus }{
		{StatusPending, StatusEnRoutePickup}, // skips assigned
		{StatusAssigned, StatusLoaded},       // skips two states
		{StatusPending, StatusDelivered},
		{StatusLoaded, StatusAtPickup}, // backward
		{StatusDelivered, StatusAtDelivery},
		{StatusCompleted, StatusDelivered},
		{StatusCancelled, StatusPending},
		{StatusPending, LoadStatus("teleported")},
		{LoadStatus(""), StatusAssigned},
	}
	for _, c := range cases {
		if CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be illegal", c.from, c.to)
		}
	}
}

func TestCanTransitionCancel(t *testing.T) {
	cancellable := []LoadStatus{
		StatusPending, StatusAssigned, StatusEnRoutePickup, StatusAtPickup,
		StatusLoaded, StatusEnRouteDelivery, StatusAtDelivery,
	}
	for _, s := range cancellable {
		if !CanTransition(s, StatusCancelled) {
			t.Errorf("expected %s to be cancellable", s)
		}
	}
	for _, s := range []LoadStatus{StatusDelivered, StatusCompleted, StatusCancelled} {
		if CanTransition(s, StatusCancelled) {
			t.Errorf("expected %s to reject cancellation", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range StatusOrder {
		want := s == StatusCompleted
		if s.IsTerminal() != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, s.IsTerminal(), want)
		}
	}
	if !StatusCancelled.IsTerminal() {
		t.Error("cancelled must be terminal")
	}
}

func TestIsActive(t *testing.T) {
	active := map[LoadStatus]bool{
		StatusAssigned: true, StatusEnRoutePickup: true, StatusAtPickup: true,
		StatusLoaded: true, StatusEnRouteDelivery: true, StatusAtDelivery: true,
	}
	all := append(append([]LoadStatus{}, StatusOrder...), StatusCancelled)
	for _, s := range all {
		if s.IsActive() != active[s] {
			t.Errorf("IsActive(%s) = %v, want %v", s, s.IsActive(), active[s])
		}
	}
}

func TestRank(t *testing.T) {
	if StatusPending.Rank() != 0 {
		t.Errorf("pending rank = %d", StatusPending.Rank())
	}
	if StatusCompleted.Rank() != len(StatusOrder)-1 {
		t.Errorf("completed rank = %d", StatusCompleted.Rank())
	}
	if StatusCancelled.Rank() != -1 {
		t.Errorf("cancelled rank = %d", StatusCancelled.Rank())
	}
	if LoadStatus("bogus").Rank() != -1 {
		t.Error("unknown status must rank -1")
	}
}

func TestStatusEventMapping(t *testing.T) {
	all := append(append([]LoadStatus{}, StatusOrder...), StatusCancelled)
	for _, s := range all {
		if StatusEventType(s) == "" {
			t.Errorf("no event type for %s", s)
		}
		if StatusEventDescription(s) == "" {
			t.Errorf("no event description for %s", s)
		}
	}
	if StatusEventType(StatusDelivered) != EventDelivered {
		t.Error("delivered must map to the delivered event")
	}
	if StatusEventType(StatusCancelled) != EventException {
		t.Error("cancelled must map to the exception event")
	}
}
