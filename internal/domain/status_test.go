package domain

import "testing"

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses() {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	for _, s := range []Status{"", "lost", "IN_TRANSIT"} {
		if s.Valid() {
			t.Fatalf("%q should not be valid", s)
		}
	}
}

func TestLocationRelevant(t *testing.T) {
	want := map[Status]bool{
		StatusPending:   false,
		StatusAssigned:  true,
		StatusInTransit: true,
		StatusDelivered: false,
		StatusCancelled: false,
	}
	for s, w := range want {
		if got := s.LocationRelevant(); got != w {
			t.Fatalf("%s.LocationRelevant() = %v, want %v", s, got, w)
		}
	}
	if len(ActiveStatuses()) != 2 {
		t.Fatalf("ActiveStatuses() = %v", ActiveStatuses())
	}
}
