package pubsub

import "testing"

func TestTopicConstructors(t *testing.T) {
	if got := DriverTopic(7); got != "driver:7:location" {
		t.Fatalf("DriverTopic(7) = %q", got)
	}
	if got := ShipmentTopic(42); got != "shipment:42:location" {
		t.Fatalf("ShipmentTopic(42) = %q", got)
	}
}

func TestTopicParse(t *testing.T) {
	cases := []struct {
		in   Topic
		kind string
		id   int64
		ok   bool
	}{
		{"driver:7:location", KindDriver, 7, true},
		{"shipment:42:location", KindShipment, 42, true},
		{"driver:7:status", "", 0, false},
		{"driver:abc:location", "", 0, false},
		{"order:7:location", "", 0, false},
		{"driver:7", "", 0, false},
		{"", "", 0, false},
	}
	for _, c := range cases {
		kind, id, ok := c.in.Parse()
		if ok != c.ok || kind != c.kind || id != c.id {
			t.Fatalf("Parse(%q) = (%q, %d, %v), want (%q, %d, %v)", c.in, kind, id, ok, c.kind, c.id, c.ok)
		}
	}
}

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, topic Topic
		capture        string
		ok             bool
	}{
		{"driver:*:location", "driver:7:location", "7", true},
		{"shipment:*:location", "shipment:42:location", "42", true},
		{"driver:*:location", "shipment:7:location", "", false},
		{"driver:*:location", "driver:7:status", "", false},
		{"driver:*:location", "driver:7", "", false},
		{"driver:7:location", "driver:7:location", "", true},
	}
	for _, c := range cases {
		capture, ok := Match(c.pattern, c.topic)
		if ok != c.ok || capture != c.capture {
			t.Fatalf("Match(%q, %q) = (%q, %v), want (%q, %v)", c.pattern, c.topic, capture, ok, c.capture, c.ok)
		}
	}
}

func TestRoutingKeyRoundTrip(t *testing.T) {
	top := DriverTopic(7)
	if got := routingKey(top); got != "driver.7.location" {
		t.Fatalf("routingKey = %q", got)
	}
	if got := topicFromRoutingKey(routingKey(top)); got != top {
		t.Fatalf("round trip = %q", got)
	}
	if got := routingKey(DriverPattern); got != "driver.*.location" {
		t.Fatalf("pattern routing key = %q", got)
	}
}
