package pubsub

import (
	"strconv"
	"strings"
)

// Topic is a colon-delimited address on the publish channel:
// kind:id:location with kind in {driver, shipment}.
type Topic string

// Topic kinds
const (
	KindDriver   = "driver"
	KindShipment = "shipment"
)

const locationSuffix = "location"

// DriverTopic returns driver:<driverId>:location.
func DriverTopic(driverID int64) Topic {
	return Topic(KindDriver + ":" + strconv.FormatInt(driverID, 10) + ":" + locationSuffix)
}

// ShipmentTopic returns shipment:<shipmentId>:location.
func ShipmentTopic(shipmentID int64) Topic {
	return Topic(KindShipment + ":" + strconv.FormatInt(shipmentID, 10) + ":" + locationSuffix)
}

// DriverPattern matches every driver location topic.
const DriverPattern = Topic("driver:*:location")

// ShipmentPattern matches every shipment location topic.
const ShipmentPattern = Topic("shipment:*:location")

// Parse splits a topic into kind and id. ok is false when the topic does
// not follow the kind:id:location grammar.
func (t Topic) Parse() (kind string, id int64, ok bool) {
	parts := strings.Split(string(t), ":")
	if len(parts) != 3 || parts[2] != locationSuffix {
		return "", 0, false
	}
	if parts[0] != KindDriver && parts[0] != KindShipment {
		return "", 0, false
	}
	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return parts[0], n, true
}

// Match tests topic against a pattern that may contain single-segment "*"
// wildcards. It returns the first wildcard-captured segment. The grammar is
// deliberately not a general glob: segment counts must be equal and "*"
// spans exactly one segment, which keeps matching cheap and unambiguous.
func Match(pattern, topic Topic) (capture string, ok bool) {
	ps := strings.Split(string(pattern), ":")
	ts := strings.Split(string(topic), ":")
	if len(ps) != len(ts) {
		return "", false
	}
	for i, p := range ps {
		if p == "*" {
			if capture == "" {
				capture = ts[i]
			}
			continue
		}
		if p != ts[i] {
			return "", false
		}
	}
	return capture, true
}
