// Package pubsub implements the topic-addressed publish channel that
// decouples location ingestion from realtime broadcast.
//
// # Overview
//
// Topics follow a fixed colon-delimited grammar:
//
//	driver:<driverId>:location
//	shipment:<shipmentId>:location
//
// and subscriptions may use a single wildcard segment, for example
// driver:*:location, with the captured segment extractable from the
// concrete topic of each delivery.
//
// Two Bus implementations are provided. MemoryBus is in-process and serves
// single-process deployments and tests. AMQPBus rides a RabbitMQ topic
// exchange so that the ingestion process and the broadcast process can
// scale independently; colon topics are mapped to dot routing keys at the
// adapter boundary.
//
// # Failure contract
//
// Publish is fire-and-forget. A sample's durability never depends on the
// availability of the realtime subscribers: when the transport is down or
// slow, Publish logs, counts a drop, and returns — it never propagates an
// error into the write path.
package pubsub
