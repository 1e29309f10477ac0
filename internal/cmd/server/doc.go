// Package serverrun wires configuration, storage, the publish channel,
// the services and the HTTP surface into a running trackd server.
package serverrun
