// Package config loads process configuration from a JSON file with a
// TRACKD_* environment overlay. Flags applied by the CLI win over both.
package config
