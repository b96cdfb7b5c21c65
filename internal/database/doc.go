// Package database provides the SQLite persistence of the inspection
// capture server.
//
// It stores:
//   - Photos accepted by the upload sink, ordered per slot, with soft
//     deletion so positions can be renumbered
//   - Telemetry entries forwarded by capture agents, in arrival order
//   - Key/value metadata such as the telemetry view offset
//
// The database uses WAL mode for concurrent reads and creates or migrates
// its schema on open.
package database
