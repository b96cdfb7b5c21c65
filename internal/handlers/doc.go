// Package handlers provides the HTTP API of the photo storage server.
//
// It includes handlers for:
//   - Photo upload, listing, download and deletion per inspection slot
//   - Telemetry ingestion, reporting and clearing
//   - Capability probing of the calling browser and the slot catalogue
//   - Health checks and version information
package handlers
