// Package telemetry keeps the append-only debug log of upload attempts.
//
// Every attempt the upload orchestrator makes, successful or not, is
// recorded as an Entry holding a fresh capability snapshot, the browser
// family, the file metadata and the error text. Entries are never mutated or
// evicted; the log lives as long as the process. A View provides the
// operator "clear results" action without truncating the log itself.
//
// Exporters receive each recorded entry asynchronously. capturectl uses one
// to forward entries to the storage server, which persists them to SQLite.
package telemetry
