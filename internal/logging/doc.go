// Package logging provides the leveled logger shared by the capture agent
// and the storage server.
//
// It supports the following log levels:
//   - DEBUG: Verbose pipeline tracing (per-attempt normalization, probe results)
//   - INFO: General operational messages
//   - WARN: Recoverable failures such as a retried normalization attempt
//   - ERROR: Terminal upload failures and server errors
//   - FATAL: Fatal errors that terminate the process
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true.
package logging
