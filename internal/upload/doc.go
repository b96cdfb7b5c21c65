// Package upload sequences a candidate photo through validation, HEIC
// conversion, optional resolution normalization and the external upload
// sink.
//
// The Orchestrator never returns an error to its caller. Every failure is
// classified, recorded in the telemetry log and reported through the error
// callback. Failures on Safari-family browsers also raise a short-lived
// diagnostic banner, since that population produces the most opaque
// platform failures.
package upload
