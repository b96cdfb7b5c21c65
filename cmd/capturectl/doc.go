// Package main provides capturectl, the field agent of the inspection
// capture system.
//
// capturectl runs the same pipeline a technician's browser runs: files are
// validated, HEIC photos are converted with libvips, images are normalized
// into a bounding box and uploaded to a storage server. Every attempt is
// recorded in a telemetry log that is forwarded to the server.
//
// # Commands
//
//   - upload: feed local files through the picker path
//   - capture: open a capture session on a directory-backed camera rig,
//     falling back to the picker when no camera is available
//   - list: show the photos stored for one or all slots
//   - delete: remove a photo by its 0-based position in a slot
//   - probe: print the capability report and the server's classification
//   - report: print or clear the server's upload debug log
//   - slots: list the inspection slots
//   - version: print build information
//
// # Configuration
//
// Settings come from a YAML profile (--profile, or capturectl.yaml in the
// user config directory), then CAPTURE_* environment variables, optionally
// from a .env file in the working directory, then the --server flag. See
// [inspection-capture/internal/startup.LoadAgentConfig] for the keys.
//
// # Camera Rigs
//
// A camera rig is a directory with one sub-directory per device. The newest
// image in a device directory is its live frame, and a .torch file marks a
// device with a flash.
package main
