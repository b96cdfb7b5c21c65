// Package capture implements the camera dialog of the capture agent as a
// state machine over an abstract set of media devices.
//
// A Session moves Idle → Requesting → Previewing → Captured and back to
// Idle on Close. When the camera cannot be acquired it moves to Denied and,
// after FallbackDelay, opens the native picker instead. Close releases the
// active track exactly once from any state and never cancels an upload
// already handed to the Handler.
//
// DirRig is a directory-backed camera: every sub-directory of its root is
// one device and the newest image inside it is the live frame. PathPicker
// stands in for the native file picker.
package capture
