// Package capability detects the capturing browser family and the features
// the capture pipeline depends on.
package capability

import (
	"net/http"
	"strconv"
	"strings"

	"inspection-capture/internal/logging"
)

// Browser is a coarse browser family derived from the user agent.
type Browser string

const (
	SafariIOS     Browser = "Safari-iOS"
	SafariDesktop Browser = "Safari-Desktop"
	Chrome        Browser = "Chrome"
	Firefox       Browser = "Firefox"
	Unknown       Browser = "Unknown"
)

// IsSafari reports whether b is either Safari family.
func (b Browser) IsSafari() bool {
	return b == SafariIOS || b == SafariDesktop
}

// ClassifyBrowser maps a user agent to a Browser. The Safari checks run
// first because Chrome's agent string also names Safari.
func ClassifyBrowser(ua string) Browser {
	safari := strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome")
	switch {
	case safari && (strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad")):
		return SafariIOS
	case safari && !strings.Contains(ua, "Mobile"):
		return SafariDesktop
	case strings.Contains(ua, "Chrome"):
		return Chrome
	case strings.Contains(ua, "Firefox"):
		return Firefox
	default:
		return Unknown
	}
}

// Report is a point-in-time snapshot of feature support. It is never cached;
// permissions can change mid-session.
type Report struct {
	FileInputSupported bool `json:"fileInputSupported"`
	CameraSupported    bool `json:"cameraSupported"`
	HEICSupported      bool `json:"heicSupported"`
	FileAPISupported   bool `json:"fileApiSupported"`
}

// Environment answers the individual feature checks. Implementations may
// panic; Probe treats that as "unsupported".
type Environment interface {
	UserAgent() string
	FileInput() bool
	Camera() bool
	HEICLibrary() bool
	FileAPI() bool
}

// Probe runs every feature check. It never panics: a failing detector only
// clears its own flag.
func Probe(env Environment) Report {
	if env == nil {
		return Report{}
	}
	report := Report{
		FileInputSupported: detect("file-input", env.FileInput),
		CameraSupported:    detect("camera", env.Camera),
		HEICSupported:      detect("heic", env.HEICLibrary),
		FileAPISupported:   detect("file-api", env.FileAPI),
	}
	logging.Debug("Capability probe: %+v", report)
	return report
}

// BrowserOf classifies env's user agent, returning Unknown if the agent
// cannot be read.
func BrowserOf(env Environment) (b Browser) {
	defer func() {
		if r := recover(); r != nil {
			logging.Debug("User agent lookup failed: %v", r)
			b = Unknown
		}
	}()
	if env == nil {
		return Unknown
	}
	return ClassifyBrowser(env.UserAgent())
}

func detect(name string, check func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Debug("Capability check %s failed: %v", name, r)
			ok = false
		}
	}()
	return check()
}

// StaticEnvironment answers from fixed values. HEIC, when set, is consulted
// on every probe so library availability is read live.
type StaticEnvironment struct {
	Agent        string
	HasFileInput bool
	HasCamera    func() bool
	HEIC         func() bool
	HasFileAPI   bool
}

func (e StaticEnvironment) UserAgent() string { return e.Agent }
func (e StaticEnvironment) FileInput() bool   { return e.HasFileInput }
func (e StaticEnvironment) FileAPI() bool     { return e.HasFileAPI }

func (e StaticEnvironment) Camera() bool {
	return e.HasCamera != nil && e.HasCamera()
}

func (e StaticEnvironment) HEICLibrary() bool {
	return e.HEIC != nil && e.HEIC()
}

// Client hint headers sent by the capture front-end.
const (
	HeaderFileInput = "X-Capture-File-Input"
	HeaderCamera    = "X-Capture-Camera"
	HeaderHEIC      = "X-Capture-Heic"
	HeaderFileAPI   = "X-Capture-File-Api"
)

// RequestEnvironment reads the user agent and client hints of an HTTP
// request. Missing or malformed hints count as unsupported.
type RequestEnvironment struct {
	r *http.Request
}

// FromRequest wraps r as an Environment.
func FromRequest(r *http.Request) RequestEnvironment {
	return RequestEnvironment{r: r}
}

func (e RequestEnvironment) UserAgent() string { return e.r.UserAgent() }
func (e RequestEnvironment) FileInput() bool   { return e.hint(HeaderFileInput) }
func (e RequestEnvironment) Camera() bool      { return e.hint(HeaderCamera) }
func (e RequestEnvironment) HEICLibrary() bool { return e.hint(HeaderHEIC) }
func (e RequestEnvironment) FileAPI() bool     { return e.hint(HeaderFileAPI) }

func (e RequestEnvironment) hint(name string) bool {
	v, err := strconv.ParseBool(e.r.Header.Get(name))
	return err == nil && v
}

// SetHints writes report as client hint headers on an outgoing request.
func SetHints(h http.Header, report Report) {
	h.Set(HeaderFileInput, strconv.FormatBool(report.FileInputSupported))
	h.Set(HeaderCamera, strconv.FormatBool(report.CameraSupported))
	h.Set(HeaderHEIC, strconv.FormatBool(report.HEICSupported))
	h.Set(HeaderFileAPI, strconv.FormatBool(report.FileAPISupported))
}
