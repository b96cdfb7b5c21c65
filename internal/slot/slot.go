// Package slot defines the closed set of vehicle inspection photo positions.
package slot

import (
	"fmt"
	"strings"
)

// Slot is one physical inspection location a photo is captured for.
type Slot string

const (
	FrontLeftTire  Slot = "front-left-tire"
	FrontRightTire Slot = "front-right-tire"
	RearLeftTire   Slot = "rear-left-tire"
	RearRightTire  Slot = "rear-right-tire"
	SpareTire      Slot = "spare-tire"
	Undercarriage  Slot = "undercarriage"
	TPMSPlacard    Slot = "tpms-placard"
	DashLights     Slot = "dash-lights"
	Odometer       Slot = "odometer"
	VIN            Slot = "vin"
	Front          Slot = "front"
	Rear           Slot = "rear"
	DriverSide     Slot = "driver-side"
	PassengerSide  Slot = "passenger-side"
	EngineBay      Slot = "engine-bay"
	Interior       Slot = "interior"
)

// Info describes a slot for the capture UI.
type Info struct {
	Slot  Slot   `json:"slot"`
	Label string `json:"label"`
	Guide bool   `json:"guide"`
}

var catalog = []Info{
	{FrontLeftTire, "Front left tire", true},
	{FrontRightTire, "Front right tire", true},
	{RearLeftTire, "Rear left tire", true},
	{RearRightTire, "Rear right tire", true},
	{SpareTire, "Spare tire", true},
	{Undercarriage, "Undercarriage", false},
	{TPMSPlacard, "TPMS placard", true},
	{DashLights, "Dash lights", false},
	{Odometer, "Odometer", false},
	{VIN, "VIN plate", true},
	{Front, "Front", false},
	{Rear, "Rear", false},
	{DriverSide, "Driver side", false},
	{PassengerSide, "Passenger side", false},
	{EngineBay, "Engine bay", false},
	{Interior, "Interior", false},
}

var index = func() map[Slot]Info {
	m := make(map[Slot]Info, len(catalog))
	for _, info := range catalog {
		m[info.Slot] = info
	}
	return m
}()

// All returns the slot catalogue in display order.
func All() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Parse validates a slot name. Matching is case-insensitive.
func Parse(name string) (Slot, error) {
	s := Slot(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := index[s]; !ok {
		return "", fmt.Errorf("unknown capture slot %q", name)
	}
	return s, nil
}

// Valid reports whether s is part of the catalogue.
func (s Slot) Valid() bool {
	_, ok := index[s]
	return ok
}

// ShowsGuide reports whether the capture preview overlays an alignment guide.
func (s Slot) ShowsGuide() bool {
	return index[s].Guide
}

// IsTire reports whether the slot is one of the tire positions. Tire slots
// get their own picker entry point.
func (s Slot) IsTire() bool {
	return strings.HasSuffix(string(s), "-tire")
}

// Label returns the human readable name, or the raw value for unknown slots.
func (s Slot) Label() string {
	if info, ok := index[s]; ok {
		return info.Label
	}
	return string(s)
}

func (s Slot) String() string {
	return string(s)
}
