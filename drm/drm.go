// Package drm talks to the kernel's display subsystem: card nodes,
// connector scanning, scanout completion events and hotplug traffic.
// Buffer management and the actual mode commit live behind the renderer,
// this package only covers what the compositor core schedules against.
package drm

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// DeviceID identifies one card node for the lifetime of the process.
// It is the device number of the node, stable across re-opens
type DeviceID uint64

func (id DeviceID) String() string {
	return fmt.Sprintf("%d:%d", unix.Major(uint64(id)), unix.Minor(uint64(id)))
}

// ConnectorID is the kernel's id for a physical display port
type ConnectorID uint32

// CRTCID is the kernel's id for a display controller
// ("CRT Controller" is jargon for the pipeline stage that scans a
// framebuffer out to a connector)
type CRTCID uint32

// Mode is one display timing a connector advertises
type Mode struct {
	Name      string
	Width     int
	Height    int
	// Refresh rate in millihertz, following the wayland output convention
	RefreshMHz int
	Clock      int
	Preferred  bool
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%d", m.Width, m.Height, m.RefreshMHz)
}

// Duration is the time one frame stays on screen
func (m Mode) Duration() time.Duration {
	refresh := m.RefreshMHz
	if refresh <= 0 {
		refresh = 60_000
	}
	return time.Duration(float64(time.Second) * 1000.0 / float64(refresh))
}

// ThrottleDelay is how long an idle output waits before checking for
// damage again, roughly one refresh interval
func (m Mode) ThrottleDelay() time.Duration {
	refresh := m.RefreshMHz
	if refresh <= 0 {
		refresh = 60_000
	}
	return time.Duration(1_000_000/refresh) * time.Millisecond
}

// Connector is the scan result for one physical display port
type Connector struct {
	ID        ConnectorID
	Type      uint32
	TypeID    uint32
	Connected bool
	// Physical size in millimeters, zero when unknown
	MMWidth  int
	MMHeight int
	Modes    []Mode
	// The controller currently driving this connector, zero if none yet
	CRTC CRTCID
}

// Name builds the user visible connector name, "DP-1" style
func (c Connector) Name() string {
	return fmt.Sprintf("%s-%d", connectorTypeName(c.Type), c.TypeID)
}

// connectorTypeName maps the kernel connector type to its usual name
func connectorTypeName(t uint32) string {
	switch t {
	case 1:
		return "VGA"
	case 2:
		return "DVI-I"
	case 3:
		return "DVI-D"
	case 4:
		return "DVI-A"
	case 5:
		return "Composite"
	case 6:
		return "SVIDEO"
	case 7:
		return "LVDS"
	case 8:
		return "Component"
	case 9:
		return "DIN"
	case 10:
		return "DP"
	case 11:
		return "HDMI-A"
	case 12:
		return "HDMI-B"
	case 13:
		return "TV"
	case 14:
		return "eDP"
	case 15:
		return "Virtual"
	case 16:
		return "DSI"
	case 17:
		return "DPI"
	case 18:
		return "Writeback"
	case 19:
		return "SPI"
	case 20:
		return "USB"
	}
	return "Unknown"
}

// PickMode chooses the mode to light a connector up with: the one the
// display marks preferred, or the first advertised one
func PickMode(modes []Mode) (Mode, bool) {
	if len(modes) == 0 {
		return Mode{}, false
	}
	for _, m := range modes {
		if m.Preferred {
			return m, true
		}
	}
	return modes[0], true
}
