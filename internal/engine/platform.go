package engine

import (
	"time"

	"gcfflasher/internal/logx"
)

// EventSink is how a Platform implementation feeds the engine. Platform
// implementations must only ever call these two methods to report activity;
// they must never touch engine state directly. This keeps the engine's
// state handlers single-threaded even though I/O happens on other
// goroutines (see DESIGN.md, "Concurrency mapping").
type EventSink interface {
	// Received delivers raw bytes read from the transport.
	Received(data []byte)
	// PostEvent delivers a non-data event (timer fired, disconnect, ...).
	PostEvent(kind Kind)
}

// DeviceInfo describes one enumerated candidate device.
type DeviceInfo struct {
	Name   string
	Serial string
	// Path is the OS's native device node, e.g. /dev/ttyACM0.
	Path string
	// StablePath survives re-enumeration (udev's /dev/serial/by-id symlink
	// on Linux); equal to Path where the OS has no such scheme.
	StablePath string
}

// Platform is the hardware/OS abstraction the engine drives. Callers
// construct one concrete Platform and Bind it to an EventSink before calling
// Engine.Run; there is no package-level state.
type Platform interface {
	// Bind registers the sink that Connect/serial-read/timer goroutines
	// report back to. Must be called exactly once before any other method.
	Bind(sink EventSink)

	// Connect opens devPath for communication. Idempotent: calling it while
	// already connected to the same path is a no-op success.
	Connect(devPath string) error
	// Disconnect closes the current connection, if any.
	Disconnect()
	// Write sends data over the open connection.
	Write(data []byte) error

	// SetTimeout arms a single-shot timer that fires a Timeout event after d.
	// Arming a new timeout implicitly clears any previously armed one.
	SetTimeout(d time.Duration)
	// ClearTimeout disarms the current timer, if any, without firing it.
	ClearTimeout()

	// MSleep blocks the calling goroutine for d. Used only by state handlers
	// that must pace themselves between transport operations.
	MSleep(d time.Duration)
	// Time returns a monotonically increasing clock reading used for the
	// global retry deadline.
	Time() time.Time

	// ResetFTDI bit-bangs a ConBee I into its bootloader via its FTDI chip.
	ResetFTDI() error
	// ResetGPIO toggles the RaspBee I/II reset line via GPIO.
	ResetGPIO() error

	// EnumerateDevices lists connected candidate devices.
	EnumerateDevices() ([]DeviceInfo, error)

	// Printf writes a leveled console message. All engine output goes
	// through this; the engine holds no logger of its own.
	Printf(level logx.Level, format string, args ...interface{})

	// Shutdown tells the engine's caller no further work is possible; the
	// engine will stop consuming events after observing it.
	Shutdown()
}
