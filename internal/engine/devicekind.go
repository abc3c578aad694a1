package engine

import (
	"fmt"
	"strings"
)

// DeviceKind identifies which bootloader family a device path belongs to.
type DeviceKind int

const (
	Unknown DeviceKind = iota
	RaspBee1
	RaspBee2
	ConBee1
	ConBee2
)

// String implements fmt.Stringer.
func (k DeviceKind) String() string {
	switch k {
	case RaspBee1:
		return "RaspBee1"
	case RaspBee2:
		return "RaspBee2"
	case ConBee1:
		return "ConBee1"
	case ConBee2:
		return "ConBee2"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ClassifyPath guesses a device's kind from substrings of its OS device
// path: there is no portable way to query a bootloader's hardware family
// before it is connected to, so the path itself (assigned by udev/driver
// naming conventions) is the only signal available up front.
func ClassifyPath(devPath string) DeviceKind {
	switch {
	case strings.Contains(devPath, "ttyACM"),
		strings.Contains(devPath, "ConBee_II"),
		strings.Contains(devPath, "cu.usbmodemDE"):
		return ConBee2
	case strings.Contains(devPath, "ttyUSB"),
		strings.Contains(devPath, "usb-FTDI"),
		strings.Contains(devPath, "cu.usbserial"):
		return ConBee1
	case strings.Contains(devPath, "ttyAMA"),
		strings.Contains(devPath, "ttyS"),
		strings.Contains(devPath, "/serial"):
		return RaspBee1
	default:
		return Unknown
	}
}

// RefineWithFirmwareVersion reclassifies a RaspBee1 guess to RaspBee2 when
// the firmware file to be flashed targets the R21 platform: the RaspBee1/2
// device paths look identical, so the platform bits of the GCF file's
// version are the deciding signal.
func RefineWithFirmwareVersion(kind DeviceKind, isR21Platform bool) DeviceKind {
	if kind == RaspBee1 && isR21Platform {
		return RaspBee2
	}
	return kind
}
