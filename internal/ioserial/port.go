package ioserial

import (
	"fmt"
	"runtime"
	"time"

	"github.com/tarm/serial"

	"gcfflasher/internal/engine"
)

// AutoDetectPort picks a device path when the user didn't pass -d: the
// first enumerated port that classifies as a known device kind. ListPorts
// already orders candidates so USB-attached ConBee paths come before the
// Pi's fixed UARTs.
//
// The V1/V3 bootloader protocols can't be probed with a one-shot version
// command before committing to a port: dialect detection happens inside the
// engine itself once connected, so AutoDetectPort only narrows the
// candidate list by path classification.
func AutoDetectPort() (string, engine.DeviceKind, []string) {
	trace := make([]string, 0, 8)
	ports := ListPorts()
	trace = append(trace, fmt.Sprintf("enumerated %d ports: %v", len(ports), ports))

	for _, p := range ports {
		if kind := engine.ClassifyPath(p); kind != engine.Unknown {
			return p, kind, trace
		}
	}

	// Windows device names carry no hardware hints to classify by; probe
	// COM ports directly and take the first one that opens.
	if runtime.GOOS == "windows" {
		trace = append(trace, "no classifiable port; scanning COM1..COM64")
		for i := 1; i <= 64; i++ {
			name := fmt.Sprintf("COM%d", i)
			p, err := serial.OpenPort(&serial.Config{Name: name, Baud: 38400, ReadTimeout: 50 * time.Millisecond})
			if err != nil {
				continue
			}
			_ = p.Close()
			trace = append(trace, fmt.Sprintf("%s opened, using it", name))
			return name, engine.Unknown, trace
		}
	}

	return "", engine.Unknown, trace
}
