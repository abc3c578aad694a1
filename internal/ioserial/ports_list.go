package ioserial

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"go.bug.st/serial/enumerator"

	"gcfflasher/internal/engine"
)

// ListPorts returns candidate serial ports, ordered so the most likely
// flashing targets come first: USB-attached ConBee paths ahead of the
// Raspberry Pi's fixed UARTs, which exist whether or not a RaspBee sits on
// the header, and unclassifiable ports last.
func ListPorts() []string {
	ports := enumeratedPorts()
	if len(ports) == 0 {
		ports = globbedPorts()
	}
	sort.Strings(ports)
	sort.SliceStable(ports, func(i, j int) bool {
		return pathRank(ports[i]) < pathRank(ports[j])
	})
	return ports
}

// pathRank orders ports by how likely their device kind is to be a
// flashable target.
func pathRank(path string) int {
	switch engine.ClassifyPath(path) {
	case engine.ConBee2:
		return 0
	case engine.ConBee1:
		return 1
	case engine.RaspBee1, engine.RaspBee2:
		return 2
	}
	return 3
}

// enumeratedPorts asks the OS for its serial port list, de-duplicated.
func enumeratedPorts() []string {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ports))
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if p == nil || p.Name == "" {
			continue
		}
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		out = append(out, p.Name)
	}
	return out
}

// globbedPorts scans the device paths the supported hardware shows up
// under, for when the enumerator comes back empty. Windows has no path
// scheme to glob; AutoDetectPort probes COM ports directly there.
func globbedPorts() []string {
	switch runtime.GOOS {
	case "windows":
		return nil
	case "darwin":
		return listByGlob("/dev/cu.usbmodem*", "/dev/cu.usbserial*", "/dev/tty.usbmodem*", "/dev/tty.usbserial*")
	default:
		return listByGlob("/dev/ttyACM*", "/dev/ttyUSB*", "/dev/ttyAMA*", "/dev/ttyS*")
	}
}

// listByGlob expands filesystem glob patterns into a de-duplicated list.
func listByGlob(patterns ...string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 16)
	for _, pat := range patterns {
		matches, _ := filepath.Glob(pat)
		for _, m := range matches {
			if _, err := os.Stat(m); err != nil {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
