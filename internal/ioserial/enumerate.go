package ioserial

import (
	"os"
	"path/filepath"
	"runtime"

	"go.bug.st/serial/enumerator"

	"gcfflasher/internal/engine"
)

// EnumerateDevices implements engine.Platform. The enumerator provides the
// USB serial number where the OS exposes one; on Linux the stable path is
// resolved through udev's /dev/serial/by-id symlinks so the listing stays
// valid across re-plugs.
func (t *Transport) EnumerateDevices() ([]engine.DeviceInfo, error) {
	byID := stablePathsByTarget()

	if ports, err := enumerator.GetDetailedPortsList(); err == nil && len(ports) > 0 {
		out := make([]engine.DeviceInfo, 0, len(ports))
		for _, p := range ports {
			if p == nil || p.Name == "" {
				continue
			}
			info := engine.DeviceInfo{
				Name:       engine.ClassifyPath(p.Name).String(),
				Serial:     p.SerialNumber,
				Path:       p.Name,
				StablePath: p.Name,
			}
			if stable, ok := byID[p.Name]; ok {
				info.StablePath = stable
			}
			out = append(out, info)
		}
		return out, nil
	}

	ports := ListPorts()
	out := make([]engine.DeviceInfo, 0, len(ports))
	for _, p := range ports {
		info := engine.DeviceInfo{
			Name:       engine.ClassifyPath(p).String(),
			Path:       p,
			StablePath: p,
		}
		if stable, ok := byID[p]; ok {
			info.StablePath = stable
		}
		out = append(out, info)
	}
	return out, nil
}

// stablePathsByTarget maps native device nodes to their /dev/serial/by-id
// symlinks. Empty everywhere but Linux.
func stablePathsByTarget() map[string]string {
	if runtime.GOOS != "linux" {
		return nil
	}
	links, _ := filepath.Glob("/dev/serial/by-id/*")
	if len(links) == 0 {
		return nil
	}
	out := make(map[string]string, len(links))
	for _, link := range links {
		target, err := filepath.EvalSymlinks(link)
		if err != nil {
			continue
		}
		if _, err := os.Stat(target); err != nil {
			continue
		}
		out[target] = link
	}
	return out
}
