package engine

import (
	"os"
	"runtime"
	"strings"

	"datmo-go/internal/model"
)

// CaptureHardwareInfo snapshots the host the engine runs on. Environment
// hashes intentionally capture the build host, not the container runtime.
func CaptureHardwareInfo() model.HardwareInfo {
	node, _ := os.Hostname()
	return model.HardwareInfo{
		System:    runtime.GOOS,
		Node:      node,
		Release:   kernelRelease(),
		Machine:   runtime.GOARCH,
		Processor: runtime.GOARCH,
	}
}

func kernelRelease() string {
	// Best effort; empty on platforms without procfs.
	data, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
