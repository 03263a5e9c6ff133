// Package platformctx describes the device the validation core is
// running on, for use by device registration (spec §4.5,
// RegisterDevice) and diagnostic logging.
package platformctx

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"
)

// Info identifies the device and platform for LSD device registration
// requests, which carry an id and a human-readable name for the
// device being registered.
type Info struct {
	DeviceID   string
	DeviceName string
	OS         string
	Arch       string
}

// Detect builds an Info from the running host. deviceID should be a
// stable identifier persisted by the caller across runs; if empty, a
// fresh random one is generated (and should be persisted by the
// caller from then on).
func Detect(deviceID string) Info {
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	name := fmt.Sprintf("%s device", runtime.GOOS)
	if hi, err := host.Info(); err == nil && hi.Hostname != "" {
		name = hi.Hostname
	}

	return Info{
		DeviceID:   deviceID,
		DeviceName: name,
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}
