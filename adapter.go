// SPDX-License-Identifier: Unlicense OR MIT

package surf

import "github.com/go-surf/surf/internal/backend"

// AdapterKind classifies the device behind an adapter.
type AdapterKind uint8

const (
	// AdapterHardware is a discrete or integrated GPU.
	AdapterHardware AdapterKind = iota
	// AdapterLowPower is a GPU the platform marks as battery-friendly,
	// usually the integrated one on dual-GPU machines.
	AdapterLowPower
	// AdapterSoftware is a CPU rasterizer.
	AdapterSoftware
)

func (k AdapterKind) String() string {
	switch k {
	case AdapterHardware:
		return "hardware"
	case AdapterLowPower:
		return "low-power"
	case AdapterSoftware:
		return "software"
	}
	return "unknown"
}

// Adapter identifies a selectable GPU or rasterizer reachable through a
// Connection. Adapters are cheap values; copying one does not copy any
// native resource. An Adapter stays valid until its Connection is closed.
type Adapter struct {
	conn *Connection
	disp backend.Display
	info backend.AdapterInfo
}

// Kind reports what kind of device the adapter selects.
func (a Adapter) Kind() AdapterKind {
	switch a.info.Kind {
	case backend.AdapterLowPower:
		return AdapterLowPower
	case backend.AdapterSoftware:
		return AdapterSoftware
	default:
		return AdapterHardware
	}
}

// Name returns the adapter's human-readable name.
func (a Adapter) Name() string { return a.info.Name }

// Backend returns the name of the backend that exposes the adapter, for
// diagnostics only.
func (a Adapter) Backend() string { return a.info.Backend }
