// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-surf/surf/internal/backend"
)

// Connection is an open handle to the platform's display system and the
// root of all adapter enumeration. It outlives every Adapter and Device
// derived from it; Close releases the underlying display connections.
//
// A Connection is safe for concurrent use.
type Connection struct {
	mu       sync.Mutex
	closed   bool
	displays []openDisplay
	adapters []Adapter
}

// openDisplay pairs a registered backend with the display it opened.
type openDisplay struct {
	backend backend.Backend
	display backend.Display
}

// Connect opens a connection to the platform's default display. Every
// registered backend is tried in priority order and all that succeed
// contribute adapters, so a machine without a working GPU driver still
// connects and exposes the software adapter.
//
// Connect fails with ErrPlatformUnavailable only when no backend opens,
// which cannot happen in builds that include the software backend.
func Connect() (*Connection, error) {
	return ConnectWithNativeDisplay(0)
}

// ConnectWithNativeDisplay is Connect with a caller-owned native display
// handle (an X11 Display*, EGLDisplay or similar) passed through to the
// platform backends. The handle must stay valid for the lifetime of the
// Connection; 0 selects the platform default.
func ConnectWithNativeDisplay(nativeDisplay uintptr) (*Connection, error) {
	conn := new(Connection)
	var errs []error
	for _, b := range backend.List() {
		disp, err := b.Open(nativeDisplay)
		if err != nil {
			backend.Logger().Debug("surf: backend did not open", "backend", b.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		backend.Logger().Info("surf: backend opened", "backend", b.Name())
		conn.displays = append(conn.displays, openDisplay{backend: b, display: disp})
	}
	if len(conn.displays) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrPlatformUnavailable, errors.Join(errs...))
	}
	for _, od := range conn.displays {
		for _, info := range od.display.Adapters() {
			conn.adapters = append(conn.adapters, Adapter{
				conn: conn,
				disp: od.display,
				info: info,
			})
		}
	}
	return conn, nil
}

// Backend returns the name of the highest-priority backend that opened,
// for diagnostics only.
func (c *Connection) Backend() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.displays) == 0 {
		return ""
	}
	return c.displays[0].backend.Name()
}

// EnumerateAdapters returns all adapters reachable through the connection,
// best first. The software adapter is always last and always present.
func (c *Connection) EnumerateAdapters() ([]Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}
	out := make([]Adapter, len(c.adapters))
	copy(out, c.adapters)
	return out, nil
}

// DefaultAdapter returns the adapter Connect considers best, which is the
// first adapter of the highest-priority backend.
func (c *Connection) DefaultAdapter() (Adapter, error) {
	return c.adapterWhere(func(Adapter) bool { return true })
}

// HardwareAdapter returns the first GPU-backed adapter.
func (c *Connection) HardwareAdapter() (Adapter, error) {
	return c.adapterWhere(func(a Adapter) bool { return a.Kind() == AdapterHardware })
}

// LowPowerAdapter returns an adapter that favors battery life. When the
// platform does not distinguish one, the first hardware adapter is
// returned instead.
func (c *Connection) LowPowerAdapter() (Adapter, error) {
	a, err := c.adapterWhere(func(a Adapter) bool { return a.Kind() == AdapterLowPower })
	if err == nil {
		return a, nil
	}
	return c.HardwareAdapter()
}

// SoftwareAdapter returns the CPU rasterizer adapter. It is present on
// every connection.
func (c *Connection) SoftwareAdapter() (Adapter, error) {
	return c.adapterWhere(func(a Adapter) bool { return a.Kind() == AdapterSoftware })
}

func (c *Connection) adapterWhere(ok func(Adapter) bool) (Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Adapter{}, ErrConnectionClosed
	}
	for _, a := range c.adapters {
		if ok(a) {
			return a, nil
		}
	}
	return Adapter{}, ErrNoAdapter
}

// CreateDevice opens the logical device an adapter names and establishes
// its sharing group. The adapter must come from this connection.
func (c *Connection) CreateDevice(a Adapter) (*Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}
	if a.conn != c {
		return nil, fmt.Errorf("surf: adapter does not belong to this connection: %w", ErrDeviceCreationFailed)
	}
	bd, err := a.disp.OpenDevice(a.info)
	if err != nil {
		return nil, err
	}
	backend.Logger().Info("surf: device opened", "adapter", a.Name(), "backend", a.Backend())
	return newDevice(c, a, bd), nil
}

// Close releases the display connections. Devices created from the
// connection must be destroyed first; adapters become unusable. Close is
// idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var err error
	for i := len(c.displays) - 1; i >= 0; i-- {
		if cerr := c.displays[i].display.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	c.displays = nil
	c.adapters = nil
	return err
}
