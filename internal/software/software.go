// SPDX-License-Identifier: Unlicense OR MIT

// Package software implements the backend contract without any GPU. It
// backs surfaces with plain image.RGBA buffers, so every machine has at
// least one working adapter and lifecycle semantics stay testable without
// a display server or driver.
package software

import (
	"fmt"
	"image"

	"github.com/go-surf/surf/internal/backend"
)

// Backend is the software rasterizer backend. The surf package registers
// it on every platform at the lowest priority, so its adapter comes after
// every hardware adapter and remains available when they all fail.
type Backend struct{}

func (Backend) Name() string { return "software" }

func (Backend) Open(nativeDisplay uintptr) (backend.Display, error) {
	// No platform connection to make; a native display handle has no
	// meaning here and is ignored.
	return new(Display), nil
}

// Display is the software display. It exposes exactly one adapter.
type Display struct {
	closed bool
}

func (d *Display) Adapters() []backend.AdapterInfo {
	return []backend.AdapterInfo{{
		Kind:    backend.AdapterSoftware,
		Name:    "surf software rasterizer",
		Backend: "software",
	}}
}

func (d *Display) OpenDevice(info backend.AdapterInfo) (backend.Device, error) {
	if d.closed {
		return nil, fmt.Errorf("software: display closed: %w", backend.ErrDeviceCreationFailed)
	}
	if info.Kind != backend.AdapterSoftware {
		return nil, fmt.Errorf("software: unknown adapter %q: %w", info.Name, backend.ErrDeviceCreationFailed)
	}
	return new(Device), nil
}

func (d *Display) Close() error {
	d.closed = true
	return nil
}

// Device implements the backend device on the CPU. It has no native
// current-context state; thread bookkeeping is entirely the caller's.
type Device struct{}

func (d *Device) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		MaxGLMajor:     0,
		MaxGLMinor:     0,
		MaxSamples:     1,
		WindowSurfaces: false,
		Software:       true,
	}
}

func (d *Device) CreateContext(cfg backend.Config) (backend.Context, error) {
	if cfg.GLMajor != 0 {
		return nil, fmt.Errorf("software: no GL %d.%d support: %w",
			cfg.GLMajor, cfg.GLMinor, backend.ErrContextCreationFailed)
	}
	return new(Context), nil
}

func (d *Device) DestroyContext(ctx backend.Context) error {
	return nil
}

func (d *Device) CreateWindowSurface(ctx backend.Context, widget uintptr) (backend.Surface, error) {
	return nil, fmt.Errorf("software: widget surfaces unsupported: %w", backend.ErrSurfaceCreationFailed)
}

func (d *Device) CreateGenericSurface(ctx backend.Context, size image.Point) (backend.Surface, error) {
	return newSurface(size), nil
}

func (d *Device) DestroySurface(s backend.Surface) error {
	sur := s.(*Surface)
	sur.mu.Lock()
	sur.front, sur.back = nil, nil
	sur.mu.Unlock()
	return nil
}

func (d *Device) MakeCurrent(ctx backend.Context, s backend.Surface) error {
	return nil
}

func (d *Device) ReleaseCurrent() error {
	return nil
}

func (d *Device) PresentWindowSurface(ctx backend.Context, s backend.Surface) error {
	return fmt.Errorf("software: widget surfaces unsupported: %w", backend.ErrPresentFailed)
}

func (d *Device) SwapGenericSurface(ctx backend.Context, s backend.Surface) error {
	s.(*Surface).swap()
	return nil
}

func (d *Device) ResizeSurface(ctx backend.Context, s backend.Surface, size image.Point) error {
	s.(*Surface).resize(size)
	return nil
}

func (d *Device) CreateSurfaceTexture(ctx backend.Context, s backend.Surface) (backend.Texture, error) {
	return s.(*Surface).exportFront(), nil
}

func (d *Device) DestroySurfaceTexture(ctx backend.Context, t backend.Texture) error {
	t.(*Texture).img = nil
	return nil
}

func (d *Device) ReadSurface(s backend.Surface) (*image.RGBA, error) {
	return s.(*Surface).snapshot(), nil
}

func (d *Device) Destroy() error {
	return nil
}

// Context is a software context. There is no driver state behind it; it
// exists so contexts keep their identity through the lifecycle.
type Context struct{}

func (c *Context) GLVersion() (major, minor int) { return 0, 0 }
