// SPDX-License-Identifier: Unlicense OR MIT

// Package backend defines the contract between the public surf API and the
// platform context layers (EGL, WGL, CGL, software). Each platform package
// implements these interfaces and registers a Backend from an init function;
// the surf package drives every native operation through them and never
// touches platform types directly.
package backend

import "image"

// AdapterKind classifies the device an adapter exposes.
type AdapterKind uint8

const (
	AdapterHardware AdapterKind = iota
	AdapterLowPower
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

// AdapterInfo describes one adapter of an open Display. It is a plain
// value; opening the device it names is a separate, fallible step.
type AdapterInfo struct {
	Kind    AdapterKind
	Name    string
	Backend string
	// Ordinal is the backend-private adapter index.
	Ordinal int
}

// Config carries the context attributes a caller requested, already
// normalized by the surf package. Backends translate it to their native
// attribute lists and must not relax it silently: a Config that cannot be
// satisfied exactly or better fails context creation.
type Config struct {
	GLMajor, GLMinor int
	ColorBits        int
	DepthBits        int
	StencilBits      int
	Samples          int
}

// Capabilities reports what a Device can create. The surf package checks
// every Config against it before asking the backend for a context, so
// backends may assume Configs they see have already passed validation.
type Capabilities struct {
	MaxGLMajor, MaxGLMinor int
	// MaxSamples is the largest usable multisample count, 1 when
	// multisampling is unavailable.
	MaxSamples int
	// WindowSurfaces reports whether widget surfaces can be created.
	WindowSurfaces bool
	// Software reports a CPU rasterizer.
	Software bool
}

// Backend creates Displays for one platform context API. The surf package
// registers the backends for each OS with Register and tries them in
// priority order.
type Backend interface {
	// Name returns the backend name, e.g. "egl". It must not require
	// the backend to be opened.
	Name() string

	// Open connects to the platform display. nativeDisplay is an
	// optional caller-owned display handle (X11 Display*, EGLDisplay,
	// HDC, 0 for the platform default). Open reports
	// ErrPlatformUnavailable when the API is missing on this machine.
	Open(nativeDisplay uintptr) (Display, error)
}

// Display is an open connection to a platform's display system. All
// Devices created from one Display share its lifetime; Close invalidates
// them.
type Display interface {
	// Adapters enumerates the adapters reachable through this display.
	// The slice is never empty and is owned by the caller.
	Adapters() []AdapterInfo

	// OpenDevice opens the device an AdapterInfo names.
	OpenDevice(info AdapterInfo) (Device, error)

	// Close releases the display connection. Callers must destroy all
	// Devices first.
	Close() error
}

// Device is an open logical device. One Device owns one sharing group:
// every Context it creates shares object names with the others.
//
// Devices are driven under the surf package's locking and thread rules.
// MakeCurrent, ReleaseCurrent, SwapGenericSurface and ReadSurface are
// called on the thread the surf package selected; a Device only needs to
// keep its own native current-context bookkeeping consistent.
type Device interface {
	Capabilities() Capabilities

	// CreateContext creates a context with the given attributes inside
	// this device's sharing group.
	CreateContext(cfg Config) (Context, error)

	// DestroyContext destroys a context that is not current anywhere.
	DestroyContext(ctx Context) error

	// CreateWindowSurface wraps a caller-owned native widget handle
	// (HWND, ANativeWindow*, NSView*, X11 Window) in a presentable
	// surface compatible with ctx.
	CreateWindowSurface(ctx Context, widget uintptr) (Surface, error)

	// CreateGenericSurface allocates an offscreen, double-buffered
	// surface of the given pixel size, compatible with ctx.
	CreateGenericSurface(ctx Context, size image.Point) (Surface, error)

	// DestroySurface releases a surface's native storage.
	DestroySurface(s Surface) error

	// MakeCurrent binds ctx to the calling OS thread with s as its
	// render target. s may be nil for a surfaceless binding.
	MakeCurrent(ctx Context, s Surface) error

	// ReleaseCurrent unbinds whatever context this device holds current
	// on the calling OS thread.
	ReleaseCurrent() error

	// PresentWindowSurface hands the widget surface's back buffer to
	// the platform presentation engine. ctx must be current.
	PresentWindowSurface(ctx Context, s Surface) error

	// SwapGenericSurface rotates a generic surface's buffers. ctx must
	// be current with s bound.
	SwapGenericSurface(ctx Context, s Surface) error

	// ResizeSurface reallocates s to the new size. The surface keeps
	// its identity; its content becomes undefined.
	ResizeSurface(ctx Context, s Surface, size image.Point) error

	// CreateSurfaceTexture exposes the front buffer of an unattached
	// generic surface as a texture usable from ctx.
	CreateSurfaceTexture(ctx Context, s Surface) (Texture, error)

	// DestroySurfaceTexture ends a texture borrow created by
	// CreateSurfaceTexture.
	DestroySurfaceTexture(ctx Context, t Texture) error

	// ReadSurface copies the front buffer of a generic surface into an
	// RGBA image. It may make an internal context current and restores
	// the calling thread's previous binding before returning.
	ReadSurface(s Surface) (*image.RGBA, error)

	// Destroy releases the device. The surf package guarantees no
	// contexts or surfaces remain.
	Destroy() error
}

// Context is a backend context handle. The surf package treats it as
// opaque apart from the created version.
type Context interface {
	// GLVersion reports the version the driver actually created, which
	// may exceed the requested one.
	GLVersion() (major, minor int)
}

// Surface is a backend surface handle.
type Surface interface {
	// Size returns the current pixel size of the surface's buffers.
	Size() image.Point
}

// Texture is a borrowed front buffer exposed for sampling.
type Texture interface {
	// GLTexture returns the texture name and target, both 0 for
	// backends without GL objects.
	GLTexture() (name, target uint32)
}
