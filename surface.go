// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"image"

	"github.com/go-surf/surf/internal/backend"
)

// NativeWidget is an externally owned native window handle: an HWND on
// Windows, an NSView pointer on macOS, a wl_surface or X11 window on
// Linux, an ANativeWindow on Android. surf never creates, resizes or
// destroys the window behind it; the windowing collaborator that supplied
// the handle keeps ownership and must keep it alive while any widget
// surface wraps it.
type NativeWidget uintptr

// SurfaceType selects the variant CreateSurface builds. The two
// implementations are WidgetSurface and GenericSurface.
type SurfaceType interface {
	surfaceType()
}

// WidgetSurface requests a surface presented into an external native
// window. Swapping it hands the back buffer to the platform's
// presentation engine and may block on vsync.
type WidgetSurface struct {
	Widget NativeWidget
}

// GenericSurface requests an off-screen surface of the given pixel size.
// It is double buffered internally; swapping rotates the buffers without
// presenting anywhere.
type GenericSurface struct {
	Size image.Point
}

func (WidgetSurface) surfaceType()  {}
func (GenericSurface) surfaceType() {}

// Surface is a renderable backing store owned by a Device. A surface is
// attached to at most one context at a time; attachment is a relation, not
// ownership, so destroying the context leaves the surface alive and
// unattached.
type Surface struct {
	id     uint64
	dev    *Device
	bs     backend.Surface
	widget bool

	// The fields below are guarded by dev.mu.
	attachedTo *Context
	borrowedBy *SurfaceTexture
	generation uint64
	destroyed  bool
}

// ID returns the device-unique surface id.
func (s *Surface) ID() uint64 { return s.id }

// IsWidget reports whether the surface presents into a native window.
func (s *Surface) IsWidget() bool { return s.widget }

// Size returns the current pixel size of the surface, or the zero point
// after the surface is destroyed.
func (s *Surface) Size() image.Point {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if s.destroyed {
		return image.Point{}
	}
	return s.bs.Size()
}

// Context returns the context the surface is attached to, or nil.
func (s *Surface) Context() *Context {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	return s.attachedTo
}
