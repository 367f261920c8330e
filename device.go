// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"fmt"
	"image"
	"sync"

	"github.com/go-surf/surf/internal/backend"
)

// Device is an open logical GPU device bound to one Adapter. It owns one
// sharing group: every Context and Surface it creates may reference the
// others' GPU resources, and nothing outside the device may.
//
// A Device is safe for concurrent use. Operations that need a context
// current run on the calling OS thread and check thread affinity instead
// of serializing callers.
type Device struct {
	conn    *Connection
	adapter Adapter
	bd      backend.Device
	caps    backend.Capabilities

	mu        sync.Mutex
	destroyed bool
	nextID    uint64
	contexts  map[*Context]struct{}
	surfaces  map[*Surface]struct{}
	// current maps OS thread ids to the context current there.
	current map[uint64]*Context
}

func newDevice(conn *Connection, a Adapter, bd backend.Device) *Device {
	return &Device{
		conn:     conn,
		adapter:  a,
		bd:       bd,
		caps:     bd.Capabilities(),
		nextID:   1,
		contexts: make(map[*Context]struct{}),
		surfaces: make(map[*Surface]struct{}),
		current:  make(map[uint64]*Context),
	}
}

// Adapter returns the adapter the device was created from.
func (d *Device) Adapter() Adapter { return d.adapter }

// Capabilities reports what the device can create. CreateContext validates
// every descriptor against it before reaching the driver.
func (d *Device) Capabilities() Capabilities {
	return capabilitiesFromBackend(d.caps)
}

// CreateContext creates a rendering context in the device's sharing group.
// The descriptor is validated first; combinations the adapter cannot
// represent fail with ErrUnsupportedConfig before any native call.
func (d *Device) CreateContext(desc ContextDescriptor) (*Context, error) {
	cfg, err := desc.validate(d.caps)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	bc, err := d.bd.CreateContext(cfg)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		id:   d.newID(),
		dev:  d,
		bc:   bc,
		desc: desc,
	}
	d.contexts[ctx] = struct{}{}
	backend.Logger().Debug("surf: context created", "id", ctx.id, "descriptor", desc)
	return ctx, nil
}

// DestroyContext destroys a context. The context must not be current on
// any thread; release it first so failure causes stay attributable. A
// surface attached to it is detached, not destroyed.
func (d *Device) DestroyContext(ctx *Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validContext(ctx); err != nil {
		return err
	}
	if ctx.state == contextCurrent {
		return fmt.Errorf("surf: release the context before destroying it: %w", ErrContextStillCurrent)
	}
	if err := d.bd.DestroyContext(ctx.bc); err != nil {
		return err
	}
	if s := ctx.attached; s != nil {
		s.attachedTo = nil
		ctx.attached = nil
	}
	ctx.state = contextDestroyed
	delete(d.contexts, ctx)
	backend.Logger().Debug("surf: context destroyed", "id", ctx.id)
	return nil
}

// CreateSurface creates a surface compatible with ctx. WidgetSurface wraps
// an externally owned native window; GenericSurface allocates off-screen,
// double-buffered storage and requires a positive size.
func (d *Device) CreateSurface(ctx *Context, typ SurfaceType) (*Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validContext(ctx); err != nil {
		return nil, err
	}
	var (
		bs     backend.Surface
		widget bool
		err    error
	)
	switch t := typ.(type) {
	case GenericSurface:
		if t.Size.X <= 0 || t.Size.Y <= 0 {
			return nil, fmt.Errorf("surf: generic surface size %v: %w", t.Size, ErrInvalidSize)
		}
		bs, err = d.bd.CreateGenericSurface(ctx.bc, t.Size)
	case WidgetSurface:
		if t.Widget == 0 {
			return nil, fmt.Errorf("surf: nil native widget: %w", ErrSurfaceCreationFailed)
		}
		if !d.caps.WindowSurfaces {
			return nil, fmt.Errorf("surf: adapter %q cannot present to widgets: %w",
				d.adapter.Name(), ErrSurfaceCreationFailed)
		}
		widget = true
		bs, err = d.bd.CreateWindowSurface(ctx.bc, uintptr(t.Widget))
	case nil:
		return nil, fmt.Errorf("surf: nil surface type: %w", ErrInvalidSurfaceType)
	default:
		return nil, fmt.Errorf("surf: unknown surface type %T: %w", typ, ErrInvalidSurfaceType)
	}
	if err != nil {
		return nil, err
	}
	s := &Surface{
		id:     d.newID(),
		dev:    d,
		bs:     bs,
		widget: widget,
	}
	d.surfaces[s] = struct{}{}
	backend.Logger().Debug("surf: surface created", "id", s.id, "widget", widget, "size", bs.Size())
	return s, nil
}

// DestroySurface releases a surface's backing storage. The surface must be
// unattached and not exported as a texture.
func (d *Device) DestroySurface(s *Surface) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validSurface(s); err != nil {
		return err
	}
	if s.attachedTo != nil {
		return fmt.Errorf("surf: surface is attached to a context: %w", ErrSurfaceInUse)
	}
	if s.borrowedBy != nil {
		return fmt.Errorf("surf: surface is exported as a texture: %w", ErrSurfaceInUse)
	}
	if err := d.bd.DestroySurface(s.bs); err != nil {
		return err
	}
	s.destroyed = true
	delete(d.surfaces, s)
	backend.Logger().Debug("surf: surface destroyed", "id", s.id)
	return nil
}

// MakeContextCurrent makes ctx current on the calling OS thread, binding
// the attached surface as its render target. A context current on another
// thread fails with ErrContextNotThreadSafe and stays where it is. Making
// a different context current on this thread releases the previous one,
// mirroring what the native APIs do.
//
// The calling goroutine must be pinned with runtime.LockOSThread for as
// long as the context is current.
func (d *Device) MakeContextCurrent(ctx *Context) error {
	tid := currentThreadID()
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validContext(ctx); err != nil {
		return err
	}
	if ctx.state == contextCurrent {
		if ctx.tid != tid {
			return fmt.Errorf("surf: context %d is current on thread %d: %w",
				ctx.id, ctx.tid, ErrContextNotThreadSafe)
		}
		return nil
	}
	var bs backend.Surface
	if ctx.attached != nil {
		bs = ctx.attached.bs
	}
	if err := d.bd.MakeCurrent(ctx.bc, bs); err != nil {
		return err
	}
	if prev := d.current[tid]; prev != nil && prev != ctx {
		prev.state = contextNotCurrent
		prev.tid = 0
	}
	d.current[tid] = ctx
	ctx.state = contextCurrent
	ctx.tid = tid
	return nil
}

// ReleaseContextCurrent releases ctx from the calling OS thread so it can
// be made current elsewhere or destroyed. Releasing a context that is not
// current is a no-op; releasing one owned by another thread fails.
func (d *Device) ReleaseContextCurrent(ctx *Context) error {
	tid := currentThreadID()
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validContext(ctx); err != nil {
		return err
	}
	if ctx.state != contextCurrent {
		return nil
	}
	if ctx.tid != tid {
		return fmt.Errorf("surf: context %d is current on thread %d: %w",
			ctx.id, ctx.tid, ErrContextNotThreadSafe)
	}
	if err := d.bd.ReleaseCurrent(); err != nil {
		return err
	}
	delete(d.current, tid)
	ctx.state = contextNotCurrent
	ctx.tid = 0
	return nil
}

// BindSurfaceToContext attaches s to ctx as its render target. Both must
// belong to this device's sharing group. A surface attached to another
// context must be unbound there first; a surface exported as a texture
// cannot be attached at all. Binding the attached surface again is a
// no-op.
//
// If ctx is current on the calling thread the new target takes effect
// immediately; if it is current on another thread the bind fails instead
// of touching that thread's state.
func (d *Device) BindSurfaceToContext(ctx *Context, s *Surface) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validContext(ctx); err != nil {
		return err
	}
	if err := d.validSurface(s); err != nil {
		return err
	}
	if s.attachedTo == ctx {
		return nil
	}
	if s.borrowedBy != nil {
		return fmt.Errorf("surf: surface is exported as a texture: %w", ErrSurfaceInUse)
	}
	if s.attachedTo != nil {
		return fmt.Errorf("surf: surface %d is attached to context %d: %w",
			s.id, s.attachedTo.id, ErrAlreadyAttached)
	}
	if ctx.attached != nil {
		return fmt.Errorf("surf: context %d already has surface %d attached: %w",
			ctx.id, ctx.attached.id, ErrAlreadyAttached)
	}
	if ctx.state == contextCurrent {
		if ctx.tid != currentThreadID() {
			return fmt.Errorf("surf: context %d is current on thread %d: %w",
				ctx.id, ctx.tid, ErrContextNotThreadSafe)
		}
		if err := d.bd.MakeCurrent(ctx.bc, s.bs); err != nil {
			return err
		}
	}
	s.attachedTo = ctx
	ctx.attached = s
	return nil
}

// UnbindSurfaceFromContext detaches and returns the surface attached to
// ctx. It returns (nil, nil) when nothing is attached. If ctx is current
// on the calling thread it keeps a surfaceless binding; rendering needs a
// new surface bound first.
func (d *Device) UnbindSurfaceFromContext(ctx *Context) (*Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validContext(ctx); err != nil {
		return nil, err
	}
	s := ctx.attached
	if s == nil {
		return nil, nil
	}
	if ctx.state == contextCurrent {
		if ctx.tid != currentThreadID() {
			return nil, fmt.Errorf("surf: context %d is current on thread %d: %w",
				ctx.id, ctx.tid, ErrContextNotThreadSafe)
		}
		if err := d.bd.MakeCurrent(ctx.bc, nil); err != nil {
			return nil, err
		}
	}
	s.attachedTo = nil
	ctx.attached = nil
	return s, nil
}

// SwapSurface publishes the back buffer of s. Widget surfaces present to
// their window, passing any vsync block through to the caller; generic
// surfaces rotate front and back without presenting. The surface must be
// attached to ctx and ctx must be current on the calling thread.
func (d *Device) SwapSurface(ctx *Context, s *Surface) error {
	tid := currentThreadID()
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validContext(ctx); err != nil {
		return err
	}
	if err := d.validSurface(s); err != nil {
		return err
	}
	if s.attachedTo != ctx {
		return fmt.Errorf("surf: surface %d is not attached to context %d: %w",
			s.id, ctx.id, ErrPresentFailed)
	}
	if ctx.state != contextCurrent || ctx.tid != tid {
		return fmt.Errorf("surf: context %d is not current on this thread: %w",
			ctx.id, ErrPresentFailed)
	}
	if s.widget {
		return d.bd.PresentWindowSurface(ctx.bc, s.bs)
	}
	return d.bd.SwapGenericSurface(ctx.bc, s.bs)
}

// ResizeSurface reallocates the surface's backing storage to size. The
// content becomes undefined and outstanding SurfaceTextures derived from
// the old storage are invalidated; they still must be destroyed to end
// their borrow.
func (d *Device) ResizeSurface(s *Surface, size image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validSurface(s); err != nil {
		return err
	}
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("surf: resize to %v: %w", size, ErrInvalidSize)
	}
	var bctx backend.Context
	if s.attachedTo != nil {
		bctx = s.attachedTo.bc
	}
	if err := d.bd.ResizeSurface(bctx, s.bs, size); err != nil {
		return err
	}
	s.generation++
	backend.Logger().Debug("surf: surface resized", "id", s.id, "size", size)
	return nil
}

// CreateSurfaceTexture exposes the front buffer of a generic surface as a
// texture ctx can sample, for compositing surfaces rendered elsewhere in
// the sharing group. The export takes an exclusive borrow: the surface
// must be unattached and not already exported, and stays unusable as a
// render target until DestroySurfaceTexture.
func (d *Device) CreateSurfaceTexture(ctx *Context, s *Surface) (*SurfaceTexture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validContext(ctx); err != nil {
		return nil, err
	}
	if err := d.validSurface(s); err != nil {
		return nil, err
	}
	if s.widget {
		return nil, fmt.Errorf("surf: widget surfaces have no exportable texture: %w", ErrInvalidSurfaceType)
	}
	if s.attachedTo != nil {
		return nil, fmt.Errorf("surf: surface %d is attached to context %d: %w",
			s.id, s.attachedTo.id, ErrSurfaceInUse)
	}
	if s.borrowedBy != nil {
		return nil, fmt.Errorf("surf: surface %d is already exported: %w", s.id, ErrSurfaceInUse)
	}
	bt, err := d.bd.CreateSurfaceTexture(ctx.bc, s.bs)
	if err != nil {
		return nil, err
	}
	t := &SurfaceTexture{
		dev:        d,
		surface:    s,
		ctx:        ctx,
		bt:         bt,
		generation: s.generation,
	}
	s.borrowedBy = t
	return t, nil
}

// DestroySurfaceTexture ends the borrow and returns the surface, which is
// immediately attachable again. It works on invalidated textures too;
// only destroying the same texture twice is an error.
func (d *Device) DestroySurfaceTexture(t *SurfaceTexture) (*Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	if t == nil || t.dev != d {
		return nil, fmt.Errorf("surf: texture from a different device: %w", ErrSharingGroupMismatch)
	}
	if t.released {
		return nil, fmt.Errorf("surf: surface texture destroyed twice: %w", ErrSurfaceTextureInvalidated)
	}
	var bctx backend.Context
	if t.ctx.state != contextDestroyed {
		bctx = t.ctx.bc
	}
	if err := d.bd.DestroySurfaceTexture(bctx, t.bt); err != nil {
		return nil, err
	}
	t.released = true
	if t.surface.borrowedBy == t {
		t.surface.borrowedBy = nil
	}
	return t.surface, nil
}

// ReadSurface copies the front buffer of a generic surface into an RGBA
// image, for readback and testing. It does not disturb which context is
// current on the calling thread.
func (d *Device) ReadSurface(s *Surface) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validSurface(s); err != nil {
		return nil, err
	}
	if s.widget {
		return nil, fmt.Errorf("surf: widget surfaces cannot be read back: %w", ErrInvalidSurfaceType)
	}
	return d.bd.ReadSurface(s.bs)
}

// Destroy releases the device. Every context and surface created from it
// must already be destroyed; violating that returns a
// *ContractViolationError and leaves everything alive, because silently
// tearing down contexts that may be current elsewhere would hide the bug
// that leaked them.
func (d *Device) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil
	}
	if len(d.contexts) > 0 || len(d.surfaces) > 0 {
		return &ContractViolationError{
			Contexts: len(d.contexts),
			Surfaces: len(d.surfaces),
		}
	}
	if err := d.bd.Destroy(); err != nil {
		return err
	}
	d.destroyed = true
	backend.Logger().Info("surf: device destroyed", "adapter", d.adapter.Name())
	return nil
}

// newID is called with d.mu held.
func (d *Device) newID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

// validContext is called with d.mu held.
func (d *Device) validContext(ctx *Context) error {
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	if ctx == nil {
		return fmt.Errorf("surf: nil context: %w", ErrContextDestroyed)
	}
	if ctx.dev != d {
		return fmt.Errorf("surf: context %d belongs to another device: %w", ctx.id, ErrSharingGroupMismatch)
	}
	if ctx.state == contextDestroyed {
		return fmt.Errorf("surf: context %d: %w", ctx.id, ErrContextDestroyed)
	}
	return nil
}

// validSurface is called with d.mu held.
func (d *Device) validSurface(s *Surface) error {
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	if s == nil {
		return fmt.Errorf("surf: nil surface: %w", ErrSurfaceDestroyed)
	}
	if s.dev != d {
		return fmt.Errorf("surf: surface %d belongs to another device: %w", s.id, ErrSharingGroupMismatch)
	}
	if s.destroyed {
		return fmt.Errorf("surf: surface %d: %w", s.id, ErrSurfaceDestroyed)
	}
	return nil
}
