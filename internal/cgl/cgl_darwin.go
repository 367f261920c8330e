// SPDX-License-Identifier: Unlicense OR MIT

//go:build darwin

// Package cgl implements the backend contract on macOS through CGL.
// Contexts are plain CGLContextObjs sharing one group per device. A widget
// surface wraps its attached context in an NSOpenGLContext, the only
// sanctioned way to bind a CGL drawable to an NSView; current-ness,
// presentation and teardown stay in CGL proper.
//
// macOS cannot share object names across GL profiles, so a device settles
// on the best core profile once and creates every context with it. A
// request for an older version succeeds and reports the profile's version.
package cgl

/*
#cgo CFLAGS: -Werror -Wno-deprecated-declarations -fobjc-arc -x objective-c
#cgo LDFLAGS: -framework AppKit -framework OpenGL

#include <AppKit/AppKit.h>
#include <OpenGL/OpenGL.h>
#include <CoreFoundation/CoreFoundation.h>

static void surf_onMain(void (^block)(void)) {
	if (NSThread.isMainThread) {
		block();
	} else {
		dispatch_sync(dispatch_get_main_queue(), block);
	}
}

// surf_attachContextView wraps ctx in an NSOpenGLContext and binds the
// view's drawable to it. AppKit view work must happen on the main thread.
static CFTypeRef surf_attachContextView(CGLContextObj ctx, CFTypeRef viewRef) {
	NSOpenGLContext *nsctx = [[NSOpenGLContext alloc] initWithCGLContextObj:ctx];
	if (nsctx == nil) {
		return NULL;
	}
	NSView *view = (__bridge NSView *)viewRef;
	surf_onMain(^{
		[view setWantsBestResolutionOpenGLSurface:YES];
		[nsctx setView:view];
	});
	return CFBridgingRetain(nsctx);
}

static void surf_detachContextView(CFTypeRef nsctxRef) {
	NSOpenGLContext *nsctx = (__bridge NSOpenGLContext *)nsctxRef;
	surf_onMain(^{
		[nsctx clearDrawable];
	});
	CFRelease(nsctxRef);
}

static CGSize surf_viewBackingSize(CFTypeRef viewRef) {
	NSView *view = (__bridge NSView *)viewRef;
	__block CGSize sz;
	surf_onMain(^{
		sz = [view convertSizeToBacking:view.bounds.size];
	});
	return sz;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"runtime"

	"github.com/go-surf/surf/internal/backend"
	"github.com/go-surf/surf/internal/gl"
)

// Backend opens CGL, the native GL interface on macOS.
type Backend struct{}

func (Backend) Name() string { return "cgl" }

// Open probes for a usable renderer. CGL talks to the window server
// directly, so there is no display handle to open and nativeDisplay is
// ignored.
func (Backend) Open(nativeDisplay uintptr) (backend.Display, error) {
	renderer, err := probeRenderer()
	if err != nil {
		return nil, fmt.Errorf("cgl: %v: %w", err, backend.ErrPlatformUnavailable)
	}
	backend.Logger().Debug("cgl: display opened", "renderer", renderer)
	return &Display{renderer: renderer}, nil
}

// probeRenderer creates a throwaway context to learn the renderer string
// before any device exists.
func probeRenderer() (string, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	attribs := []C.CGLPixelFormatAttribute{C.kCGLPFAAccelerated, C.kCGLPFADoubleBuffer, 0}
	var (
		pix  C.CGLPixelFormatObj
		npix C.GLint
	)
	if e := C.CGLChoosePixelFormat(&attribs[0], &pix, &npix); e != C.kCGLNoError {
		return "", fmt.Errorf("CGLChoosePixelFormat failed: %s", cglErrString(e))
	}
	if pix == nil {
		return "", errors.New("no accelerated pixel format")
	}
	defer C.CGLDestroyPixelFormat(pix)
	var ctx C.CGLContextObj
	if e := C.CGLCreateContext(pix, nil, &ctx); e != C.kCGLNoError {
		return "", fmt.Errorf("CGLCreateContext failed: %s", cglErrString(e))
	}
	defer C.CGLDestroyContext(ctx)
	prev := C.CGLGetCurrentContext()
	if e := C.CGLSetCurrentContext(ctx); e != C.kCGLNoError {
		return "", fmt.Errorf("CGLSetCurrentContext failed: %s", cglErrString(e))
	}
	defer C.CGLSetCurrentContext(prev)
	fns, err := gl.NewFunctions()
	if err != nil {
		return "", err
	}
	return fns.GetString(gl.RENDERER), nil
}

// Display enumerates the pixel format policies macOS offers as adapters:
// the default accelerated GPU and the low-power one reached by allowing
// offline renderers.
type Display struct {
	renderer string
}

func (d *Display) Adapters() []backend.AdapterInfo {
	return []backend.AdapterInfo{
		{Kind: backend.AdapterHardware, Name: d.renderer, Backend: "cgl", Ordinal: 0},
		{Kind: backend.AdapterLowPower, Name: d.renderer + " (low power)", Backend: "cgl", Ordinal: 1},
	}
}

func (d *Display) OpenDevice(info backend.AdapterInfo) (backend.Device, error) {
	return newDevice(info.Kind == backend.AdapterLowPower)
}

func (d *Display) Close() error { return nil }

// Device owns one sharing group rooted at its utility context. Internal
// storage work (allocation, resize, readback) runs under the utility
// context so it never depends on what the caller has current.
type Device struct {
	lowPower bool
	profile  C.CGLPixelFormatAttribute
	gl       *gl.Functions
	caps     backend.Capabilities

	util *Context
}

func newDevice(lowPower bool) (backend.Device, error) {
	d := &Device{lowPower: lowPower}
	profiles := []C.CGLPixelFormatAttribute{
		C.kCGLOGLPVersion_GL4_Core,
		C.kCGLOGLPVersion_3_2_Core,
		C.kCGLOGLPVersion_Legacy,
	}
	var (
		util *Context
		err  error
	)
	for _, p := range profiles {
		d.profile = p
		if util, err = d.createContext(backend.Config{ColorBits: 32, Samples: 1}, nil); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("cgl: utility context: %w", err)
	}
	d.util = util
	fns, err := gl.NewFunctions()
	if err != nil {
		d.destroyContext(util)
		return nil, fmt.Errorf("cgl: %v: %w", err, backend.ErrDeviceCreationFailed)
	}
	d.gl = fns
	if err := d.withUtilityCurrent(func() error {
		major, minor := parseGLVersion(d.gl.GetString(gl.VERSION))
		d.util.major, d.util.minor = major, minor
		d.caps = backend.Capabilities{
			MaxGLMajor:     major,
			MaxGLMinor:     minor,
			MaxSamples:     1,
			WindowSurfaces: true,
		}
		if major >= 3 {
			if n := d.gl.GetInteger(gl.MAX_SAMPLES); n > 1 {
				d.caps.MaxSamples = n
			}
		}
		backend.Logger().Debug("cgl: device capabilities",
			"renderer", d.gl.GetString(gl.RENDERER),
			"version", d.gl.GetString(gl.VERSION))
		return nil
	}); err != nil {
		d.destroyContext(util)
		return nil, err
	}
	return d, nil
}

func parseGLVersion(s string) (major, minor int) {
	if _, err := fmt.Sscanf(s, "%d.%d", &major, &minor); err != nil {
		return 2, 1
	}
	return major, minor
}

func (d *Device) Capabilities() backend.Capabilities {
	return d.caps
}

// Context is a CGL context. It reports the device profile's version,
// which is at least what the caller asked for.
type Context struct {
	ctx    C.CGLContextObj
	config backend.Config
	major  int
	minor  int
}

func (c *Context) GLVersion() (major, minor int) { return c.major, c.minor }

func (d *Device) CreateContext(cfg backend.Config) (backend.Context, error) {
	c, err := d.createContext(cfg, d.util.ctx)
	if err != nil {
		return nil, err
	}
	c.major, c.minor = d.caps.MaxGLMajor, d.caps.MaxGLMinor
	return c, nil
}

func (d *Device) createContext(cfg backend.Config, share C.CGLContextObj) (*Context, error) {
	pix, err := d.choosePixelFormat(cfg)
	if err != nil {
		return nil, err
	}
	defer C.CGLDestroyPixelFormat(pix)
	var ctx C.CGLContextObj
	if e := C.CGLCreateContext(pix, share, &ctx); e != C.kCGLNoError {
		return nil, fmt.Errorf("cgl: CGLCreateContext failed: %s: %w", cglErrString(e), backend.ErrContextCreationFailed)
	}
	return &Context{ctx: ctx, config: cfg}, nil
}

func (d *Device) choosePixelFormat(cfg backend.Config) (C.CGLPixelFormatObj, error) {
	var color, alpha C.CGLPixelFormatAttribute
	switch cfg.ColorBits {
	case 16:
		color, alpha = 16, 0
	case 24:
		color, alpha = 24, 0
	default:
		color, alpha = 32, 8
	}
	attribs := []C.CGLPixelFormatAttribute{
		C.kCGLPFAOpenGLProfile, d.profile,
		C.kCGLPFADoubleBuffer,
		C.kCGLPFAColorSize, color,
	}
	if d.lowPower {
		attribs = append(attribs, C.kCGLPFAAllowOfflineRenderers)
	} else {
		attribs = append(attribs, C.kCGLPFAAccelerated)
	}
	if alpha > 0 {
		attribs = append(attribs, C.kCGLPFAAlphaSize, alpha)
	}
	if cfg.DepthBits > 0 {
		attribs = append(attribs, C.kCGLPFADepthSize, C.CGLPixelFormatAttribute(cfg.DepthBits))
	}
	if cfg.StencilBits > 0 {
		attribs = append(attribs, C.kCGLPFAStencilSize, C.CGLPixelFormatAttribute(cfg.StencilBits))
	}
	if cfg.Samples > 1 {
		attribs = append(attribs, C.kCGLPFASampleBuffers, 1, C.kCGLPFASamples, C.CGLPixelFormatAttribute(cfg.Samples))
	}
	attribs = append(attribs, 0)
	var (
		pix  C.CGLPixelFormatObj
		npix C.GLint
	)
	if e := C.CGLChoosePixelFormat(&attribs[0], &pix, &npix); e != C.kCGLNoError {
		return nil, fmt.Errorf("cgl: CGLChoosePixelFormat failed: %s: %w", cglErrString(e), backend.ErrUnsupportedConfig)
	}
	if pix == nil {
		return nil, fmt.Errorf("cgl: no matching pixel format: %w", backend.ErrUnsupportedConfig)
	}
	return pix, nil
}

func (d *Device) DestroyContext(bctx backend.Context) error {
	return d.destroyContext(bctx.(*Context))
}

func (d *Device) destroyContext(c *Context) error {
	if e := C.CGLDestroyContext(c.ctx); e != C.kCGLNoError {
		return fmt.Errorf("cgl: CGLDestroyContext failed: %s", cglErrString(e))
	}
	c.ctx = nil
	return nil
}

func (d *Device) MakeCurrent(bctx backend.Context, bs backend.Surface) error {
	c := bctx.(*Context)
	var s *Surface
	if bs != nil {
		s = bs.(*Surface)
	}
	if s != nil && s.widget && s.nsctxCtx != c {
		// The NSOpenGLContext wrap carries the view drawable and is
		// bound to one CGL context; rewrap when the surface moves to
		// another context.
		if err := s.attachView(c); err != nil {
			return err
		}
	}
	if e := C.CGLSetCurrentContext(c.ctx); e != C.kCGLNoError {
		return fmt.Errorf("cgl: CGLSetCurrentContext failed: %s", cglErrString(e))
	}
	if s != nil && !s.widget {
		if err := d.bindSurfaceFBO(c, s); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) ReleaseCurrent() error {
	if e := C.CGLSetCurrentContext(nil); e != C.kCGLNoError {
		return fmt.Errorf("cgl: CGLSetCurrentContext failed: %s", cglErrString(e))
	}
	return nil
}

func (d *Device) PresentWindowSurface(bctx backend.Context, bs backend.Surface) error {
	c := bctx.(*Context)
	if e := C.CGLFlushDrawable(c.ctx); e != C.kCGLNoError {
		return fmt.Errorf("cgl: CGLFlushDrawable failed: %s: %w", cglErrString(e), backend.ErrPresentFailed)
	}
	return nil
}

func (d *Device) SwapGenericSurface(bctx backend.Context, bs backend.Surface) error {
	c := bctx.(*Context)
	s := bs.(*Surface)
	// Queue outstanding commands against the old back buffer before it
	// becomes the front buffer.
	d.gl.Flush()
	s.front = 1 - s.front
	return d.bindSurfaceFBO(c, s)
}

// bindSurfaceFBO leaves the surface's framebuffer bound in c, creating or
// re-pointing it as needed. Framebuffer names are context-private, so a
// surface migrating between contexts gets a fresh one; the old object dies
// with its context.
func (d *Device) bindSurfaceFBO(c *Context, s *Surface) error {
	if s.fboCtx != c || !s.fbo.Valid() {
		s.fbo = d.gl.CreateFramebuffer()
		s.fboCtx = c
	}
	d.gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	back := s.tex[1-s.front]
	d.gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, back, 0)
	if s.depthBits > 0 && s.stencilBits > 0 {
		d.gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, s.rb)
	} else if s.depthBits > 0 {
		d.gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, s.rb)
	} else if s.stencilBits > 0 {
		d.gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.STENCIL_ATTACHMENT, gl.RENDERBUFFER, s.rb)
	}
	if st := d.gl.CheckFramebufferStatus(gl.FRAMEBUFFER); st != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("cgl: framebuffer incomplete: 0x%x", st)
	}
	return nil
}

// Surface backs either an NSView drawable (widget) or a texture pair
// (generic).
type Surface struct {
	size   image.Point
	widget bool

	// Widget surfaces.
	view     C.CFTypeRef
	nsctx    C.CFTypeRef
	nsctxCtx *Context

	// Generic surfaces.
	tex         [2]gl.Texture
	rb          gl.Renderbuffer
	front       int
	fbo         gl.Framebuffer
	fboCtx      *Context
	exported    *Texture
	depthBits   int
	stencilBits int
}

func (s *Surface) Size() image.Point { return s.size }

func (d *Device) CreateWindowSurface(bctx backend.Context, widget uintptr) (backend.Surface, error) {
	c := bctx.(*Context)
	s := &Surface{widget: true, view: asNativeView(widget)}
	if err := s.attachView(c); err != nil {
		return nil, fmt.Errorf("%v: %w", err, backend.ErrSurfaceCreationFailed)
	}
	sz := C.surf_viewBackingSize(s.view)
	s.size = image.Pt(int(sz.width), int(sz.height))
	return s, nil
}

// attachView (re)wraps c in an NSOpenGLContext bound to the widget's
// view. The wrap also turns on vsync for the drawable.
func (s *Surface) attachView(c *Context) error {
	if s.nsctx != 0 {
		C.surf_detachContextView(s.nsctx)
		s.nsctx = 0
		s.nsctxCtx = nil
	}
	nsctx := C.surf_attachContextView(c.ctx, s.view)
	if nsctx == 0 {
		return errors.New("cgl: NSOpenGLContext creation failed")
	}
	interval := C.GLint(1)
	C.CGLSetParameter(c.ctx, C.kCGLCPSwapInterval, &interval)
	s.nsctx = nsctx
	s.nsctxCtx = c
	return nil
}

// asNativeView reinterprets a widget handle as the NSView pointer it is.
// The handle arrives as uintptr because the public API cannot name
// platform pointer types; it is a foreign pointer, never managed by the
// Go runtime.
func asNativeView(v uintptr) C.CFTypeRef {
	return C.CFTypeRef(v)
}

func (d *Device) CreateGenericSurface(bctx backend.Context, size image.Point) (backend.Surface, error) {
	c := bctx.(*Context)
	s := &Surface{
		size:        size,
		depthBits:   c.config.DepthBits,
		stencilBits: c.config.StencilBits,
	}
	err := d.withUtilityCurrent(func() error {
		if err := d.allocSurfaceStorage(s, size); err != nil {
			return fmt.Errorf("%v: %w", err, backend.ErrSurfaceCreationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// allocSurfaceStorage (re)allocates the texture pair and renderbuffer.
// A context in the sharing group must be current.
func (d *Device) allocSurfaceStorage(s *Surface, size image.Point) error {
	for i := range s.tex {
		if s.exported != nil && s.exported.slot == i {
			// The old texture is borrowed; give this slot a fresh
			// name and leave the borrowed one to the texture's
			// destroy.
			s.exported.orphan = true
			s.exported = nil
			s.tex[i] = gl.Texture{}
		}
		if !s.tex[i].Valid() {
			s.tex[i] = d.gl.CreateTexture()
		}
		d.gl.BindTexture(gl.TEXTURE_2D, s.tex[i])
		d.gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, int(gl.NEAREST))
		d.gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, int(gl.NEAREST))
		d.gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, int(gl.CLAMP_TO_EDGE))
		d.gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, int(gl.CLAMP_TO_EDGE))
		d.gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, size.X, size.Y, gl.RGBA, gl.UNSIGNED_BYTE)
	}
	if s.depthBits > 0 || s.stencilBits > 0 {
		if !s.rb.Valid() {
			s.rb = d.gl.CreateRenderbuffer()
		}
		d.gl.BindRenderbuffer(gl.RENDERBUFFER, s.rb)
		switch {
		case s.depthBits > 0 && s.stencilBits > 0:
			d.gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, size.X, size.Y)
		case s.depthBits > 16:
			d.gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, size.X, size.Y)
		case s.depthBits > 0:
			d.gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT16, size.X, size.Y)
		default:
			d.gl.RenderbufferStorage(gl.RENDERBUFFER, gl.STENCIL_INDEX8, size.X, size.Y)
		}
	}
	if e := d.gl.GetError(); e != gl.NO_ERROR {
		return fmt.Errorf("cgl: surface storage allocation failed: 0x%x", e)
	}
	s.size = size
	// Attachments point at old names; rewire on next bind.
	s.fboCtx = nil
	return nil
}

func (d *Device) DestroySurface(bs backend.Surface) error {
	s := bs.(*Surface)
	if s.widget {
		if s.nsctx != 0 {
			C.surf_detachContextView(s.nsctx)
			s.nsctx = 0
			s.nsctxCtx = nil
		}
		return nil
	}
	return d.withUtilityCurrent(func() error {
		for i := range s.tex {
			if s.tex[i].Valid() {
				d.gl.DeleteTexture(s.tex[i])
				s.tex[i] = gl.Texture{}
			}
		}
		if s.rb.Valid() {
			d.gl.DeleteRenderbuffer(s.rb)
			s.rb = gl.Renderbuffer{}
		}
		// The framebuffer object is context-private and dies with
		// its context.
		return nil
	})
}

func (d *Device) ResizeSurface(bctx backend.Context, bs backend.Surface, size image.Point) error {
	s := bs.(*Surface)
	if s.widget {
		// The drawable tracks the view; tell the context its
		// geometry changed and record the new size.
		if s.nsctxCtx != nil && s.nsctxCtx.ctx != nil {
			C.CGLUpdateContext(s.nsctxCtx.ctx)
		}
		s.size = size
		return nil
	}
	return d.withUtilityCurrent(func() error {
		if err := d.allocSurfaceStorage(s, size); err != nil {
			return fmt.Errorf("%v: %w", err, backend.ErrResizeFailed)
		}
		return nil
	})
}

// Texture is an exported front buffer. The name belongs to the surface
// until a resize orphans it, after which destroy deletes it.
type Texture struct {
	name   gl.Texture
	surf   *Surface
	slot   int
	orphan bool
}

func (t *Texture) GLTexture() (name, target uint32) {
	return t.name.V, uint32(gl.TEXTURE_2D)
}

func (d *Device) CreateSurfaceTexture(bctx backend.Context, bs backend.Surface) (backend.Texture, error) {
	s := bs.(*Surface)
	t := &Texture{name: s.tex[s.front], surf: s, slot: s.front}
	s.exported = t
	return t, nil
}

func (d *Device) DestroySurfaceTexture(bctx backend.Context, bt backend.Texture) error {
	t := bt.(*Texture)
	if t.surf.exported == t {
		t.surf.exported = nil
	}
	if t.orphan {
		// The surface was resized while borrowed; the name is ours
		// to delete.
		return d.withUtilityCurrent(func() error {
			d.gl.DeleteTexture(t.name)
			return nil
		})
	}
	return nil
}

func (d *Device) ReadSurface(bs backend.Surface) (*image.RGBA, error) {
	s := bs.(*Surface)
	img := image.NewRGBA(image.Rect(0, 0, s.size.X, s.size.Y))
	err := d.withUtilityCurrent(func() error {
		fbo := d.gl.CreateFramebuffer()
		defer d.gl.DeleteFramebuffer(fbo)
		d.gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
		d.gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, s.tex[s.front], 0)
		if st := d.gl.CheckFramebufferStatus(gl.FRAMEBUFFER); st != gl.FRAMEBUFFER_COMPLETE {
			return fmt.Errorf("cgl: readback framebuffer incomplete: 0x%x", st)
		}
		d.gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
		d.gl.ReadPixels(0, 0, s.size.X, s.size.Y, gl.RGBA, gl.UNSIGNED_BYTE, img.Pix)
		return nil
	})
	if err != nil {
		return nil, err
	}
	flipImageY(img)
	return img, nil
}

// flipImageY converts between GL's bottom-left origin and image.RGBA's
// top-left one.
func flipImageY(img *image.RGBA) {
	row := make([]byte, img.Stride)
	h := img.Rect.Dy()
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bot := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bot)
		copy(bot, row)
	}
}

func (d *Device) Destroy() error {
	if d.util != nil {
		if err := d.destroyContext(d.util); err != nil {
			return err
		}
		d.util = nil
	}
	return nil
}

// withUtilityCurrent runs f with the utility context current on the
// calling thread, then restores whatever was current before. The
// goroutine is pinned for the duration so save and restore see the same
// thread.
func (d *Device) withUtilityCurrent(f func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	prev := C.CGLGetCurrentContext()
	if e := C.CGLSetCurrentContext(d.util.ctx); e != C.kCGLNoError {
		return fmt.Errorf("cgl: CGLSetCurrentContext (utility) failed: %s", cglErrString(e))
	}
	defer func() {
		if e := C.CGLSetCurrentContext(prev); e != C.kCGLNoError {
			backend.Logger().Error("cgl: failed to restore current context", "error", cglErrString(e))
		}
	}()
	return f()
}

func cglErrString(e C.CGLError) string {
	return C.GoString(C.CGLErrorString(e))
}
