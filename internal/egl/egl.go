// SPDX-License-Identifier: Unlicense OR MIT

//go:build ((linux || freebsd) && cgo) || windows

// Package egl implements the backend contract on EGL. On Linux, Android
// and FreeBSD it binds the system EGL library with cgo; on Windows it
// drives ANGLE's libEGL.dll and libGLESv2.dll, translating to Direct3D.
//
// Widget surfaces are EGL window surfaces presented with eglSwapBuffers.
// Generic surfaces are pairs of GL textures with a framebuffer object per
// using context; texture names are visible across the device's sharing
// group, which is rooted at an internal utility context every caller
// context shares with.
package egl

import (
	"fmt"
	"image"
	"runtime"
	"strings"

	"github.com/go-surf/surf/internal/backend"
	"github.com/go-surf/surf/internal/gl"
)

var (
	nilEGLDisplay       _EGLDisplay
	nilEGLSurface       _EGLSurface
	nilEGLContext       _EGLContext
	nilEGLConfig        _EGLConfig
	EGL_DEFAULT_DISPLAY NativeDisplayType
)

const (
	_EGL_ALPHA_SIZE             = 0x3021
	_EGL_BLUE_SIZE              = 0x3022
	_EGL_CONFIG_CAVEAT          = 0x3027
	_EGL_CONTEXT_CLIENT_VERSION = 0x3098
	_EGL_CONTEXT_MINOR_VERSION  = 0x30fb
	_EGL_DEPTH_SIZE             = 0x3025
	_EGL_DRAW                   = 0x3059
	_EGL_EXTENSIONS             = 0x3055
	_EGL_GREEN_SIZE             = 0x3023
	_EGL_HEIGHT                 = 0x3056
	_EGL_NONE                   = 0x3038
	_EGL_OPENGL_ES2_BIT         = 0x4
	_EGL_PBUFFER_BIT            = 0x1
	_EGL_READ                   = 0x305a
	_EGL_RED_SIZE               = 0x3024
	_EGL_RENDERABLE_TYPE        = 0x3040
	_EGL_SAMPLES                = 0x3031
	_EGL_SAMPLE_BUFFERS         = 0x3032
	_EGL_STENCIL_SIZE           = 0x3026
	_EGL_SURFACE_TYPE           = 0x3033
	_EGL_VENDOR                 = 0x3053
	_EGL_WIDTH                  = 0x3057
	_EGL_WINDOW_BIT             = 0x4
)

// Backend opens EGL displays.
type Backend struct{}

func (Backend) Name() string { return "egl" }

func (Backend) Open(nativeDisplay uintptr) (backend.Display, error) {
	if err := loadEGL(); err != nil {
		return nil, fmt.Errorf("egl: %v: %w", err, backend.ErrPlatformUnavailable)
	}
	disp := eglGetDisplay(asNativeDisplay(nativeDisplay))
	// eglGetDisplay can return EGL_NO_DISPLAY yet no error
	// (EGL_SUCCESS), in which case a default EGL display might be
	// available.
	if disp == nilEGLDisplay {
		disp = eglGetDisplay(EGL_DEFAULT_DISPLAY)
	}
	if disp == nilEGLDisplay {
		return nil, fmt.Errorf("egl: eglGetDisplay failed: 0x%x: %w", eglGetError(), backend.ErrPlatformUnavailable)
	}
	major, minor, ok := eglInitialize(disp)
	if !ok {
		return nil, fmt.Errorf("egl: eglInitialize failed: 0x%x: %w", eglGetError(), backend.ErrPlatformUnavailable)
	}
	d := &Display{
		disp:  disp,
		exts:  strings.Split(eglQueryString(disp, _EGL_EXTENSIONS), " "),
		major: int(major),
		minor: int(minor),
	}
	backend.Logger().Debug("egl: display initialized",
		"version", fmt.Sprintf("%d.%d", d.major, d.minor),
		"vendor", eglQueryString(disp, _EGL_VENDOR))
	return d, nil
}

// Display is an initialized EGL display.
type Display struct {
	disp  _EGLDisplay
	exts  []string
	major int
	minor int
}

func (d *Display) Adapters() []backend.AdapterInfo {
	return []backend.AdapterInfo{{
		Kind:    backend.AdapterHardware,
		Name:    fmt.Sprintf("EGL %d.%d %s", d.major, d.minor, eglQueryString(d.disp, _EGL_VENDOR)),
		Backend: "egl",
	}}
}

func (d *Display) OpenDevice(info backend.AdapterInfo) (backend.Device, error) {
	return newDevice(d)
}

func (d *Display) Close() error {
	if !eglTerminate(d.disp) {
		return fmt.Errorf("egl: eglTerminate failed: 0x%x", eglGetError())
	}
	eglReleaseThread()
	return nil
}

func (d *Display) hasExtension(ext string) bool {
	for _, e := range d.exts {
		if e == ext {
			return true
		}
	}
	return false
}

// Device owns one sharing group. The utility context is its root: every
// caller context shares with it, and internal storage work (allocation,
// resize, readback) runs under it so it never depends on what the caller
// has current.
type Device struct {
	disp        _EGLDisplay
	dpy         *Display
	gl          *gl.Functions
	surfaceless bool
	caps        backend.Capabilities

	util *Context
}

func newDevice(dpy *Display) (backend.Device, error) {
	d := &Device{
		disp:        dpy.disp,
		dpy:         dpy,
		surfaceless: dpy.hasExtension("EGL_KHR_surfaceless_context"),
	}
	util, err := d.createContext(backend.Config{ColorBits: 32, Samples: 1}, nilEGLContext)
	if err != nil {
		return nil, fmt.Errorf("egl: utility context: %w", err)
	}
	d.util = util
	fns, err := loadGLFunctions()
	if err != nil {
		d.destroyContext(util)
		return nil, fmt.Errorf("egl: %v: %w", err, backend.ErrDeviceCreationFailed)
	}
	d.gl = fns
	if err := d.withUtilityCurrent(func() error {
		d.caps = backend.Capabilities{
			MaxGLMajor:     util.major,
			MaxGLMinor:     util.minor,
			MaxSamples:     1,
			WindowSurfaces: true,
		}
		if util.major >= 3 {
			d.caps.MaxGLMajor = d.gl.GetInteger(gl.MAJOR_VERSION)
			d.caps.MaxGLMinor = d.gl.GetInteger(gl.MINOR_VERSION)
			if n := d.gl.GetInteger(gl.MAX_SAMPLES); n > 1 {
				d.caps.MaxSamples = n
			}
		}
		backend.Logger().Debug("egl: device capabilities",
			"renderer", d.gl.GetString(gl.RENDERER),
			"version", d.gl.GetString(gl.VERSION))
		return nil
	}); err != nil {
		d.destroyContext(util)
		return nil, err
	}
	return d, nil
}

func (d *Device) Capabilities() backend.Capabilities {
	return d.caps
}

// Context is an EGL context plus the pbuffer that stands in for a surface
// when nothing is attached and EGL_KHR_surfaceless_context is missing.
type Context struct {
	ctx    _EGLContext
	cfg    _EGLConfig
	config backend.Config
	pbuf   _EGLSurface
	major  int
	minor  int
}

func (c *Context) GLVersion() (major, minor int) { return c.major, c.minor }

func (d *Device) CreateContext(cfg backend.Config) (backend.Context, error) {
	return d.createContext(cfg, d.util.ctx)
}

func (d *Device) createContext(cfg backend.Config, share _EGLContext) (*Context, error) {
	eglCfg, err := d.chooseConfig(cfg)
	if err != nil {
		return nil, err
	}
	versions := [][2]int{{cfg.GLMajor, cfg.GLMinor}}
	if cfg.GLMajor == 0 {
		// No explicit version; take ES 3 and fall back to ES 2.
		versions = [][2]int{{3, 0}, {2, 0}}
	}
	var (
		ctx          _EGLContext
		major, minor int
	)
	for _, v := range versions {
		attribs := []_EGLint{_EGL_CONTEXT_CLIENT_VERSION, _EGLint(v[0])}
		if v[1] > 0 && d.dpy.hasExtension("EGL_KHR_create_context") {
			attribs = append(attribs, _EGL_CONTEXT_MINOR_VERSION, _EGLint(v[1]))
		}
		attribs = append(attribs, _EGL_NONE)
		if ctx = eglCreateContext(d.disp, eglCfg, share, attribs); ctx != nilEGLContext {
			major, minor = v[0], v[1]
			break
		}
	}
	if ctx == nilEGLContext {
		return nil, fmt.Errorf("egl: eglCreateContext failed: 0x%x: %w", eglGetError(), backend.ErrContextCreationFailed)
	}
	c := &Context{ctx: ctx, cfg: eglCfg, config: cfg, major: major, minor: minor}
	if !d.surfaceless {
		attribs := []_EGLint{_EGL_WIDTH, 1, _EGL_HEIGHT, 1, _EGL_NONE}
		c.pbuf = eglCreatePbufferSurface(d.disp, eglCfg, attribs)
		if c.pbuf == nilEGLSurface {
			eglDestroyContext(d.disp, ctx)
			return nil, fmt.Errorf("egl: eglCreatePbufferSurface failed: 0x%x: %w", eglGetError(), backend.ErrContextCreationFailed)
		}
	}
	return c, nil
}

func (d *Device) chooseConfig(cfg backend.Config) (_EGLConfig, error) {
	var r, g, b, a _EGLint
	switch cfg.ColorBits {
	case 16:
		r, g, b, a = 5, 6, 5, 0
	case 24:
		r, g, b, a = 8, 8, 8, 0
	default:
		r, g, b, a = 8, 8, 8, 8
	}
	attribs := []_EGLint{
		_EGL_RENDERABLE_TYPE, _EGL_OPENGL_ES2_BIT,
		_EGL_SURFACE_TYPE, _EGL_WINDOW_BIT | _EGL_PBUFFER_BIT,
		_EGL_RED_SIZE, r,
		_EGL_GREEN_SIZE, g,
		_EGL_BLUE_SIZE, b,
		_EGL_CONFIG_CAVEAT, _EGL_NONE,
	}
	if a > 0 {
		attribs = append(attribs, _EGL_ALPHA_SIZE, a)
	}
	if cfg.DepthBits > 0 {
		attribs = append(attribs, _EGL_DEPTH_SIZE, _EGLint(cfg.DepthBits))
	}
	if cfg.StencilBits > 0 {
		attribs = append(attribs, _EGL_STENCIL_SIZE, _EGLint(cfg.StencilBits))
	}
	if cfg.Samples > 1 {
		attribs = append(attribs, _EGL_SAMPLE_BUFFERS, 1, _EGL_SAMPLES, _EGLint(cfg.Samples))
	}
	attribs = append(attribs, _EGL_NONE)
	eglCfg, ok := eglChooseConfig(d.disp, attribs)
	if !ok {
		return nilEGLConfig, fmt.Errorf("egl: eglChooseConfig failed: 0x%x: %w", eglGetError(), backend.ErrUnsupportedConfig)
	}
	if eglCfg == nilEGLConfig {
		return nilEGLConfig, fmt.Errorf("egl: no matching config: %w", backend.ErrUnsupportedConfig)
	}
	return eglCfg, nil
}

func (d *Device) DestroyContext(bctx backend.Context) error {
	return d.destroyContext(bctx.(*Context))
}

func (d *Device) destroyContext(c *Context) error {
	if c.pbuf != nilEGLSurface {
		eglDestroySurface(d.disp, c.pbuf)
		c.pbuf = nilEGLSurface
	}
	if !eglDestroyContext(d.disp, c.ctx) {
		return fmt.Errorf("egl: eglDestroyContext failed: 0x%x", eglGetError())
	}
	c.ctx = nilEGLContext
	return nil
}

func (d *Device) MakeCurrent(bctx backend.Context, bs backend.Surface) error {
	c := bctx.(*Context)
	draw := c.pbuf
	var s *Surface
	if bs != nil {
		s = bs.(*Surface)
		if s.widget {
			draw = s.eglSurf
		}
	}
	if !eglMakeCurrent(d.disp, draw, draw, c.ctx) {
		return fmt.Errorf("egl: eglMakeCurrent failed: 0x%x", eglGetError())
	}
	if s != nil {
		if s.widget {
			if !s.vsyncSet {
				eglSwapInterval(d.disp, 1)
				s.vsyncSet = true
			}
		} else if err := d.bindSurfaceFBO(c, s); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) ReleaseCurrent() error {
	if !eglMakeCurrent(d.disp, nilEGLSurface, nilEGLSurface, nilEGLContext) {
		return fmt.Errorf("egl: eglMakeCurrent failed: 0x%x", eglGetError())
	}
	return nil
}

func (d *Device) PresentWindowSurface(bctx backend.Context, bs backend.Surface) error {
	s := bs.(*Surface)
	if !eglSwapBuffers(d.disp, s.eglSurf) {
		return fmt.Errorf("egl: eglSwapBuffers failed: 0x%x: %w", eglGetError(), backend.ErrPresentFailed)
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
		return fmt.Errorf("egl: framebuffer incomplete: 0x%x", st)
	}
	return nil
}

// Surface backs either an EGL window surface (widget) or a texture pair
// (generic).
type Surface struct {
	size   image.Point
	widget bool

	// Widget surfaces.
	eglSurf  _EGLSurface
	vsyncSet bool

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
	attribs := []_EGLint{_EGL_NONE}
	eglSurf := eglCreateWindowSurface(d.disp, c.cfg, asNativeWindow(widget), attribs)
	if eglSurf == nilEGLSurface {
		return nil, fmt.Errorf("egl: eglCreateWindowSurface failed: 0x%x: %w", eglGetError(), backend.ErrSurfaceCreationFailed)
	}
	s := &Surface{widget: true, eglSurf: eglSurf}
	s.size = image.Pt(
		int(eglQuerySurfaceInt(d.disp, eglSurf, _EGL_WIDTH)),
		int(eglQuerySurfaceInt(d.disp, eglSurf, _EGL_HEIGHT)),
	)
	return s, nil
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
		return fmt.Errorf("egl: surface storage allocation failed: 0x%x", e)
	}
	s.size = size
	// Attachments point at old names; rewire on next bind.
	s.fboCtx = nil
	return nil
}

func (d *Device) DestroySurface(bs backend.Surface) error {
	s := bs.(*Surface)
	if s.widget {
		if !eglDestroySurface(d.disp, s.eglSurf) {
			return fmt.Errorf("egl: eglDestroySurface failed: 0x%x", eglGetError())
		}
		s.eglSurf = nilEGLSurface
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
		// Window surface storage tracks the window; just record the
		// new size.
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
			return fmt.Errorf("egl: readback framebuffer incomplete: 0x%x", st)
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
// calling thread, then restores whatever was current before. The goroutine
// is pinned for the duration so save and restore see the same thread.
func (d *Device) withUtilityCurrent(f func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	prevCtx := eglGetCurrentContext()
	prevDraw := eglGetCurrentSurface(_EGL_DRAW)
	prevRead := eglGetCurrentSurface(_EGL_READ)
	prevDisp := eglGetCurrentDisplay()
	if !eglMakeCurrent(d.disp, d.util.pbuf, d.util.pbuf, d.util.ctx) {
		return fmt.Errorf("egl: eglMakeCurrent (utility) failed: 0x%x", eglGetError())
	}
	defer func() {
		var ok bool
		if prevCtx != nilEGLContext {
			ok = eglMakeCurrent(prevDisp, prevDraw, prevRead, prevCtx)
		} else {
			ok = eglMakeCurrent(d.disp, nilEGLSurface, nilEGLSurface, nilEGLContext)
		}
		if !ok {
			backend.Logger().Error("egl: failed to restore current context", "error", fmt.Sprintf("0x%x", eglGetError()))
		}
	}()
	return f()
}
