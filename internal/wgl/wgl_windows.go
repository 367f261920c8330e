// SPDX-License-Identifier: Unlicense OR MIT

// Package wgl implements the backend contract on WGL, the native OpenGL
// binding on Windows.
//
// WGL cannot make a context current without a device context carrying a
// pixel format, so every context owns an invisible 1x1 window whose DC
// stands in whenever no widget surface is attached. The modern entry
// points (wglChoosePixelFormatARB, wglCreateContextAttribsARB) are
// themselves loaded through a throwaway legacy context on a bootstrap
// window, once per process.
package wgl

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"unsafe"

	syscall "golang.org/x/sys/windows"

	"github.com/go-surf/surf/internal/backend"
	"github.com/go-surf/surf/internal/gl"
)

type extensionFuncs struct {
	choosePixelFormatARB    uintptr
	createContextAttribsARB uintptr
	extensions              string
	renderer                string
}

var (
	extOnce sync.Once
	ext     extensionFuncs
	extErr  error

	classOnce sync.Once
	classAtom uint16
	classErr  error
)

func hiddenWindowClass() (uint16, error) {
	classOnce.Do(func() {
		hinst, err := getModuleHandle()
		if err != nil {
			classErr = err
			return
		}
		wcls := wndClassEx{
			Style:         _CS_OWNDC,
			LpfnWndProc:   syscall.NewCallback(hiddenWindowProc),
			HInstance:     hinst,
			LpszClassName: syscall.StringToUTF16Ptr("surf_wgl_hidden"),
		}
		wcls.CbSize = uint32(unsafe.Sizeof(wcls))
		classAtom, classErr = registerClassEx(&wcls)
	})
	return classAtom, classErr
}

func hiddenWindowProc(hwnd, msg, wparam, lparam uintptr) uintptr {
	return defWindowProc(syscall.Handle(hwnd), uint32(msg), wparam, lparam)
}

func createHiddenWindow() (syscall.Handle, syscall.Handle, error) {
	atom, err := hiddenWindowClass()
	if err != nil {
		return 0, 0, err
	}
	hinst, err := getModuleHandle()
	if err != nil {
		return 0, 0, err
	}
	hwnd, err := createWindowEx(0, atom, 0, 0, 0, 1, 1, hinst)
	if err != nil {
		return 0, 0, err
	}
	hdc, err := getDC(hwnd)
	if err != nil {
		destroyWindow(hwnd)
		return 0, 0, err
	}
	return hwnd, hdc, nil
}

// loadExtensions creates a throwaway legacy context to reach
// wglGetProcAddress, which only works with a context current.
func loadExtensions() (*extensionFuncs, error) {
	extOnce.Do(func() {
		extErr = bootstrapExtensions(&ext)
	})
	if extErr != nil {
		return nil, extErr
	}
	return &ext, nil
}

func bootstrapExtensions(fns *extensionFuncs) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	hwnd, hdc, err := createHiddenWindow()
	if err != nil {
		return err
	}
	defer func() {
		releaseDC(hwnd, hdc)
		destroyWindow(hwnd)
	}()
	pfd := basePixelFormatDescriptor()
	format := choosePixelFormat(hdc, &pfd)
	if format == 0 {
		return fmt.Errorf("wgl: ChoosePixelFormat failed")
	}
	if !setPixelFormat(hdc, format, &pfd) {
		return fmt.Errorf("wgl: SetPixelFormat failed")
	}
	glrc := wglCreateContext(hdc)
	if glrc == 0 {
		return fmt.Errorf("wgl: wglCreateContext failed")
	}
	defer wglDeleteContext(glrc)
	prevDC, prevCtx := wglGetCurrentDC(), wglGetCurrentContext()
	if !wglMakeCurrent(hdc, glrc) {
		return fmt.Errorf("wgl: wglMakeCurrent failed")
	}
	defer wglMakeCurrent(prevDC, prevCtx)
	if p := wglGetProcAddress("wglGetExtensionsStringARB"); p != 0 {
		fns.extensions = wglGetExtensionsStringARB(p, hdc)
	}
	fns.choosePixelFormatARB = wglGetProcAddress("wglChoosePixelFormatARB")
	fns.createContextAttribsARB = wglGetProcAddress("wglCreateContextAttribsARB")
	fns.renderer = glGetStringGL11(_GL_RENDERER)
	return nil
}

func basePixelFormatDescriptor() pixelFormatDescriptor {
	return pixelFormatDescriptor{
		nSize:        uint16(unsafe.Sizeof(pixelFormatDescriptor{})),
		nVersion:     1,
		dwFlags:      _PFD_DRAW_TO_WINDOW | _PFD_SUPPORT_OPENGL | _PFD_DOUBLEBUFFER,
		iPixelType:   _PFD_TYPE_RGBA,
		cColorBits:   32,
		cDepthBits:   24,
		cStencilBits: 8,
		iLayerType:   _PFD_MAIN_PLANE,
	}
}

// Backend opens the native WGL implementation.
type Backend struct{}

func (Backend) Name() string { return "wgl" }

// Open ignores nativeDisplay; Windows has no display connection concept.
func (Backend) Open(nativeDisplay uintptr) (backend.Display, error) {
	fns, err := loadExtensions()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, backend.ErrPlatformUnavailable)
	}
	if fns.choosePixelFormatARB == 0 || fns.createContextAttribsARB == 0 {
		return nil, fmt.Errorf("wgl: WGL_ARB_pixel_format or WGL_ARB_create_context missing: %w", backend.ErrPlatformUnavailable)
	}
	return &Display{ext: fns}, nil
}

type Display struct {
	ext *extensionFuncs
}

func (d *Display) Adapters() []backend.AdapterInfo {
	name := d.ext.renderer
	if name == "" {
		name = "WGL"
	}
	return []backend.AdapterInfo{{
		Kind:    backend.AdapterHardware,
		Name:    name,
		Backend: "wgl",
	}}
}

func (d *Display) OpenDevice(info backend.AdapterInfo) (backend.Device, error) {
	return newDevice(d.ext)
}

func (d *Display) Close() error { return nil }

// Device owns one sharing group rooted at its utility context.
type Device struct {
	ext  *extensionFuncs
	gl   *gl.Functions
	caps backend.Capabilities
	util *Context
}

func newDevice(fns *extensionFuncs) (backend.Device, error) {
	d := &Device{ext: fns}
	util, err := d.createContext(backend.Config{ColorBits: 32, Samples: 1}, 0)
	if err != nil {
		return nil, fmt.Errorf("wgl: utility context: %w", err)
	}
	d.util = util
	if err := d.withUtilityCurrent(func() error {
		glfns, err := gl.NewFunctions(glProcAddr)
		if err != nil {
			return fmt.Errorf("wgl: %v: %w", err, backend.ErrDeviceCreationFailed)
		}
		d.gl = glfns
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
		backend.Logger().Debug("wgl: device capabilities",
			"renderer", d.gl.GetString(gl.RENDERER),
			"version", d.gl.GetString(gl.VERSION))
		return nil
	}); err != nil {
		d.destroyContext(util)
		return nil, err
	}
	return d, nil
}

// glProcAddr resolves GL entry points: the GL 1.1 core comes straight from
// opengl32.dll exports, everything newer through wglGetProcAddress, which
// requires a current context.
func glProcAddr(name string) uintptr {
	p := opengl32.NewProc(name)
	if err := p.Find(); err == nil {
		return p.Addr()
	}
	return wglGetProcAddress(name)
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

// Context pairs a WGL context with the hidden window whose DC it binds to
// when no widget surface is attached.
type Context struct {
	glrc   uintptr
	hwnd   syscall.Handle
	hdc    syscall.Handle
	format int32
	config backend.Config
	major  int
	minor  int
}

func (c *Context) GLVersion() (major, minor int) { return c.major, c.minor }

func (d *Device) CreateContext(cfg backend.Config) (backend.Context, error) {
	c, err := d.createContext(cfg, d.util.glrc)
	if err != nil {
		return nil, err
	}
	if cfg.GLMajor == 0 {
		c.major, c.minor = d.caps.MaxGLMajor, d.caps.MaxGLMinor
	}
	return c, nil
}

func (d *Device) createContext(cfg backend.Config, share uintptr) (*Context, error) {
	hwnd, hdc, err := createHiddenWindow()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, backend.ErrContextCreationFailed)
	}
	format, ok := wglChoosePixelFormatARB(d.ext.choosePixelFormatARB, hdc, pixelFormatAttribs(cfg))
	if !ok {
		releaseDC(hwnd, hdc)
		destroyWindow(hwnd)
		return nil, fmt.Errorf("wgl: no matching pixel format: %w", backend.ErrUnsupportedConfig)
	}
	pfd := basePixelFormatDescriptor()
	if !setPixelFormat(hdc, format, &pfd) {
		releaseDC(hwnd, hdc)
		destroyWindow(hwnd)
		return nil, fmt.Errorf("wgl: SetPixelFormat failed: %w", backend.ErrContextCreationFailed)
	}
	var attribs []int32
	if cfg.GLMajor > 0 {
		attribs = []int32{
			_WGL_CONTEXT_MAJOR_VERSION_ARB, int32(cfg.GLMajor),
			_WGL_CONTEXT_MINOR_VERSION_ARB, int32(cfg.GLMinor),
			_WGL_CONTEXT_PROFILE_MASK_ARB, _WGL_CONTEXT_CORE_PROFILE_BIT_ARB,
		}
	}
	attribs = append(attribs, 0)
	glrc := wglCreateContextAttribsARB(d.ext.createContextAttribsARB, hdc, share, attribs)
	if glrc == 0 {
		releaseDC(hwnd, hdc)
		destroyWindow(hwnd)
		return nil, fmt.Errorf("wgl: wglCreateContextAttribsARB failed: %w", backend.ErrContextCreationFailed)
	}
	return &Context{
		glrc:   glrc,
		hwnd:   hwnd,
		hdc:    hdc,
		format: format,
		config: cfg,
		major:  cfg.GLMajor,
		minor:  cfg.GLMinor,
	}, nil
}

func pixelFormatAttribs(cfg backend.Config) []int32 {
	var color, alpha int32
	switch cfg.ColorBits {
	case 16:
		color, alpha = 16, 0
	case 24:
		color, alpha = 24, 0
	default:
		color, alpha = 32, 8
	}
	attribs := []int32{
		_WGL_DRAW_TO_WINDOW_ARB, 1,
		_WGL_SUPPORT_OPENGL_ARB, 1,
		_WGL_DOUBLE_BUFFER_ARB, 1,
		_WGL_PIXEL_TYPE_ARB, _WGL_TYPE_RGBA_ARB,
		_WGL_ACCELERATION_ARB, _WGL_FULL_ACCELERATION_ARB,
		_WGL_COLOR_BITS_ARB, color,
	}
	if alpha > 0 {
		attribs = append(attribs, _WGL_ALPHA_BITS_ARB, alpha)
	}
	if cfg.DepthBits > 0 {
		attribs = append(attribs, _WGL_DEPTH_BITS_ARB, int32(cfg.DepthBits))
	}
	if cfg.StencilBits > 0 {
		attribs = append(attribs, _WGL_STENCIL_BITS_ARB, int32(cfg.StencilBits))
	}
	if cfg.Samples > 1 {
		attribs = append(attribs, _WGL_SAMPLE_BUFFERS_ARB, 1, _WGL_SAMPLES_ARB, int32(cfg.Samples))
	}
	attribs = append(attribs, 0)
	return attribs
}

func (d *Device) DestroyContext(bctx backend.Context) error {
	return d.destroyContext(bctx.(*Context))
}

func (d *Device) destroyContext(c *Context) error {
	if c.glrc != 0 {
		if !wglDeleteContext(c.glrc) {
			return fmt.Errorf("wgl: wglDeleteContext failed")
		}
		c.glrc = 0
	}
	if c.hwnd != 0 {
		releaseDC(c.hwnd, c.hdc)
		destroyWindow(c.hwnd)
		c.hwnd, c.hdc = 0, 0
	}
	return nil
}

// Surface backs either a widget window's DC or a texture pair.
type Surface struct {
	size   image.Point
	widget bool

	// Widget surfaces.
	hwnd syscall.Handle
	hdc  syscall.Handle

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
	hwnd := syscall.Handle(widget)
	hdc, err := getDC(hwnd)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, backend.ErrSurfaceCreationFailed)
	}
	// A window's pixel format can be set exactly once and must match the
	// context's.
	pfd := basePixelFormatDescriptor()
	if !setPixelFormat(hdc, c.format, &pfd) {
		releaseDC(hwnd, hdc)
		return nil, fmt.Errorf("wgl: SetPixelFormat on widget window failed: %w", backend.ErrSurfaceCreationFailed)
	}
	w, h := getClientSize(hwnd)
	return &Surface{
		size:   image.Pt(int(w), int(h)),
		widget: true,
		hwnd:   hwnd,
		hdc:    hdc,
	}, nil
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

func (d *Device) allocSurfaceStorage(s *Surface, size image.Point) error {
	for i := range s.tex {
		if s.exported != nil && s.exported.slot == i {
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
		return fmt.Errorf("wgl: surface storage allocation failed: 0x%x", e)
	}
	s.size = size
	s.fboCtx = nil
	return nil
}

func (d *Device) DestroySurface(bs backend.Surface) error {
	s := bs.(*Surface)
	if s.widget {
		releaseDC(s.hwnd, s.hdc)
		s.hwnd, s.hdc = 0, 0
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
		return nil
	})
}

func (d *Device) MakeCurrent(bctx backend.Context, bs backend.Surface) error {
	c := bctx.(*Context)
	hdc := c.hdc
	var s *Surface
	if bs != nil {
		s = bs.(*Surface)
		if s.widget {
			hdc = s.hdc
		}
	}
	if !wglMakeCurrent(hdc, c.glrc) {
		return fmt.Errorf("wgl: wglMakeCurrent failed")
	}
	if s != nil && !s.widget {
		if err := d.bindSurfaceFBO(c, s); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) ReleaseCurrent() error {
	if !wglMakeCurrent(0, 0) {
		return fmt.Errorf("wgl: wglMakeCurrent failed")
	}
	return nil
}

func (d *Device) PresentWindowSurface(bctx backend.Context, bs backend.Surface) error {
	s := bs.(*Surface)
	if !swapBuffers(s.hdc) {
		return fmt.Errorf("wgl: SwapBuffers failed: %w", backend.ErrPresentFailed)
	}
	return nil
}

func (d *Device) SwapGenericSurface(bctx backend.Context, bs backend.Surface) error {
	c := bctx.(*Context)
	s := bs.(*Surface)
	d.gl.Flush()
	s.front = 1 - s.front
	return d.bindSurfaceFBO(c, s)
}

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
		return fmt.Errorf("wgl: framebuffer incomplete: 0x%x", st)
	}
	return nil
}

func (d *Device) ResizeSurface(bctx backend.Context, bs backend.Surface, size image.Point) error {
	s := bs.(*Surface)
	if s.widget {
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

// Texture is an exported front buffer.
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
			return fmt.Errorf("wgl: readback framebuffer incomplete: 0x%x", st)
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
// calling thread, then restores whatever was current before.
func (d *Device) withUtilityCurrent(f func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	prevDC, prevCtx := wglGetCurrentDC(), wglGetCurrentContext()
	if !wglMakeCurrent(d.util.hdc, d.util.glrc) {
		return fmt.Errorf("wgl: wglMakeCurrent (utility) failed")
	}
	defer func() {
		var ok bool
		if prevCtx != 0 {
			ok = wglMakeCurrent(prevDC, prevCtx)
		} else {
			ok = wglMakeCurrent(0, 0)
		}
		if !ok {
			backend.Logger().Error("wgl: failed to restore current context")
		}
	}()
	return f()
}
