// SPDX-License-Identifier: Unlicense OR MIT

package wgl

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

type wndClassEx struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CnClsExtra    int32
	CbWndExtra    int32
	HInstance     windows.Handle
	HIcon         windows.Handle
	HCursor       windows.Handle
	HbrBackground windows.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       windows.Handle
}

type pixelFormatDescriptor struct {
	nSize           uint16
	nVersion        uint16
	dwFlags         uint32
	iPixelType      byte
	cColorBits      byte
	cRedBits        byte
	cRedShift       byte
	cGreenBits      byte
	cGreenShift     byte
	cBlueBits       byte
	cBlueShift      byte
	cAlphaBits      byte
	cAlphaShift     byte
	cAccumBits      byte
	cAccumRedBits   byte
	cAccumGreenBits byte
	cAccumBlueBits  byte
	cAccumAlphaBits byte
	cDepthBits      byte
	cStencilBits    byte
	cAuxBuffers     byte
	iLayerType      byte
	bReserved       byte
	dwLayerMask     uint32
	dwVisibleMask   uint32
	dwDamageMask    uint32
}

const (
	_CS_OWNDC = 0x0020

	_PFD_DOUBLEBUFFER   = 0x00000001
	_PFD_DRAW_TO_WINDOW = 0x00000004
	_PFD_SUPPORT_OPENGL = 0x00000020
	_PFD_TYPE_RGBA      = 0
	_PFD_MAIN_PLANE     = 0

	_WGL_DRAW_TO_WINDOW_ARB        = 0x2001
	_WGL_ACCELERATION_ARB          = 0x2003
	_WGL_SUPPORT_OPENGL_ARB        = 0x2010
	_WGL_DOUBLE_BUFFER_ARB         = 0x2011
	_WGL_PIXEL_TYPE_ARB            = 0x2013
	_WGL_COLOR_BITS_ARB            = 0x2014
	_WGL_ALPHA_BITS_ARB            = 0x201b
	_WGL_DEPTH_BITS_ARB            = 0x2022
	_WGL_STENCIL_BITS_ARB          = 0x2023
	_WGL_FULL_ACCELERATION_ARB     = 0x2027
	_WGL_TYPE_RGBA_ARB             = 0x202b
	_WGL_SAMPLE_BUFFERS_ARB        = 0x2041
	_WGL_SAMPLES_ARB               = 0x2042
	_WGL_CONTEXT_MAJOR_VERSION_ARB = 0x2091
	_WGL_CONTEXT_MINOR_VERSION_ARB = 0x2092
	_WGL_CONTEXT_PROFILE_MASK_ARB  = 0x9126

	_WGL_CONTEXT_CORE_PROFILE_BIT_ARB = 0x0001

	_GL_RENDERER = 0x1f01
)

var (
	kernel32          = windows.NewLazySystemDLL("kernel32.dll")
	_GetModuleHandleW = kernel32.NewProc("GetModuleHandleW")

	user32            = windows.NewLazySystemDLL("user32.dll")
	_CreateWindowEx   = user32.NewProc("CreateWindowExW")
	_DefWindowProc    = user32.NewProc("DefWindowProcW")
	_DestroyWindow    = user32.NewProc("DestroyWindow")
	_GetClientRect    = user32.NewProc("GetClientRect")
	_GetDC            = user32.NewProc("GetDC")
	_RegisterClassExW = user32.NewProc("RegisterClassExW")
	_ReleaseDC        = user32.NewProc("ReleaseDC")

	gdi32              = windows.NewLazySystemDLL("gdi32.dll")
	_ChoosePixelFormat = gdi32.NewProc("ChoosePixelFormat")
	_SetPixelFormat    = gdi32.NewProc("SetPixelFormat")
	_SwapBuffers       = gdi32.NewProc("SwapBuffers")

	opengl32              = windows.NewLazySystemDLL("opengl32.dll")
	_wglCreateContext     = opengl32.NewProc("wglCreateContext")
	_wglDeleteContext     = opengl32.NewProc("wglDeleteContext")
	_wglGetCurrentContext = opengl32.NewProc("wglGetCurrentContext")
	_wglGetCurrentDC      = opengl32.NewProc("wglGetCurrentDC")
	_wglGetProcAddress    = opengl32.NewProc("wglGetProcAddress")
	_wglMakeCurrent       = opengl32.NewProc("wglMakeCurrent")
	_glGetString          = opengl32.NewProc("glGetString")
)

func getModuleHandle() (windows.Handle, error) {
	h, _, err := _GetModuleHandleW.Call(uintptr(0))
	if h == 0 {
		return 0, fmt.Errorf("wgl: GetModuleHandleW failed: %v", err)
	}
	return windows.Handle(h), nil
}

func registerClassEx(cls *wndClassEx) (uint16, error) {
	a, _, err := _RegisterClassExW.Call(uintptr(unsafe.Pointer(cls)))
	if a == 0 {
		return 0, fmt.Errorf("wgl: RegisterClassExW failed: %v", err)
	}
	return uint16(a), nil
}

func createWindowEx(dwExStyle uint32, lpClassName uint16, dwStyle uint32, x, y, w, h int32, hInstance windows.Handle) (windows.Handle, error) {
	hwnd, _, err := _CreateWindowEx.Call(
		uintptr(dwExStyle),
		uintptr(lpClassName),
		uintptr(0),
		uintptr(dwStyle),
		uintptr(x), uintptr(y),
		uintptr(w), uintptr(h),
		uintptr(0),
		uintptr(0),
		uintptr(hInstance),
		uintptr(0))
	if hwnd == 0 {
		return 0, fmt.Errorf("wgl: CreateWindowEx failed: %v", err)
	}
	return windows.Handle(hwnd), nil
}

func defWindowProc(hwnd windows.Handle, msg uint32, wparam, lparam uintptr) uintptr {
	r, _, _ := _DefWindowProc.Call(uintptr(hwnd), uintptr(msg), wparam, lparam)
	return r
}

func destroyWindow(hwnd windows.Handle) {
	_DestroyWindow.Call(uintptr(hwnd))
}

func getClientSize(hwnd windows.Handle) (int32, int32) {
	var r struct {
		left, top, right, bottom int32
	}
	_GetClientRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r)))
	return r.right - r.left, r.bottom - r.top
}

func getDC(hwnd windows.Handle) (windows.Handle, error) {
	hdc, _, err := _GetDC.Call(uintptr(hwnd))
	if hdc == 0 {
		return 0, fmt.Errorf("wgl: GetDC failed: %v", err)
	}
	return windows.Handle(hdc), nil
}

func releaseDC(hwnd, hdc windows.Handle) {
	_ReleaseDC.Call(uintptr(hwnd), uintptr(hdc))
}

func choosePixelFormat(hdc windows.Handle, pfd *pixelFormatDescriptor) int32 {
	r, _, _ := _ChoosePixelFormat.Call(uintptr(hdc), uintptr(unsafe.Pointer(pfd)))
	issue34474KeepAlive(pfd)
	return int32(r)
}

func setPixelFormat(hdc windows.Handle, format int32, pfd *pixelFormatDescriptor) bool {
	r, _, _ := _SetPixelFormat.Call(uintptr(hdc), uintptr(format), uintptr(unsafe.Pointer(pfd)))
	issue34474KeepAlive(pfd)
	return r != 0
}

func swapBuffers(hdc windows.Handle) bool {
	r, _, _ := _SwapBuffers.Call(uintptr(hdc))
	return r != 0
}

func wglCreateContext(hdc windows.Handle) uintptr {
	c, _, _ := _wglCreateContext.Call(uintptr(hdc))
	return c
}

func wglDeleteContext(glrc uintptr) bool {
	r, _, _ := _wglDeleteContext.Call(glrc)
	return r != 0
}

func wglGetCurrentContext() uintptr {
	c, _, _ := _wglGetCurrentContext.Call()
	return c
}

func wglGetCurrentDC() windows.Handle {
	dc, _, _ := _wglGetCurrentDC.Call()
	return windows.Handle(dc)
}

// wglGetProcAddress returns sentinel values for failure besides zero.
func wglGetProcAddress(name string) uintptr {
	cname := append([]byte(name), 0)
	p, _, _ := _wglGetProcAddress.Call(uintptr(unsafe.Pointer(&cname[0])))
	issue34474KeepAlive(cname)
	switch p {
	case 0, 1, 2, 3, ^uintptr(0):
		return 0
	}
	return p
}

func wglMakeCurrent(hdc windows.Handle, glrc uintptr) bool {
	r, _, _ := _wglMakeCurrent.Call(uintptr(hdc), glrc)
	return r != 0
}

// glGetStringGL11 reads a GL string through the GL 1.1 entry point
// opengl32.dll exports directly. A context must be current.
func glGetStringGL11(name uint32) string {
	s, _, _ := _glGetString.Call(uintptr(name))
	if s == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(s)))
}

func wglChoosePixelFormatARB(proc uintptr, hdc windows.Handle, attribs []int32) (int32, bool) {
	var format int32
	var nFormats uint32
	a := &attribs[0]
	r, _, _ := syscall.SyscallN(proc,
		uintptr(hdc),
		uintptr(unsafe.Pointer(a)),
		uintptr(0),
		uintptr(1),
		uintptr(unsafe.Pointer(&format)),
		uintptr(unsafe.Pointer(&nFormats)))
	issue34474KeepAlive(a)
	if r == 0 || nFormats == 0 {
		return 0, false
	}
	return format, true
}

func wglCreateContextAttribsARB(proc uintptr, hdc windows.Handle, share uintptr, attribs []int32) uintptr {
	a := &attribs[0]
	c, _, _ := syscall.SyscallN(proc, uintptr(hdc), share, uintptr(unsafe.Pointer(a)))
	issue34474KeepAlive(a)
	return c
}

func wglGetExtensionsStringARB(proc uintptr, hdc windows.Handle) string {
	s, _, _ := syscall.SyscallN(proc, uintptr(hdc))
	if s == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(s)))
}

// issue34474KeepAlive calls runtime.KeepAlive as a
// workaround for golang.org/issue/34474.
func issue34474KeepAlive(v any) {
	runtime.KeepAlive(v)
}
