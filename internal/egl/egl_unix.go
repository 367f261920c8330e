// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux || freebsd

package egl

/*
#cgo linux,!android pkg-config: egl
#cgo freebsd android LDFLAGS: -lEGL
#cgo freebsd CFLAGS: -I/usr/local/include
#cgo freebsd LDFLAGS: -L/usr/local/lib
#cgo CFLAGS: -DEGL_NO_X11

#include <EGL/egl.h>
#include <EGL/eglext.h>
*/
import "C"

import (
	"unsafe"

	"github.com/go-surf/surf/internal/gl"
)

type (
	_EGLint           = C.EGLint
	_EGLDisplay       = C.EGLDisplay
	_EGLConfig        = C.EGLConfig
	_EGLContext       = C.EGLContext
	_EGLSurface       = C.EGLSurface
	NativeDisplayType = C.EGLNativeDisplayType
	NativeWindowType  = C.EGLNativeWindowType
)

func loadEGL() error {
	return nil
}

func loadGLFunctions() (*gl.Functions, error) {
	return gl.NewFunctions()
}

// Native display and window handles arrive as uintptr because the public
// API cannot name platform pointer types. They are foreign pointers, never
// managed by the Go runtime.
func asNativeDisplay(d uintptr) NativeDisplayType {
	return NativeDisplayType(unsafe.Pointer(d))
}

func asNativeWindow(w uintptr) NativeWindowType {
	return NativeWindowType(unsafe.Pointer(w))
}

func eglChooseConfig(disp _EGLDisplay, attribs []_EGLint) (_EGLConfig, bool) {
	var cfg C.EGLConfig
	var ncfg C.EGLint
	if C.eglChooseConfig(disp, &attribs[0], &cfg, 1, &ncfg) != C.EGL_TRUE {
		return nilEGLConfig, false
	}
	return _EGLConfig(cfg), true
}

func eglCreateContext(disp _EGLDisplay, cfg _EGLConfig, shareCtx _EGLContext, attribs []_EGLint) _EGLContext {
	ctx := C.eglCreateContext(disp, cfg, shareCtx, &attribs[0])
	return _EGLContext(ctx)
}

func eglCreatePbufferSurface(disp _EGLDisplay, cfg _EGLConfig, attribs []_EGLint) _EGLSurface {
	surf := C.eglCreatePbufferSurface(disp, cfg, &attribs[0])
	return _EGLSurface(surf)
}

func eglCreateWindowSurface(disp _EGLDisplay, cfg _EGLConfig, win NativeWindowType, attribs []_EGLint) _EGLSurface {
	surf := C.eglCreateWindowSurface(disp, cfg, win, &attribs[0])
	return _EGLSurface(surf)
}

func eglDestroySurface(disp _EGLDisplay, surf _EGLSurface) bool {
	return C.eglDestroySurface(disp, surf) == C.EGL_TRUE
}

func eglDestroyContext(disp _EGLDisplay, ctx _EGLContext) bool {
	return C.eglDestroyContext(disp, ctx) == C.EGL_TRUE
}

func eglGetCurrentContext() _EGLContext {
	return _EGLContext(C.eglGetCurrentContext())
}

func eglGetCurrentDisplay() _EGLDisplay {
	return _EGLDisplay(C.eglGetCurrentDisplay())
}

func eglGetCurrentSurface(readdraw _EGLint) _EGLSurface {
	return _EGLSurface(C.eglGetCurrentSurface(readdraw))
}

func eglGetDisplay(disp NativeDisplayType) _EGLDisplay {
	return _EGLDisplay(C.eglGetDisplay(disp))
}

func eglGetError() _EGLint {
	return _EGLint(C.eglGetError())
}

func eglInitialize(disp _EGLDisplay) (_EGLint, _EGLint, bool) {
	var maj, min C.EGLint
	ret := C.eglInitialize(disp, &maj, &min)
	return _EGLint(maj), _EGLint(min), ret == C.EGL_TRUE
}

func eglMakeCurrent(disp _EGLDisplay, draw, read _EGLSurface, ctx _EGLContext) bool {
	return C.eglMakeCurrent(disp, draw, read, ctx) == C.EGL_TRUE
}

func eglQuerySurfaceInt(disp _EGLDisplay, surf _EGLSurface, attr _EGLint) _EGLint {
	var val C.EGLint
	C.eglQuerySurface(disp, surf, attr, &val)
	return _EGLint(val)
}

func eglQueryString(disp _EGLDisplay, name _EGLint) string {
	return C.GoString(C.eglQueryString(disp, name))
}

func eglReleaseThread() bool {
	return C.eglReleaseThread() == C.EGL_TRUE
}

func eglSwapBuffers(disp _EGLDisplay, surf _EGLSurface) bool {
	return C.eglSwapBuffers(disp, surf) == C.EGL_TRUE
}

func eglSwapInterval(disp _EGLDisplay, interval _EGLint) bool {
	return C.eglSwapInterval(disp, interval) == C.EGL_TRUE
}

func eglTerminate(disp _EGLDisplay) bool {
	return C.eglTerminate(disp) == C.EGL_TRUE
}
