// SPDX-License-Identifier: Unlicense OR MIT

package gl

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Functions calls GL through raw procedure addresses. The addresses come
// from a resolver because Windows has two sources: ANGLE's libGLESv2.dll
// exports every entry point, while opengl32.dll exports only GL 1.1 and
// hands out the rest through wglGetProcAddress, which needs a context
// current on the calling thread.
type Functions struct {
	glBindFramebuffer         uintptr
	glBindRenderbuffer        uintptr
	glBindTexture             uintptr
	glCheckFramebufferStatus  uintptr
	glDeleteFramebuffers      uintptr
	glDeleteRenderbuffers     uintptr
	glDeleteTextures          uintptr
	glFinish                  uintptr
	glFlush                   uintptr
	glFramebufferRenderbuffer uintptr
	glFramebufferTexture2D    uintptr
	glGenFramebuffers         uintptr
	glGenRenderbuffers        uintptr
	glGenTextures             uintptr
	glGetError                uintptr
	glGetIntegerv             uintptr
	glGetString               uintptr
	glPixelStorei             uintptr
	glReadPixels              uintptr
	glRenderbufferStorage     uintptr
	glTexImage2D              uintptr
	glTexParameteri           uintptr
}

// NewFunctions resolves the needed entry points through getProcAddr. The
// resolver's requirements are the caller's: a WGL resolver needs a current
// context, an ANGLE resolver does not.
func NewFunctions(getProcAddr func(name string) uintptr) (*Functions, error) {
	var loadErr error
	must := func(s string) uintptr {
		p := getProcAddr(s)
		if p == 0 && loadErr == nil {
			loadErr = fmt.Errorf("gl: failed to load symbol %q", s)
		}
		return p
	}
	f := &Functions{
		glBindFramebuffer:         must("glBindFramebuffer"),
		glBindRenderbuffer:        must("glBindRenderbuffer"),
		glBindTexture:             must("glBindTexture"),
		glCheckFramebufferStatus:  must("glCheckFramebufferStatus"),
		glDeleteFramebuffers:      must("glDeleteFramebuffers"),
		glDeleteRenderbuffers:     must("glDeleteRenderbuffers"),
		glDeleteTextures:          must("glDeleteTextures"),
		glFinish:                  must("glFinish"),
		glFlush:                   must("glFlush"),
		glFramebufferRenderbuffer: must("glFramebufferRenderbuffer"),
		glFramebufferTexture2D:    must("glFramebufferTexture2D"),
		glGenFramebuffers:         must("glGenFramebuffers"),
		glGenRenderbuffers:        must("glGenRenderbuffers"),
		glGenTextures:             must("glGenTextures"),
		glGetError:                must("glGetError"),
		glGetIntegerv:             must("glGetIntegerv"),
		glGetString:               must("glGetString"),
		glPixelStorei:             must("glPixelStorei"),
		glReadPixels:              must("glReadPixels"),
		glRenderbufferStorage:     must("glRenderbufferStorage"),
		glTexImage2D:              must("glTexImage2D"),
		glTexParameteri:           must("glTexParameteri"),
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return f, nil
}

func (f *Functions) BindFramebuffer(target Enum, fb Framebuffer) {
	syscall.SyscallN(f.glBindFramebuffer, uintptr(target), uintptr(fb.V))
}

func (f *Functions) BindRenderbuffer(target Enum, rb Renderbuffer) {
	syscall.SyscallN(f.glBindRenderbuffer, uintptr(target), uintptr(rb.V))
}

func (f *Functions) BindTexture(target Enum, t Texture) {
	syscall.SyscallN(f.glBindTexture, uintptr(target), uintptr(t.V))
}

func (f *Functions) CheckFramebufferStatus(target Enum) Enum {
	s, _, _ := syscall.SyscallN(f.glCheckFramebufferStatus, uintptr(target))
	return Enum(s)
}

func (f *Functions) CreateFramebuffer() Framebuffer {
	var fb uint32
	syscall.SyscallN(f.glGenFramebuffers, 1, uintptr(unsafe.Pointer(&fb)))
	return Framebuffer{V: fb}
}

func (f *Functions) CreateRenderbuffer() Renderbuffer {
	var rb uint32
	syscall.SyscallN(f.glGenRenderbuffers, 1, uintptr(unsafe.Pointer(&rb)))
	return Renderbuffer{V: rb}
}

func (f *Functions) CreateTexture() Texture {
	var t uint32
	syscall.SyscallN(f.glGenTextures, 1, uintptr(unsafe.Pointer(&t)))
	return Texture{V: t}
}

func (f *Functions) DeleteFramebuffer(fb Framebuffer) {
	v := fb.V
	syscall.SyscallN(f.glDeleteFramebuffers, 1, uintptr(unsafe.Pointer(&v)))
}

func (f *Functions) DeleteRenderbuffer(rb Renderbuffer) {
	v := rb.V
	syscall.SyscallN(f.glDeleteRenderbuffers, 1, uintptr(unsafe.Pointer(&v)))
}

func (f *Functions) DeleteTexture(t Texture) {
	v := t.V
	syscall.SyscallN(f.glDeleteTextures, 1, uintptr(unsafe.Pointer(&v)))
}

func (f *Functions) Finish() {
	syscall.SyscallN(f.glFinish)
}

func (f *Functions) Flush() {
	syscall.SyscallN(f.glFlush)
}

func (f *Functions) FramebufferRenderbuffer(target, attachment, rbTarget Enum, rb Renderbuffer) {
	syscall.SyscallN(f.glFramebufferRenderbuffer, uintptr(target), uintptr(attachment), uintptr(rbTarget), uintptr(rb.V))
}

func (f *Functions) FramebufferTexture2D(target, attachment, texTarget Enum, t Texture, level int) {
	syscall.SyscallN(f.glFramebufferTexture2D, uintptr(target), uintptr(attachment), uintptr(texTarget), uintptr(t.V), uintptr(level))
}

func (f *Functions) GetError() Enum {
	e, _, _ := syscall.SyscallN(f.glGetError)
	return Enum(e)
}

func (f *Functions) GetInteger(pname Enum) int {
	var data int32
	syscall.SyscallN(f.glGetIntegerv, uintptr(pname), uintptr(unsafe.Pointer(&data)))
	return int(data)
}

func (f *Functions) GetString(pname Enum) string {
	s, _, _ := syscall.SyscallN(f.glGetString, uintptr(pname))
	if s == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(s)))
}

func (f *Functions) PixelStorei(pname Enum, param int) {
	syscall.SyscallN(f.glPixelStorei, uintptr(pname), uintptr(param))
}

func (f *Functions) ReadPixels(x, y, width, height int, format, ty Enum, data []byte) {
	d0 := &data[0]
	syscall.SyscallN(f.glReadPixels, uintptr(x), uintptr(y), uintptr(width), uintptr(height), uintptr(format), uintptr(ty), uintptr(unsafe.Pointer(d0)))
	issue34474KeepAlive(d0)
}

func (f *Functions) RenderbufferStorage(target, internalFormat Enum, width, height int) {
	syscall.SyscallN(f.glRenderbufferStorage, uintptr(target), uintptr(internalFormat), uintptr(width), uintptr(height))
}

func (f *Functions) TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, ty Enum) {
	syscall.SyscallN(f.glTexImage2D, uintptr(target), uintptr(level), uintptr(internalFormat), uintptr(width), uintptr(height), 0, uintptr(format), uintptr(ty), 0)
}

func (f *Functions) TexParameteri(target, pname Enum, param int) {
	syscall.SyscallN(f.glTexParameteri, uintptr(target), uintptr(pname), uintptr(param))
}

// issue34474KeepAlive calls runtime.KeepAlive as a
// workaround for golang.org/issue/34474.
func issue34474KeepAlive(v any) {
	runtime.KeepAlive(v)
}
