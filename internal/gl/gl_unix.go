// SPDX-License-Identifier: Unlicense OR MIT

//go:build darwin || linux || freebsd

package gl

import (
	"fmt"
	"runtime"
	"unsafe"
)

/*
#cgo CFLAGS: -Werror
#cgo linux freebsd LDFLAGS: -ldl

#include <stdint.h>
#include <stdlib.h>
#include <dlfcn.h>

typedef unsigned int GLenum;
typedef unsigned int GLuint;
typedef int GLint;
typedef int GLsizei;
typedef uint8_t GLubyte;

typedef void (*_glBindFramebuffer)(GLenum target, GLuint framebuffer);
typedef void (*_glBindRenderbuffer)(GLenum target, GLuint renderbuffer);
typedef void (*_glBindTexture)(GLenum target, GLuint texture);
typedef GLenum (*_glCheckFramebufferStatus)(GLenum target);
typedef void (*_glDeleteFramebuffers)(GLsizei n, const GLuint *framebuffers);
typedef void (*_glDeleteRenderbuffers)(GLsizei n, const GLuint *renderbuffers);
typedef void (*_glDeleteTextures)(GLsizei n, const GLuint *textures);
typedef void (*_glFinish)(void);
typedef void (*_glFlush)(void);
typedef void (*_glFramebufferRenderbuffer)(GLenum target, GLenum attachment, GLenum renderbuffertarget, GLuint renderbuffer);
typedef void (*_glFramebufferTexture2D)(GLenum target, GLenum attachment, GLenum textarget, GLuint texture, GLint level);
typedef void (*_glGenFramebuffers)(GLsizei n, GLuint *framebuffers);
typedef void (*_glGenRenderbuffers)(GLsizei n, GLuint *renderbuffers);
typedef void (*_glGenTextures)(GLsizei n, GLuint *textures);
typedef GLenum (*_glGetError)(void);
typedef void (*_glGetIntegerv)(GLenum pname, GLint *data);
typedef const GLubyte *(*_glGetString)(GLenum name);
typedef void (*_glPixelStorei)(GLenum pname, GLint param);
typedef void (*_glReadPixels)(GLint x, GLint y, GLsizei width, GLsizei height, GLenum format, GLenum type, void *pixels);
typedef void (*_glRenderbufferStorage)(GLenum target, GLenum internalformat, GLsizei width, GLsizei height);
typedef void (*_glTexImage2D)(GLenum target, GLint level, GLint internalformat, GLsizei width, GLsizei height, GLint border, GLenum format, GLenum type, const void *pixels);
typedef void (*_glTexParameteri)(GLenum target, GLenum pname, GLint param);

static void glBindFramebuffer(_glBindFramebuffer f, GLenum target, GLuint framebuffer) {
	f(target, framebuffer);
}

static void glBindRenderbuffer(_glBindRenderbuffer f, GLenum target, GLuint renderbuffer) {
	f(target, renderbuffer);
}

static void glBindTexture(_glBindTexture f, GLenum target, GLuint texture) {
	f(target, texture);
}

static GLenum glCheckFramebufferStatus(_glCheckFramebufferStatus f, GLenum target) {
	return f(target);
}

static void glDeleteFramebuffers(_glDeleteFramebuffers f, GLsizei n, const GLuint *framebuffers) {
	f(n, framebuffers);
}

static void glDeleteRenderbuffers(_glDeleteRenderbuffers f, GLsizei n, const GLuint *renderbuffers) {
	f(n, renderbuffers);
}

static void glDeleteTextures(_glDeleteTextures f, GLsizei n, const GLuint *textures) {
	f(n, textures);
}

static void glFinish(_glFinish f) {
	f();
}

static void glFlush(_glFlush f) {
	f();
}

static void glFramebufferRenderbuffer(_glFramebufferRenderbuffer f, GLenum target, GLenum attachment, GLenum renderbuffertarget, GLuint renderbuffer) {
	f(target, attachment, renderbuffertarget, renderbuffer);
}

static void glFramebufferTexture2D(_glFramebufferTexture2D f, GLenum target, GLenum attachment, GLenum textarget, GLuint texture, GLint level) {
	f(target, attachment, textarget, texture, level);
}

static void glGenFramebuffers(_glGenFramebuffers f, GLsizei n, GLuint *framebuffers) {
	f(n, framebuffers);
}

static void glGenRenderbuffers(_glGenRenderbuffers f, GLsizei n, GLuint *renderbuffers) {
	f(n, renderbuffers);
}

static void glGenTextures(_glGenTextures f, GLsizei n, GLuint *textures) {
	f(n, textures);
}

static GLenum glGetError(_glGetError f) {
	return f();
}

static void glGetIntegerv(_glGetIntegerv f, GLenum pname, GLint *data) {
	f(pname, data);
}

static const GLubyte *glGetString(_glGetString f, GLenum name) {
	return f(name);
}

static void glPixelStorei(_glPixelStorei f, GLenum pname, GLint param) {
	f(pname, param);
}

static void glReadPixels(_glReadPixels f, GLint x, GLint y, GLsizei width, GLsizei height, GLenum format, GLenum type, void *pixels) {
	f(x, y, width, height, format, type, pixels);
}

static void glRenderbufferStorage(_glRenderbufferStorage f, GLenum target, GLenum internalformat, GLsizei width, GLsizei height) {
	f(target, internalformat, width, height);
}

static void glTexImage2D(_glTexImage2D f, GLenum target, GLint level, GLint internalformat, GLsizei width, GLsizei height, GLint border, GLenum format, GLenum type, const void *pixels) {
	f(target, level, internalformat, width, height, border, format, type, pixels);
}

static void glTexParameteri(_glTexParameteri f, GLenum target, GLenum pname, GLint param) {
	f(target, pname, param);
}
*/
import "C"

// Functions holds the loaded function pointers.
type Functions struct {
	glBindFramebuffer         C._glBindFramebuffer
	glBindRenderbuffer        C._glBindRenderbuffer
	glBindTexture             C._glBindTexture
	glCheckFramebufferStatus  C._glCheckFramebufferStatus
	glDeleteFramebuffers      C._glDeleteFramebuffers
	glDeleteRenderbuffers     C._glDeleteRenderbuffers
	glDeleteTextures          C._glDeleteTextures
	glFinish                  C._glFinish
	glFlush                   C._glFlush
	glFramebufferRenderbuffer C._glFramebufferRenderbuffer
	glFramebufferTexture2D    C._glFramebufferTexture2D
	glGenFramebuffers         C._glGenFramebuffers
	glGenRenderbuffers        C._glGenRenderbuffers
	glGenTextures             C._glGenTextures
	glGetError                C._glGetError
	glGetIntegerv             C._glGetIntegerv
	glGetString               C._glGetString
	glPixelStorei             C._glPixelStorei
	glReadPixels              C._glReadPixels
	glRenderbufferStorage     C._glRenderbufferStorage
	glTexImage2D              C._glTexImage2D
	glTexParameteri           C._glTexParameteri
}

// NewFunctions loads the GL implementation the platform context API pairs
// with: the OpenGL framework on macOS, GL ES everywhere else.
func NewFunctions() (*Functions, error) {
	f := new(Functions)
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func dlsym(handle unsafe.Pointer, s string) unsafe.Pointer {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return C.dlsym(handle, cs)
}

func dlopen(lib string) unsafe.Pointer {
	clib := C.CString(lib)
	defer C.free(unsafe.Pointer(clib))
	return C.dlopen(clib, C.RTLD_NOW|C.RTLD_LOCAL)
}

func (f *Functions) load() error {
	var libNames []string
	switch runtime.GOOS {
	case "darwin":
		libNames = []string{"/System/Library/Frameworks/OpenGL.framework/OpenGL"}
	case "android":
		libNames = []string{"libGLESv2.so", "libGLESv3.so"}
	default:
		libNames = []string{"libGLESv2.so.2", "libGLESv2.so"}
	}
	var handles []unsafe.Pointer
	for _, lib := range libNames {
		if h := dlopen(lib); h != nil {
			handles = append(handles, h)
		}
	}
	if len(handles) == 0 {
		return fmt.Errorf("gl: no OpenGL implementation could be loaded (tried %q)", libNames)
	}
	var loadErr error
	must := func(s string) unsafe.Pointer {
		for _, h := range handles {
			if p := dlsym(h, s); p != nil {
				return p
			}
		}
		if loadErr == nil {
			loadErr = fmt.Errorf("gl: failed to load symbol %q", s)
		}
		return nil
	}
	f.glBindFramebuffer = C._glBindFramebuffer(must("glBindFramebuffer"))
	f.glBindRenderbuffer = C._glBindRenderbuffer(must("glBindRenderbuffer"))
	f.glBindTexture = C._glBindTexture(must("glBindTexture"))
	f.glCheckFramebufferStatus = C._glCheckFramebufferStatus(must("glCheckFramebufferStatus"))
	f.glDeleteFramebuffers = C._glDeleteFramebuffers(must("glDeleteFramebuffers"))
	f.glDeleteRenderbuffers = C._glDeleteRenderbuffers(must("glDeleteRenderbuffers"))
	f.glDeleteTextures = C._glDeleteTextures(must("glDeleteTextures"))
	f.glFinish = C._glFinish(must("glFinish"))
	f.glFlush = C._glFlush(must("glFlush"))
	f.glFramebufferRenderbuffer = C._glFramebufferRenderbuffer(must("glFramebufferRenderbuffer"))
	f.glFramebufferTexture2D = C._glFramebufferTexture2D(must("glFramebufferTexture2D"))
	f.glGenFramebuffers = C._glGenFramebuffers(must("glGenFramebuffers"))
	f.glGenRenderbuffers = C._glGenRenderbuffers(must("glGenRenderbuffers"))
	f.glGenTextures = C._glGenTextures(must("glGenTextures"))
	f.glGetError = C._glGetError(must("glGetError"))
	f.glGetIntegerv = C._glGetIntegerv(must("glGetIntegerv"))
	f.glGetString = C._glGetString(must("glGetString"))
	f.glPixelStorei = C._glPixelStorei(must("glPixelStorei"))
	f.glReadPixels = C._glReadPixels(must("glReadPixels"))
	f.glRenderbufferStorage = C._glRenderbufferStorage(must("glRenderbufferStorage"))
	f.glTexImage2D = C._glTexImage2D(must("glTexImage2D"))
	f.glTexParameteri = C._glTexParameteri(must("glTexParameteri"))
	return loadErr
}

func (f *Functions) BindFramebuffer(target Enum, fb Framebuffer) {
	C.glBindFramebuffer(f.glBindFramebuffer, C.GLenum(target), C.GLuint(fb.V))
}

func (f *Functions) BindRenderbuffer(target Enum, rb Renderbuffer) {
	C.glBindRenderbuffer(f.glBindRenderbuffer, C.GLenum(target), C.GLuint(rb.V))
}

func (f *Functions) BindTexture(target Enum, t Texture) {
	C.glBindTexture(f.glBindTexture, C.GLenum(target), C.GLuint(t.V))
}

func (f *Functions) CheckFramebufferStatus(target Enum) Enum {
	return Enum(C.glCheckFramebufferStatus(f.glCheckFramebufferStatus, C.GLenum(target)))
}

func (f *Functions) CreateFramebuffer() Framebuffer {
	var fb C.GLuint
	C.glGenFramebuffers(f.glGenFramebuffers, 1, &fb)
	return Framebuffer{V: uint32(fb)}
}

func (f *Functions) CreateRenderbuffer() Renderbuffer {
	var rb C.GLuint
	C.glGenRenderbuffers(f.glGenRenderbuffers, 1, &rb)
	return Renderbuffer{V: uint32(rb)}
}

func (f *Functions) CreateTexture() Texture {
	var t C.GLuint
	C.glGenTextures(f.glGenTextures, 1, &t)
	return Texture{V: uint32(t)}
}

func (f *Functions) DeleteFramebuffer(fb Framebuffer) {
	cfb := C.GLuint(fb.V)
	C.glDeleteFramebuffers(f.glDeleteFramebuffers, 1, &cfb)
}

func (f *Functions) DeleteRenderbuffer(rb Renderbuffer) {
	crb := C.GLuint(rb.V)
	C.glDeleteRenderbuffers(f.glDeleteRenderbuffers, 1, &crb)
}

func (f *Functions) DeleteTexture(t Texture) {
	ct := C.GLuint(t.V)
	C.glDeleteTextures(f.glDeleteTextures, 1, &ct)
}

func (f *Functions) Finish() {
	C.glFinish(f.glFinish)
}

func (f *Functions) Flush() {
	C.glFlush(f.glFlush)
}

func (f *Functions) FramebufferRenderbuffer(target, attachment, rbTarget Enum, rb Renderbuffer) {
	C.glFramebufferRenderbuffer(f.glFramebufferRenderbuffer, C.GLenum(target), C.GLenum(attachment), C.GLenum(rbTarget), C.GLuint(rb.V))
}

func (f *Functions) FramebufferTexture2D(target, attachment, texTarget Enum, t Texture, level int) {
	C.glFramebufferTexture2D(f.glFramebufferTexture2D, C.GLenum(target), C.GLenum(attachment), C.GLenum(texTarget), C.GLuint(t.V), C.GLint(level))
}

func (f *Functions) GetError() Enum {
	return Enum(C.glGetError(f.glGetError))
}

func (f *Functions) GetInteger(pname Enum) int {
	var data C.GLint
	C.glGetIntegerv(f.glGetIntegerv, C.GLenum(pname), &data)
	return int(data)
}

func (f *Functions) GetString(pname Enum) string {
	str := C.glGetString(f.glGetString, C.GLenum(pname))
	if str == nil {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(str)))
}

func (f *Functions) PixelStorei(pname Enum, param int) {
	C.glPixelStorei(f.glPixelStorei, C.GLenum(pname), C.GLint(param))
}

func (f *Functions) ReadPixels(x, y, width, height int, format, ty Enum, data []byte) {
	p := unsafe.Pointer(&data[0])
	C.glReadPixels(f.glReadPixels, C.GLint(x), C.GLint(y), C.GLsizei(width), C.GLsizei(height), C.GLenum(format), C.GLenum(ty), p)
}

func (f *Functions) RenderbufferStorage(target, internalFormat Enum, width, height int) {
	C.glRenderbufferStorage(f.glRenderbufferStorage, C.GLenum(target), C.GLenum(internalFormat), C.GLsizei(width), C.GLsizei(height))
}

func (f *Functions) TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, ty Enum) {
	C.glTexImage2D(f.glTexImage2D, C.GLenum(target), C.GLint(level), C.GLint(internalFormat), C.GLsizei(width), C.GLsizei(height), 0, C.GLenum(format), C.GLenum(ty), nil)
}

func (f *Functions) TexParameteri(target, pname Enum, param int) {
	C.glTexParameteri(f.glTexParameteri, C.GLenum(target), C.GLenum(pname), C.GLint(param))
}
