// SPDX-License-Identifier: Unlicense OR MIT

// Package gl loads the small set of OpenGL (ES) functions the surface
// backends need to manage off-screen storage: texture and renderbuffer
// allocation, framebuffer wiring and pixel readback. It is not a general
// GL binding; rendering is the caller's business and goes through whatever
// bindings the caller prefers.
package gl

// Enum is a GLenum.
type Enum uint32

type (
	Object       struct{ V uint32 }
	Framebuffer  Object
	Renderbuffer Object
	Texture      Object
)

func (o Object) valid() bool { return o.V != 0 }

func (t Texture) Valid() bool      { return Object(t).valid() }
func (f Framebuffer) Valid() bool  { return Object(f).valid() }
func (r Renderbuffer) Valid() bool { return Object(r).valid() }

const (
	CLAMP_TO_EDGE            Enum = 0x812f
	COLOR_ATTACHMENT0        Enum = 0x8ce0
	DEPTH_ATTACHMENT         Enum = 0x8d00
	DEPTH_COMPONENT16        Enum = 0x81a5
	DEPTH_COMPONENT24        Enum = 0x81a6
	DEPTH_COMPONENT32F       Enum = 0x8cac
	DEPTH_STENCIL_ATTACHMENT Enum = 0x821a
	DEPTH24_STENCIL8         Enum = 0x88f0
	EXTENSIONS               Enum = 0x1f03
	FRAMEBUFFER              Enum = 0x8d40
	FRAMEBUFFER_BINDING      Enum = 0x8ca6
	FRAMEBUFFER_COMPLETE     Enum = 0x8cd5
	LINEAR                   Enum = 0x2601
	MAJOR_VERSION            Enum = 0x821b
	MAX_SAMPLES              Enum = 0x8d57
	MAX_TEXTURE_SIZE         Enum = 0x0d33
	MINOR_VERSION            Enum = 0x821c
	NEAREST                  Enum = 0x2600
	NO_ERROR                 Enum = 0
	PACK_ALIGNMENT           Enum = 0x0d05
	RENDERBUFFER             Enum = 0x8d41
	RENDERER                 Enum = 0x1f01
	RGBA                     Enum = 0x1908
	RGBA8                    Enum = 0x8058
	STENCIL_ATTACHMENT       Enum = 0x8d20
	STENCIL_INDEX8           Enum = 0x8d48
	TEXTURE_2D               Enum = 0x0de1
	TEXTURE_MAG_FILTER       Enum = 0x2800
	TEXTURE_MIN_FILTER       Enum = 0x2801
	TEXTURE_WRAP_S           Enum = 0x2802
	TEXTURE_WRAP_T           Enum = 0x2803
	UNPACK_ALIGNMENT         Enum = 0x0cf5
	UNSIGNED_BYTE            Enum = 0x1401
	VENDOR                   Enum = 0x1f00
	VERSION                  Enum = 0x1f02
)
