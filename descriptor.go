// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"fmt"

	"github.com/go-surf/surf/internal/backend"
)

// GLVersion is an OpenGL version request. The zero value asks for the
// backend's default, which is the newest version the driver offers.
type GLVersion struct {
	Major, Minor int
}

func (v GLVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// atLeast reports whether v satisfies a request for w.
func (v GLVersion) atLeast(w GLVersion) bool {
	return v.Major > w.Major || (v.Major == w.Major && v.Minor >= w.Minor)
}

// ContextDescriptor describes the context a caller needs. It is an
// immutable value; Device.CreateContext checks it against the adapter's
// capabilities before any native call, so impossible combinations fail
// with ErrUnsupportedConfig instead of an opaque driver code.
//
// The zero value requests the backend's default version, a 32 bit color
// buffer, no depth buffer, no stencil buffer and no multisampling.
type ContextDescriptor struct {
	// Version is the minimum GL version. Zero means backend default.
	Version GLVersion

	// ColorBits is the total color buffer depth. 0 means 32. Valid
	// values are 16, 24 and 32.
	ColorBits int

	// DepthBits is the depth buffer size. 0 requests no depth buffer.
	// Valid values are 0, 16, 24 and 32.
	DepthBits int

	// StencilBits is the stencil buffer size, 0 or 8.
	StencilBits int

	// Samples is the multisample count. 0 and 1 both mean no
	// multisampling; otherwise it must be a power of two no larger
	// than the adapter's maximum.
	Samples int

	// SoftwareRendering requires a CPU rasterizer. Descriptors with it
	// set are only representable on a software adapter.
	SoftwareRendering bool
}

// validate checks desc against caps and returns the normalized backend
// configuration.
func (desc ContextDescriptor) validate(caps backend.Capabilities) (backend.Config, error) {
	var cfg backend.Config

	if desc.SoftwareRendering && !caps.Software {
		return cfg, fmt.Errorf("surf: software rendering requested on a hardware adapter: %w", ErrUnsupportedConfig)
	}

	if v := desc.Version; v != (GLVersion{}) {
		if v.Major < 1 || v.Minor < 0 {
			return cfg, fmt.Errorf("surf: malformed GL version %s: %w", v, ErrUnsupportedConfig)
		}
		max := GLVersion{caps.MaxGLMajor, caps.MaxGLMinor}
		if !max.atLeast(v) {
			return cfg, fmt.Errorf("surf: GL %s exceeds adapter maximum %s: %w", v, max, ErrUnsupportedConfig)
		}
		cfg.GLMajor, cfg.GLMinor = v.Major, v.Minor
	}

	switch desc.ColorBits {
	case 0:
		cfg.ColorBits = 32
	case 16, 24, 32:
		cfg.ColorBits = desc.ColorBits
	default:
		return cfg, fmt.Errorf("surf: %d color bits: %w", desc.ColorBits, ErrUnsupportedConfig)
	}

	switch desc.DepthBits {
	case 0, 16, 24, 32:
		cfg.DepthBits = desc.DepthBits
	default:
		return cfg, fmt.Errorf("surf: %d depth bits: %w", desc.DepthBits, ErrUnsupportedConfig)
	}

	switch desc.StencilBits {
	case 0, 8:
		cfg.StencilBits = desc.StencilBits
	default:
		return cfg, fmt.Errorf("surf: %d stencil bits: %w", desc.StencilBits, ErrUnsupportedConfig)
	}

	switch s := desc.Samples; {
	case s == 0 || s == 1:
		cfg.Samples = 1
	case s < 0 || s&(s-1) != 0:
		return cfg, fmt.Errorf("surf: sample count %d is not a power of two: %w", s, ErrUnsupportedConfig)
	case s > caps.MaxSamples:
		return cfg, fmt.Errorf("surf: sample count %d exceeds adapter maximum %d: %w", s, caps.MaxSamples, ErrUnsupportedConfig)
	default:
		cfg.Samples = s
	}

	return cfg, nil
}

// Capabilities describes what contexts and surfaces a Device can create.
type Capabilities struct {
	// MaxGLVersion is the newest version CreateContext can request.
	MaxGLVersion GLVersion

	// MaxSamples is the largest accepted ContextDescriptor.Samples,
	// 1 when multisampling is unavailable.
	MaxSamples int

	// WindowSurfaces reports whether widget surfaces can be created.
	WindowSurfaces bool

	// Software reports a CPU rasterizer with no native GL behind it.
	Software bool
}

func capabilitiesFromBackend(caps backend.Capabilities) Capabilities {
	return Capabilities{
		MaxGLVersion:   GLVersion{caps.MaxGLMajor, caps.MaxGLMinor},
		MaxSamples:     caps.MaxSamples,
		WindowSurfaces: caps.WindowSurfaces,
		Software:       caps.Software,
	}
}
