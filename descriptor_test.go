// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-surf/surf/internal/backend"
)

func TestDescriptorValidate(t *testing.T) {
	caps := backend.Capabilities{
		MaxGLMajor:     4,
		MaxGLMinor:     6,
		MaxSamples:     16,
		WindowSurfaces: true,
	}
	tests := []struct {
		name string
		desc ContextDescriptor
		ok   bool
	}{
		{"zero value", ContextDescriptor{}, true},
		{"max version", ContextDescriptor{Version: GLVersion{4, 6}}, true},
		{"older version", ContextDescriptor{Version: GLVersion{3, 3}}, true},
		{"minor above max", ContextDescriptor{Version: GLVersion{4, 7}}, false},
		{"major above max", ContextDescriptor{Version: GLVersion{5, 0}}, false},
		{"major below one", ContextDescriptor{Version: GLVersion{-1, 2}}, false},
		{"negative minor", ContextDescriptor{Version: GLVersion{3, -1}}, false},
		{"16 bit color", ContextDescriptor{ColorBits: 16}, true},
		{"24 bit color", ContextDescriptor{ColorBits: 24}, true},
		{"32 bit color", ContextDescriptor{ColorBits: 32}, true},
		{"odd color depth", ContextDescriptor{ColorBits: 15}, false},
		{"negative color depth", ContextDescriptor{ColorBits: -8}, false},
		{"16 bit depth", ContextDescriptor{DepthBits: 16}, true},
		{"24 bit depth", ContextDescriptor{DepthBits: 24}, true},
		{"32 bit depth", ContextDescriptor{DepthBits: 32}, true},
		{"odd depth", ContextDescriptor{DepthBits: 8}, false},
		{"8 bit stencil", ContextDescriptor{StencilBits: 8}, true},
		{"odd stencil", ContextDescriptor{StencilBits: 4}, false},
		{"single sampled", ContextDescriptor{Samples: 1}, true},
		{"4x msaa", ContextDescriptor{Samples: 4}, true},
		{"16x msaa", ContextDescriptor{Samples: 16}, true},
		{"not a power of two", ContextDescriptor{Samples: 3}, false},
		{"above max samples", ContextDescriptor{Samples: 32}, false},
		{"negative samples", ContextDescriptor{Samples: -2}, false},
		{"software on hardware", ContextDescriptor{SoftwareRendering: true}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.desc.validate(caps)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnsupportedConfig)
			}
		})
	}
}

func TestDescriptorNormalization(t *testing.T) {
	caps := backend.Capabilities{MaxGLMajor: 4, MaxGLMinor: 6, MaxSamples: 16}

	cfg, err := ContextDescriptor{}.validate(caps)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.GLMajor)
	assert.Equal(t, 32, cfg.ColorBits)
	assert.Equal(t, 0, cfg.DepthBits)
	assert.Equal(t, 0, cfg.StencilBits)
	assert.Equal(t, 1, cfg.Samples)

	cfg, err = ContextDescriptor{
		Version:     GLVersion{3, 3},
		ColorBits:   24,
		DepthBits:   24,
		StencilBits: 8,
		Samples:     4,
	}.validate(caps)
	require.NoError(t, err)
	assert.Equal(t, backend.Config{
		GLMajor:     3,
		GLMinor:     3,
		ColorBits:   24,
		DepthBits:   24,
		StencilBits: 8,
		Samples:     4,
	}, cfg)

	// 0 and 1 samples both mean single sampled
	cfg, err = ContextDescriptor{Samples: 1}.validate(caps)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Samples)
}

func TestDescriptorSoftwareRendering(t *testing.T) {
	sw := backend.Capabilities{MaxSamples: 1, Software: true}

	_, err := ContextDescriptor{SoftwareRendering: true}.validate(sw)
	assert.NoError(t, err)

	// a version request needs a GL implementation behind the adapter
	_, err = ContextDescriptor{Version: GLVersion{2, 0}}.validate(sw)
	assert.ErrorIs(t, err, ErrUnsupportedConfig)
}

func TestGLVersion(t *testing.T) {
	assert.Equal(t, "4.6", GLVersion{4, 6}.String())
	assert.Equal(t, "0.0", GLVersion{}.String())

	assert.True(t, GLVersion{3, 3}.atLeast(GLVersion{3, 3}))
	assert.True(t, GLVersion{4, 0}.atLeast(GLVersion{3, 3}))
	assert.True(t, GLVersion{3, 4}.atLeast(GLVersion{3, 3}))
	assert.False(t, GLVersion{3, 2}.atLeast(GLVersion{3, 3}))
	assert.False(t, GLVersion{2, 9}.atLeast(GLVersion{3, 0}))
}

func TestCapabilitiesFromBackend(t *testing.T) {
	caps := capabilitiesFromBackend(backend.Capabilities{
		MaxGLMajor:     4,
		MaxGLMinor:     1,
		MaxSamples:     8,
		WindowSurfaces: true,
	})
	assert.Equal(t, Capabilities{
		MaxGLVersion:   GLVersion{4, 1},
		MaxSamples:     8,
		WindowSurfaces: true,
	}, caps)
}
