// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"image"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newNativeDevice opens a device on the first hardware adapter. Machines
// that only reach the software rasterizer skip the native tests.
func newNativeDevice(t *testing.T) *Device {
	t.Helper()
	conn := newTestConnection(t)
	a, err := conn.HardwareAdapter()
	if err != nil {
		t.Skipf("no hardware adapter: %v", err)
	}
	dev, err := conn.CreateDevice(a)
	if err != nil {
		t.Skipf("hardware adapter %q did not open: %v", a.Name(), err)
	}
	t.Cleanup(func() {
		if err := dev.Destroy(); err != nil {
			t.Errorf("destroy device: %v", err)
		}
	})
	return dev
}

func TestNativeDeviceCapabilities(t *testing.T) {
	dev := newNativeDevice(t)
	caps := dev.Capabilities()
	assert.False(t, caps.Software)
	assert.True(t, caps.WindowSurfaces)
	assert.NotEqual(t, GLVersion{}, caps.MaxGLVersion)
	assert.GreaterOrEqual(t, caps.MaxSamples, 1)
}

func TestNativeContextLifecycle(t *testing.T) {
	dev := newNativeDevice(t)

	ctx, err := dev.CreateContext(ContextDescriptor{})
	if err != nil {
		t.Skipf("no native context: %v", err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	require.NoError(t, dev.MakeContextCurrent(ctx))
	assert.True(t, ctx.IsCurrent())

	// drivers may hand out a newer version than requested, never older
	v := ctx.GLVersion()
	assert.True(t, v.atLeast(GLVersion{1, 0}), "reported GL %s", v)

	require.NoError(t, dev.ReleaseContextCurrent(ctx))
	assert.False(t, ctx.IsCurrent())
	require.NoError(t, dev.DestroyContext(ctx))
}

func TestNativeVersionAtLeastRequested(t *testing.T) {
	dev := newNativeDevice(t)

	want := GLVersion{3, 0}
	if !dev.Capabilities().MaxGLVersion.atLeast(want) {
		t.Skipf("adapter maxes out at GL %s", dev.Capabilities().MaxGLVersion)
	}
	ctx, err := dev.CreateContext(ContextDescriptor{Version: want})
	if err != nil {
		t.Skipf("no native context: %v", err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	require.NoError(t, dev.MakeContextCurrent(ctx))
	assert.True(t, ctx.GLVersion().atLeast(want), "requested %s, got %s", want, ctx.GLVersion())
	require.NoError(t, dev.ReleaseContextCurrent(ctx))
	require.NoError(t, dev.DestroyContext(ctx))
}

func TestNativeOffscreenSwap(t *testing.T) {
	dev := newNativeDevice(t)

	ctx, err := dev.CreateContext(ContextDescriptor{})
	if err != nil {
		t.Skipf("no native context: %v", err)
	}

	s, err := dev.CreateSurface(ctx, GenericSurface{Size: image.Pt(64, 64)})
	require.NoError(t, err)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	require.NoError(t, dev.MakeContextCurrent(ctx))
	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	require.NoError(t, dev.SwapSurface(ctx, s))

	img, err := dev.ReadSurface(s)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 64), img.Rect.Size())

	_, err = dev.UnbindSurfaceFromContext(ctx)
	require.NoError(t, err)
	require.NoError(t, dev.ReleaseContextCurrent(ctx))
	require.NoError(t, dev.DestroySurface(s))
	require.NoError(t, dev.DestroyContext(ctx))
}

func TestNativeSurfaceTexture(t *testing.T) {
	dev := newNativeDevice(t)

	render, err := dev.CreateContext(ContextDescriptor{})
	if err != nil {
		t.Skipf("no native context: %v", err)
	}
	sample, err := dev.CreateContext(ContextDescriptor{})
	require.NoError(t, err)

	s, err := dev.CreateSurface(render, GenericSurface{Size: image.Pt(32, 32)})
	require.NoError(t, err)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	require.NoError(t, dev.MakeContextCurrent(render))
	require.NoError(t, dev.BindSurfaceToContext(render, s))
	require.NoError(t, dev.SwapSurface(render, s))
	_, err = dev.UnbindSurfaceFromContext(render)
	require.NoError(t, err)

	require.NoError(t, dev.MakeContextCurrent(sample))
	tex, err := dev.CreateSurfaceTexture(sample, s)
	require.NoError(t, err)

	name, target, err := tex.GLTexture()
	require.NoError(t, err)
	assert.NotZero(t, name)
	assert.NotZero(t, target)

	// GPU textures expose no CPU pixels
	_, err = tex.RGBA()
	assert.ErrorIs(t, err, ErrInvalidSurfaceType)

	_, err = dev.DestroySurfaceTexture(tex)
	require.NoError(t, err)
	require.NoError(t, dev.ReleaseContextCurrent(sample))

	require.NoError(t, dev.DestroySurface(s))
	require.NoError(t, dev.DestroyContext(sample))
	require.NoError(t, dev.DestroyContext(render))
}
