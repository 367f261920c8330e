// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-surf/surf/internal/software"
)

// newTestConnection opens a connection and closes it when the test ends.
func newTestConnection(t *testing.T) *Connection {
	t.Helper()
	conn, err := Connect()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Errorf("close connection: %v", err)
		}
	})
	return conn
}

// newSoftwareDevice opens a device on the software adapter, which every
// machine has. The software backend goes through the same lifecycle and
// affinity checks as the native ones, so the state machines are testable
// without a GPU.
func newSoftwareDevice(t *testing.T) *Device {
	t.Helper()
	conn := newTestConnection(t)
	a, err := conn.SoftwareAdapter()
	if err != nil {
		t.Fatal(err)
	}
	dev, err := conn.CreateDevice(a)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := dev.Destroy(); err != nil {
			t.Errorf("destroy device: %v", err)
		}
	})
	return dev
}

func newTestContext(t *testing.T, dev *Device) *Context {
	t.Helper()
	ctx, err := dev.CreateContext(ContextDescriptor{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		err := dev.DestroyContext(ctx)
		if err != nil && !errors.Is(err, ErrContextDestroyed) && !errors.Is(err, ErrDeviceDestroyed) {
			t.Errorf("destroy context: %v", err)
		}
	})
	return ctx
}

func newGenericSurface(t *testing.T, dev *Device, ctx *Context, size image.Point) *Surface {
	t.Helper()
	s, err := dev.CreateSurface(ctx, GenericSurface{Size: size})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if c := s.Context(); c != nil {
			if _, err := dev.UnbindSurfaceFromContext(c); err != nil {
				t.Errorf("unbind surface: %v", err)
			}
		}
		err := dev.DestroySurface(s)
		if err != nil && !errors.Is(err, ErrSurfaceDestroyed) && !errors.Is(err, ErrDeviceDestroyed) {
			t.Errorf("destroy surface: %v", err)
		}
	})
	return s
}

// makeCurrent pins the test goroutine to its OS thread and makes ctx
// current there for the rest of the test.
func makeCurrent(t *testing.T, dev *Device, ctx *Context) {
	t.Helper()
	runtime.LockOSThread()
	if err := dev.MakeContextCurrent(ctx); err != nil {
		runtime.UnlockOSThread()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		err := dev.ReleaseContextCurrent(ctx)
		if err != nil && !errors.Is(err, ErrContextDestroyed) && !errors.Is(err, ErrDeviceDestroyed) {
			t.Errorf("release context: %v", err)
		}
		runtime.UnlockOSThread()
	})
}

// fillBack paints the surface's back buffer through the software backend;
// the next swap publishes it.
func fillBack(t *testing.T, s *Surface, c color.RGBA) {
	t.Helper()
	sw, ok := s.bs.(*software.Surface)
	if !ok {
		t.Fatalf("surface is %T, not software backed", s.bs)
	}
	back := sw.Back()
	draw.Draw(back, back.Rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func TestSoftwareDeviceCapabilities(t *testing.T) {
	dev := newSoftwareDevice(t)
	caps := dev.Capabilities()
	assert.True(t, caps.Software)
	assert.False(t, caps.WindowSurfaces)
	assert.Equal(t, GLVersion{}, caps.MaxGLVersion)
	assert.Equal(t, 1, caps.MaxSamples)
	assert.Equal(t, AdapterSoftware, dev.Adapter().Kind())
}

func TestCreateContextValidatesDescriptor(t *testing.T) {
	dev := newSoftwareDevice(t)
	for _, desc := range []ContextDescriptor{
		{ColorBits: 15},
		{DepthBits: 8},
		{StencilBits: 4},
		{Samples: 3},
		{Version: GLVersion{3, 3}},
	} {
		_, err := dev.CreateContext(desc)
		assert.ErrorIs(t, err, ErrUnsupportedConfig, "descriptor %+v", desc)
	}
}

func TestContextCurrentLifecycle(t *testing.T) {
	dev := newSoftwareDevice(t)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for _, desc := range []ContextDescriptor{
		{},
		{SoftwareRendering: true},
		{ColorBits: 16, DepthBits: 24, StencilBits: 8},
		{ColorBits: 24, DepthBits: 32},
		{Samples: 1},
	} {
		ctx, err := dev.CreateContext(desc)
		require.NoError(t, err, "descriptor %+v", desc)
		assert.Equal(t, desc, ctx.Descriptor())
		assert.False(t, ctx.IsCurrent())

		require.NoError(t, dev.MakeContextCurrent(ctx))
		assert.True(t, ctx.IsCurrent())

		require.NoError(t, dev.ReleaseContextCurrent(ctx))
		assert.False(t, ctx.IsCurrent())

		require.NoError(t, dev.DestroyContext(ctx))
	}
}

func TestMakeCurrentTwiceSameThread(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	makeCurrent(t, dev, ctx)
	require.NoError(t, dev.MakeContextCurrent(ctx))
	assert.True(t, ctx.IsCurrent())
}

func TestReleaseNotCurrentIsNoop(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	require.NoError(t, dev.ReleaseContextCurrent(ctx))
	assert.False(t, ctx.IsCurrent())
}

func TestImplicitRelease(t *testing.T) {
	dev := newSoftwareDevice(t)
	a := newTestContext(t, dev)
	b := newTestContext(t, dev)

	makeCurrent(t, dev, a)
	require.NoError(t, dev.MakeContextCurrent(b))
	defer func() {
		require.NoError(t, dev.ReleaseContextCurrent(b))
	}()

	assert.False(t, a.IsCurrent())
	assert.True(t, b.IsCurrent())

	// the displaced context can be released again without effect
	require.NoError(t, dev.ReleaseContextCurrent(a))
	assert.True(t, b.IsCurrent())
}

func TestMakeCurrentCrossThread(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	makeCurrent(t, dev, ctx)

	res := make(chan error, 2)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		res <- dev.MakeContextCurrent(ctx)
		res <- dev.ReleaseContextCurrent(ctx)
	}()
	assert.ErrorIs(t, <-res, ErrContextNotThreadSafe)
	assert.ErrorIs(t, <-res, ErrContextNotThreadSafe)

	// the owning thread keeps the context
	assert.True(t, ctx.IsCurrent())
}

func TestBindCrossThread(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(16, 16))
	makeCurrent(t, dev, ctx)

	res := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		res <- dev.BindSurfaceToContext(ctx, s)
	}()
	assert.ErrorIs(t, <-res, ErrContextNotThreadSafe)
	assert.Nil(t, s.Context())
	assert.Nil(t, ctx.Surface())
}

func TestUnbindCrossThread(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(16, 16))
	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	makeCurrent(t, dev, ctx)

	res := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_, err := dev.UnbindSurfaceFromContext(ctx)
		res <- err
	}()
	assert.ErrorIs(t, <-res, ErrContextNotThreadSafe)
	assert.Same(t, ctx, s.Context())
}

func TestDestroyContextWhileCurrent(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	makeCurrent(t, dev, ctx)

	assert.ErrorIs(t, dev.DestroyContext(ctx), ErrContextStillCurrent)
	assert.True(t, ctx.IsCurrent())
}

func TestDeviceDestroyWithLiveObjects(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(32, 32))
	makeCurrent(t, dev, ctx)

	err := dev.Destroy()
	var cv *ContractViolationError
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, 1, cv.Contexts)
	assert.Equal(t, 1, cv.Surfaces)

	// a contract violation is a programming error, not one of the
	// recoverable sentinels
	for _, sentinel := range []error{
		ErrDeviceDestroyed, ErrContextDestroyed, ErrSurfaceDestroyed,
		ErrContextStillCurrent, ErrSurfaceInUse, ErrDeviceCreationFailed,
	} {
		assert.False(t, errors.Is(err, sentinel), "matched %v", sentinel)
	}

	// the device and its objects are left untouched
	assert.True(t, ctx.IsCurrent())
	assert.Equal(t, image.Pt(32, 32), s.Size())
	ctx2, err := dev.CreateContext(ContextDescriptor{})
	require.NoError(t, err)
	require.NoError(t, dev.DestroyContext(ctx2))
}

func TestUseAfterDestroy(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(16, 16))

	require.NoError(t, dev.DestroyContext(ctx))
	assert.ErrorIs(t, dev.MakeContextCurrent(ctx), ErrContextDestroyed)
	assert.ErrorIs(t, dev.ReleaseContextCurrent(ctx), ErrContextDestroyed)
	assert.ErrorIs(t, dev.BindSurfaceToContext(ctx, s), ErrContextDestroyed)
	_, err := dev.UnbindSurfaceFromContext(ctx)
	assert.ErrorIs(t, err, ErrContextDestroyed)
	_, err = dev.CreateSurface(ctx, GenericSurface{Size: image.Pt(4, 4)})
	assert.ErrorIs(t, err, ErrContextDestroyed)
	assert.ErrorIs(t, dev.SwapSurface(ctx, s), ErrContextDestroyed)
	_, err = dev.CreateSurfaceTexture(ctx, s)
	assert.ErrorIs(t, err, ErrContextDestroyed)
	assert.ErrorIs(t, dev.DestroyContext(ctx), ErrContextDestroyed)

	require.NoError(t, dev.DestroySurface(s))
	assert.ErrorIs(t, dev.ResizeSurface(s, image.Pt(8, 8)), ErrSurfaceDestroyed)
	_, err = dev.ReadSurface(s)
	assert.ErrorIs(t, err, ErrSurfaceDestroyed)
	assert.ErrorIs(t, dev.DestroySurface(s), ErrSurfaceDestroyed)
	assert.Equal(t, image.Point{}, s.Size())

	ctx2, err := dev.CreateContext(ContextDescriptor{})
	require.NoError(t, err)
	assert.ErrorIs(t, dev.BindSurfaceToContext(ctx2, s), ErrSurfaceDestroyed)
	require.NoError(t, dev.DestroyContext(ctx2))

	require.NoError(t, dev.Destroy())
	_, err = dev.CreateContext(ContextDescriptor{})
	assert.ErrorIs(t, err, ErrDeviceDestroyed)
	_, err = dev.CreateSurface(ctx, GenericSurface{Size: image.Pt(4, 4)})
	assert.ErrorIs(t, err, ErrDeviceDestroyed)
	assert.ErrorIs(t, dev.MakeContextCurrent(ctx), ErrDeviceDestroyed)
	assert.ErrorIs(t, dev.ResizeSurface(s, image.Pt(8, 8)), ErrDeviceDestroyed)

	// destroying an already destroyed device is a no-op
	require.NoError(t, dev.Destroy())
}

func TestSharingGroupMismatch(t *testing.T) {
	dev1 := newSoftwareDevice(t)
	dev2 := newSoftwareDevice(t)
	ctx1 := newTestContext(t, dev1)
	ctx2 := newTestContext(t, dev2)
	s1 := newGenericSurface(t, dev1, ctx1, image.Pt(8, 8))

	require.NoError(t, dev1.BindSurfaceToContext(ctx1, s1))

	// the surface stays attached where it was
	assert.ErrorIs(t, dev2.BindSurfaceToContext(ctx2, s1), ErrSharingGroupMismatch)
	assert.Same(t, ctx1, s1.Context())

	assert.ErrorIs(t, dev2.DestroyContext(ctx1), ErrSharingGroupMismatch)
	assert.ErrorIs(t, dev2.MakeContextCurrent(ctx1), ErrSharingGroupMismatch)
	_, err := dev2.CreateSurfaceTexture(ctx2, s1)
	assert.ErrorIs(t, err, ErrSharingGroupMismatch)
	_, err = dev1.CreateSurface(ctx2, GenericSurface{Size: image.Pt(4, 4)})
	assert.ErrorIs(t, err, ErrSharingGroupMismatch)
	assert.ErrorIs(t, dev2.DestroySurface(s1), ErrSharingGroupMismatch)
}

func TestContextIDsUnique(t *testing.T) {
	dev := newSoftwareDevice(t)
	a := newTestContext(t, dev)
	b := newTestContext(t, dev)
	s := newGenericSurface(t, dev, a, image.Pt(4, 4))
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), s.ID())
	assert.NotEqual(t, b.ID(), s.ID())
}
