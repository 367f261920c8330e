// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"image"
	"image/color"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bogusSurfaceType struct{}

func (bogusSurfaceType) surfaceType() {}

func TestCreateSurfaceInvalidSize(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	for _, size := range []image.Point{
		{X: 0, Y: 64},
		{X: 64, Y: 0},
		{},
		{X: -1, Y: 64},
		{X: 64, Y: -1},
	} {
		_, err := dev.CreateSurface(ctx, GenericSurface{Size: size})
		assert.ErrorIs(t, err, ErrInvalidSize, "size %v", size)
	}
}

func TestCreateSurfaceBadType(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)

	_, err := dev.CreateSurface(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidSurfaceType)
	_, err = dev.CreateSurface(ctx, bogusSurfaceType{})
	assert.ErrorIs(t, err, ErrInvalidSurfaceType)
}

func TestWidgetSurfaceOnSoftwareAdapter(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)

	_, err := dev.CreateSurface(ctx, WidgetSurface{Widget: NativeWidget(0xbeef)})
	assert.ErrorIs(t, err, ErrSurfaceCreationFailed)

	// a zero widget handle never reaches the backend
	_, err = dev.CreateSurface(ctx, WidgetSurface{})
	assert.ErrorIs(t, err, ErrSurfaceCreationFailed)
}

func TestBindUnbind(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(64, 64))

	assert.False(t, s.IsWidget())
	assert.Equal(t, image.Pt(64, 64), s.Size())

	// nothing attached yet
	got, err := dev.UnbindSurfaceFromContext(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	assert.Same(t, s, ctx.Surface())
	assert.Same(t, ctx, s.Context())

	// rebinding the attached pair is a no-op
	require.NoError(t, dev.BindSurfaceToContext(ctx, s))

	// a second surface cannot displace the attachment
	s2 := newGenericSurface(t, dev, ctx, image.Pt(32, 32))
	assert.ErrorIs(t, dev.BindSurfaceToContext(ctx, s2), ErrAlreadyAttached)

	// nor can the attached surface move to another context
	ctx2 := newTestContext(t, dev)
	assert.ErrorIs(t, dev.BindSurfaceToContext(ctx2, s), ErrAlreadyAttached)

	got, err = dev.UnbindSurfaceFromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Nil(t, ctx.Surface())
	assert.Nil(t, s.Context())

	// a detached surface moves freely
	require.NoError(t, dev.BindSurfaceToContext(ctx2, s))
	got, err = dev.UnbindSurfaceFromContext(ctx2)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestDestroySurfaceWhileAttached(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(16, 16))

	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	assert.ErrorIs(t, dev.DestroySurface(s), ErrSurfaceInUse)

	_, err := dev.UnbindSurfaceFromContext(ctx)
	require.NoError(t, err)
	require.NoError(t, dev.DestroySurface(s))
}

func TestDestroyContextDetachesSurface(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(16, 16))

	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	require.NoError(t, dev.DestroyContext(ctx))

	// the surface outlives its context, detached
	assert.Nil(t, s.Context())
	assert.Equal(t, image.Pt(16, 16), s.Size())

	ctx2 := newTestContext(t, dev)
	require.NoError(t, dev.BindSurfaceToContext(ctx2, s))
}

func TestSwapRequiresAttachmentAndCurrent(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(16, 16))

	// not attached
	assert.ErrorIs(t, dev.SwapSurface(ctx, s), ErrPresentFailed)

	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	// attached but not current
	assert.ErrorIs(t, dev.SwapSurface(ctx, s), ErrPresentFailed)

	makeCurrent(t, dev, ctx)
	require.NoError(t, dev.SwapSurface(ctx, s))

	// current here, not on the swapping thread
	res := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		res <- dev.SwapSurface(ctx, s)
	}()
	assert.ErrorIs(t, <-res, ErrPresentFailed)
}

func TestSwapRotatesBuffers(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(8, 8))
	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	makeCurrent(t, dev, ctx)

	colors := []color.RGBA{
		{R: 0xff, A: 0xff},
		{G: 0xff, A: 0xff},
		{B: 0xff, A: 0xff},
		{R: 0xff, G: 0xff, A: 0xff},
	}
	for i, c := range colors {
		fillBack(t, s, c)
		require.NoError(t, dev.SwapSurface(ctx, s))
		img, err := dev.ReadSurface(s)
		require.NoError(t, err)
		assert.Equal(t, c, img.RGBAAt(4, 4), "after swap %d", i)
	}
}

func TestReadSurfaceSnapshots(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(8, 8))
	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	makeCurrent(t, dev, ctx)

	red := color.RGBA{R: 0xff, A: 0xff}
	fillBack(t, s, red)
	require.NoError(t, dev.SwapSurface(ctx, s))

	img, err := dev.ReadSurface(s)
	require.NoError(t, err)
	require.Equal(t, image.Pt(8, 8), img.Rect.Size())

	// mutating the snapshot does not touch the surface
	img.SetRGBA(0, 0, color.RGBA{B: 0xff, A: 0xff})
	img2, err := dev.ReadSurface(s)
	require.NoError(t, err)
	assert.Equal(t, red, img2.RGBAAt(0, 0))
}

func TestResizeSurface(t *testing.T) {
	dev := newSoftwareDevice(t)
	ctx := newTestContext(t, dev)
	s := newGenericSurface(t, dev, ctx, image.Pt(16, 16))

	require.NoError(t, dev.ResizeSurface(s, image.Pt(32, 48)))
	assert.Equal(t, image.Pt(32, 48), s.Size())

	// a rejected size leaves the surface as it was
	assert.ErrorIs(t, dev.ResizeSurface(s, image.Pt(0, 48)), ErrInvalidSize)
	assert.ErrorIs(t, dev.ResizeSurface(s, image.Pt(-3, 4)), ErrInvalidSize)
	assert.Equal(t, image.Pt(32, 48), s.Size())

	// resizing an attached surface keeps the attachment
	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	require.NoError(t, dev.ResizeSurface(s, image.Pt(64, 64)))
	assert.Same(t, ctx, s.Context())
	assert.Equal(t, image.Pt(64, 64), s.Size())
}

// TestOffscreenScenario walks the whole lifecycle the way a renderer
// would: connect, pick the best adapter, render into a generic surface,
// resize, render again and tear everything down.
func TestOffscreenScenario(t *testing.T) {
	conn := newTestConnection(t)
	adapters, err := conn.EnumerateAdapters()
	require.NoError(t, err)
	require.NotEmpty(t, adapters)

	dev, err := conn.CreateDevice(adapters[0])
	if err != nil {
		t.Skipf("adapter %q did not open: %v", adapters[0].Name(), err)
	}
	native := !dev.Capabilities().Software

	desc := ContextDescriptor{DepthBits: 24, StencilBits: 8}
	if dev.Capabilities().MaxGLVersion.atLeast(GLVersion{3, 3}) {
		desc.Version = GLVersion{3, 3}
	}
	ctx, err := dev.CreateContext(desc)
	if err != nil && native {
		require.NoError(t, dev.Destroy())
		t.Skipf("no native context: %v", err)
	}
	require.NoError(t, err)

	s, err := dev.CreateSurface(ctx, GenericSurface{Size: image.Pt(800, 600)})
	require.NoError(t, err)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	require.NoError(t, dev.MakeContextCurrent(ctx))
	require.NoError(t, dev.BindSurfaceToContext(ctx, s))
	require.NoError(t, dev.SwapSurface(ctx, s))

	require.NoError(t, dev.ResizeSurface(s, image.Pt(1600, 1200)))
	assert.Equal(t, image.Pt(1600, 1200), s.Size())
	require.NoError(t, dev.SwapSurface(ctx, s))

	img, err := dev.ReadSurface(s)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1600, 1200), img.Rect.Size())

	_, err = dev.UnbindSurfaceFromContext(ctx)
	require.NoError(t, err)
	require.NoError(t, dev.ReleaseContextCurrent(ctx))
	require.NoError(t, dev.DestroySurface(s))
	require.NoError(t, dev.DestroyContext(ctx))
	require.NoError(t, dev.Destroy())
}
