// SPDX-License-Identifier: Unlicense OR MIT

package software

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-surf/surf/internal/backend"
)

func newTestDevice(t *testing.T) backend.Device {
	t.Helper()
	disp, err := Backend{}.Open(0)
	require.NoError(t, err)
	infos := disp.Adapters()
	require.Len(t, infos, 1)
	dev, err := disp.OpenDevice(infos[0])
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, dev.Destroy())
		assert.NoError(t, disp.Close())
	})
	return dev
}

func TestOpenAlwaysSucceeds(t *testing.T) {
	// the native display handle has no meaning for a CPU rasterizer
	disp, err := Backend{}.Open(0xdeadbeef)
	require.NoError(t, err)

	infos := disp.Adapters()
	require.Len(t, infos, 1)
	assert.Equal(t, backend.AdapterSoftware, infos[0].Kind)
	assert.Equal(t, "software", infos[0].Backend)

	require.NoError(t, disp.Close())
	_, err = disp.OpenDevice(infos[0])
	assert.ErrorIs(t, err, backend.ErrDeviceCreationFailed)
}

func TestOpenDeviceUnknownAdapter(t *testing.T) {
	disp, err := Backend{}.Open(0)
	require.NoError(t, err)
	defer disp.Close()

	_, err = disp.OpenDevice(backend.AdapterInfo{
		Kind: backend.AdapterHardware,
		Name: "not ours",
	})
	assert.ErrorIs(t, err, backend.ErrDeviceCreationFailed)
}

func TestCapabilities(t *testing.T) {
	dev := newTestDevice(t)
	caps := dev.Capabilities()
	assert.True(t, caps.Software)
	assert.False(t, caps.WindowSurfaces)
	assert.Zero(t, caps.MaxGLMajor)
	assert.Zero(t, caps.MaxGLMinor)
	assert.Equal(t, 1, caps.MaxSamples)
}

func TestCreateContext(t *testing.T) {
	dev := newTestDevice(t)

	_, err := dev.CreateContext(backend.Config{GLMajor: 3, GLMinor: 3})
	assert.ErrorIs(t, err, backend.ErrContextCreationFailed)

	ctx, err := dev.CreateContext(backend.Config{ColorBits: 32, Samples: 1})
	require.NoError(t, err)
	major, minor := ctx.GLVersion()
	assert.Zero(t, major)
	assert.Zero(t, minor)
	require.NoError(t, dev.DestroyContext(ctx))
}

func TestWindowSurfacesUnsupported(t *testing.T) {
	dev := newTestDevice(t)
	ctx, err := dev.CreateContext(backend.Config{ColorBits: 32, Samples: 1})
	require.NoError(t, err)

	_, err = dev.CreateWindowSurface(ctx, 1)
	assert.ErrorIs(t, err, backend.ErrSurfaceCreationFailed)
	assert.ErrorIs(t, dev.PresentWindowSurface(ctx, nil), backend.ErrPresentFailed)
}

func TestSurfaceDoubleBuffering(t *testing.T) {
	s := newSurface(image.Pt(4, 4))
	red := color.RGBA{R: 0xff, A: 0xff}

	s.Back().SetRGBA(1, 1, red)
	// the draw stays invisible until the swap
	assert.Equal(t, color.RGBA{}, s.Front().RGBAAt(1, 1))

	s.swap()
	assert.Equal(t, red, s.Front().RGBAAt(1, 1))
	// the old front is now the back buffer
	assert.Equal(t, color.RGBA{}, s.Back().RGBAAt(1, 1))

	s.swap()
	assert.Equal(t, red, s.Back().RGBAAt(1, 1))
}

func TestSnapshotCopies(t *testing.T) {
	s := newSurface(image.Pt(2, 2))
	red := color.RGBA{R: 0xff, A: 0xff}
	s.Back().SetRGBA(0, 0, red)
	s.swap()

	snap := s.snapshot()
	assert.Equal(t, red, snap.RGBAAt(0, 0))

	snap.SetRGBA(0, 0, color.RGBA{B: 0xff, A: 0xff})
	assert.Equal(t, red, s.Front().RGBAAt(0, 0))
}

func TestResizeReallocates(t *testing.T) {
	s := newSurface(image.Pt(2, 2))
	old := s.Back()

	s.resize(image.Pt(8, 8))
	assert.Equal(t, image.Pt(8, 8), s.Size())
	assert.NotSame(t, old, s.Back())
	assert.Equal(t, image.Rect(0, 0, 8, 8), s.Back().Rect)
	assert.Equal(t, image.Rect(0, 0, 8, 8), s.Front().Rect)
}

func TestExportFront(t *testing.T) {
	s := newSurface(image.Pt(4, 4))
	red := color.RGBA{R: 0xff, A: 0xff}
	s.Back().SetRGBA(2, 2, red)
	s.swap()

	tex := s.exportFront()
	// the borrow shares the front buffer rather than copying it
	assert.Same(t, s.Front(), tex.RGBA())
	assert.Equal(t, red, tex.RGBA().RGBAAt(2, 2))

	name, target := tex.GLTexture()
	assert.Zero(t, name)
	assert.Zero(t, target)
}

func TestDeviceSurfaceOps(t *testing.T) {
	dev := newTestDevice(t)
	ctx, err := dev.CreateContext(backend.Config{ColorBits: 32, Samples: 1})
	require.NoError(t, err)

	bs, err := dev.CreateGenericSurface(ctx, image.Pt(4, 4))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 4), bs.Size())

	require.NoError(t, dev.MakeCurrent(ctx, bs))
	require.NoError(t, dev.SwapGenericSurface(ctx, bs))
	require.NoError(t, dev.ResizeSurface(ctx, bs, image.Pt(8, 8)))
	assert.Equal(t, image.Pt(8, 8), bs.Size())

	img, err := dev.ReadSurface(bs)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 8), img.Rect.Size())

	tex, err := dev.CreateSurfaceTexture(ctx, bs)
	require.NoError(t, err)
	require.NoError(t, dev.DestroySurfaceTexture(ctx, tex))

	require.NoError(t, dev.ReleaseCurrent())
	require.NoError(t, dev.DestroySurface(bs))
	require.NoError(t, dev.DestroyContext(ctx))
}
