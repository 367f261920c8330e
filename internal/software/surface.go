// SPDX-License-Identifier: Unlicense OR MIT

package software

import (
	"image"
	"image/draw"
	"sync"
)

// Surface is a double-buffered CPU surface. The mutex orders buffer
// rotation against snapshots and resizes; rendering into the back buffer
// happens through Back under the same lock discipline.
type Surface struct {
	mu    sync.Mutex
	size  image.Point
	front *image.RGBA
	back  *image.RGBA
}

func newSurface(size image.Point) *Surface {
	r := image.Rect(0, 0, size.X, size.Y)
	return &Surface{
		size:  size,
		front: image.NewRGBA(r),
		back:  image.NewRGBA(r),
	}
}

func (s *Surface) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Back returns the buffer the next swap will publish. Callers draw into it
// and must not retain it across a resize.
func (s *Surface) Back() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back
}

// Front returns the last published buffer.
func (s *Surface) Front() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.front
}

func (s *Surface) swap() {
	s.mu.Lock()
	s.front, s.back = s.back, s.front
	s.mu.Unlock()
}

func (s *Surface) resize(size image.Point) {
	r := image.Rect(0, 0, size.X, size.Y)
	s.mu.Lock()
	s.size = size
	s.front = image.NewRGBA(r)
	s.back = image.NewRGBA(r)
	s.mu.Unlock()
}

func (s *Surface) exportFront() *Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Texture{img: s.front}
}

func (s *Surface) snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.front.Rect)
	draw.Draw(out, out.Rect, s.front, s.front.Rect.Min, draw.Src)
	return out
}

// Texture is a borrowed front buffer. It has no GL name; consumers read
// the pixels directly.
type Texture struct {
	img *image.RGBA
}

func (t *Texture) GLTexture() (name, target uint32) { return 0, 0 }

// RGBA returns the borrowed pixels. The buffer stays valid until the
// borrow ends; the exporting surface cannot swap or resize while borrowed.
func (t *Texture) RGBA() *image.RGBA { return t.img }
