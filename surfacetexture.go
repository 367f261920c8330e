// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"fmt"
	"image"

	"github.com/go-surf/surf/internal/backend"
)

// SurfaceTexture is a borrowed view of a generic surface's front buffer,
// exposed as a sampleable texture to another context in the same sharing
// group. While the borrow lasts, the surface cannot be attached or
// destroyed. Resizing the surface invalidates the view; the texture object
// still has to be destroyed to end the borrow.
type SurfaceTexture struct {
	dev     *Device
	surface *Surface
	ctx     *Context
	bt      backend.Texture

	// The fields below are guarded by dev.mu.
	generation uint64
	released   bool
}

// Surface returns the surface behind the view. The surface stays borrowed
// until DestroySurfaceTexture.
func (t *SurfaceTexture) Surface() *Surface { return t.surface }

// GLTexture returns the GL texture name and target the consumer context
// samples from. Both are 0 on software adapters, where RGBA is the access
// path instead.
func (t *SurfaceTexture) GLTexture() (name, target uint32, err error) {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if err := t.valid(); err != nil {
		return 0, 0, err
	}
	name, target = t.bt.GLTexture()
	return name, target, nil
}

// RGBA returns the borrowed pixels on software adapters. GPU-backed
// textures have no CPU pixels and fail with ErrInvalidSurfaceType.
func (t *SurfaceTexture) RGBA() (*image.RGBA, error) {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if err := t.valid(); err != nil {
		return nil, err
	}
	type pixels interface{ RGBA() *image.RGBA }
	if p, ok := t.bt.(pixels); ok {
		return p.RGBA(), nil
	}
	return nil, fmt.Errorf("surf: texture is GPU backed: %w", ErrInvalidSurfaceType)
}

// valid is called with dev.mu held.
func (t *SurfaceTexture) valid() error {
	if t.released {
		return fmt.Errorf("surf: surface texture destroyed: %w", ErrSurfaceTextureInvalidated)
	}
	if t.generation != t.surface.generation {
		return fmt.Errorf("surf: surface was resized: %w", ErrSurfaceTextureInvalidated)
	}
	return nil
}
