// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"github.com/go-surf/surf/internal/backend"
	"github.com/go-surf/surf/internal/egl"
	"github.com/go-surf/surf/internal/wgl"
)

func init() {
	// Native WGL first, EGL through ANGLE's D3D translation second.
	backend.Register(1, wgl.Backend{})
	backend.Register(2, egl.Backend{})
}
