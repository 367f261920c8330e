// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux || freebsd) && cgo

package surf

import (
	"github.com/go-surf/surf/internal/backend"
	"github.com/go-surf/surf/internal/egl"
)

func init() {
	backend.Register(1, egl.Backend{})
}
