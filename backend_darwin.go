// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"github.com/go-surf/surf/internal/backend"
	"github.com/go-surf/surf/internal/cgl"
)

func init() {
	backend.Register(1, cgl.Backend{})
}
