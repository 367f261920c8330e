// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"github.com/go-surf/surf/internal/backend"
	"github.com/go-surf/surf/internal/software"
)

func init() {
	backend.Register(100, software.Backend{})
}
