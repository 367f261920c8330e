// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"log/slog"

	"github.com/go-surf/surf/internal/backend"
)

// SetLogger configures logging for surf and its platform backends. By
// default surf produces no log output. Pass nil to restore the silent
// default. Safe for concurrent use.
//
// Levels used:
//   - [slog.LevelDebug]: per-object lifecycle and native call diagnostics
//   - [slog.LevelInfo]: backend and device selection
//   - [slog.LevelError]: native state the backends could not restore, like
//     a failed current-context restore after internal storage work
func SetLogger(l *slog.Logger) {
	backend.SetLogger(l)
}

// Logger returns the logger surf currently uses.
func Logger() *slog.Logger {
	return backend.Logger()
}
