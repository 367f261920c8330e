// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux

package surf

import "golang.org/x/sys/unix"

// currentThreadID identifies the calling OS thread for the context
// affinity checks. Callers pin goroutines with runtime.LockOSThread, so
// the id is stable while a context is current.
func currentThreadID() uint64 {
	return uint64(unix.Gettid())
}
