// SPDX-License-Identifier: Unlicense OR MIT

package surf

import "golang.org/x/sys/windows"

func currentThreadID() uint64 {
	return uint64(windows.GetCurrentThreadId())
}
