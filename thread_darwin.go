// SPDX-License-Identifier: Unlicense OR MIT

package surf

/*
#include <pthread.h>
#include <stdint.h>
*/
import "C"

func currentThreadID() uint64 {
	var tid C.uint64_t
	C.pthread_threadid_np(nil, &tid)
	return uint64(tid)
}
