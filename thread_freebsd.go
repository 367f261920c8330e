// SPDX-License-Identifier: Unlicense OR MIT

package surf

/*
#include <pthread_np.h>
*/
import "C"

func currentThreadID() uint64 {
	return uint64(C.pthread_getthreadid_np())
}
