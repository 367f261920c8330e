// SPDX-License-Identifier: Unlicense OR MIT

package backend

import (
	"sort"
	"sync"
)

// entry pairs a backend with its selection priority. Priorities are
// assigned where backends are registered, so the per-OS policy lives in
// one place per platform.
type entry struct {
	priority int
	backend  Backend
}

var (
	mu       sync.Mutex
	backends []entry
)

// Register adds a backend to the registry. The surf package calls it from
// per-OS init functions; backends that are not registered are never
// considered for selection. Lower priorities are tried first.
func Register(priority int, b Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends = append(backends, entry{priority: priority, backend: b})
}

// List returns the registered backends ordered by priority, lowest first.
// Registration order breaks ties, so the result is stable.
func List() []Backend {
	mu.Lock()
	defer mu.Unlock()
	es := make([]entry, len(backends))
	copy(es, backends)
	sort.SliceStable(es, func(i, j int) bool {
		return es[i].priority < es[j].priority
	})
	bs := make([]Backend, len(es))
	for i, e := range es {
		bs[i] = e.backend
	}
	return bs
}
