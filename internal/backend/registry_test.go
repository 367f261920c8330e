// SPDX-License-Identifier: Unlicense OR MIT

package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubBackend struct{ name string }

func (b stubBackend) Name() string { return b.name }

func (b stubBackend) Open(nativeDisplay uintptr) (Display, error) {
	return nil, ErrPlatformUnavailable
}

func TestRegisterOrder(t *testing.T) {
	Register(20, stubBackend{name: "beta"})
	Register(10, stubBackend{name: "alpha"})
	Register(20, stubBackend{name: "gamma"})

	var names []string
	for _, b := range List() {
		names = append(names, b.Name())
	}
	// lowest priority first; registration order breaks ties
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)

	// List hands out a copy
	bs := List()
	bs[0] = stubBackend{name: "clobbered"}
	assert.Equal(t, "alpha", List()[0].Name())
}
