// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"github.com/go-surf/surf/internal/backend"
)

// contextState tracks where a context is in its lifecycle. A freshly
// created context starts not current; destruction is terminal.
type contextState uint8

const (
	contextNotCurrent contextState = iota
	contextCurrent
	contextDestroyed
)

// Context is a GPU rendering context created by a Device. It is the unit
// of thread affinity: a context can be current on at most one OS thread at
// a time, and every surf call that needs it current must run on that
// thread. Callers are expected to pin their render goroutine with
// runtime.LockOSThread before making a context current.
//
// All contexts of one Device belong to the same sharing group.
type Context struct {
	id   uint64
	dev  *Device
	bc   backend.Context
	desc ContextDescriptor

	// The fields below are guarded by dev.mu.
	state    contextState
	tid      uint64 // owning OS thread while state == contextCurrent
	attached *Surface
}

// ID returns the device-unique context id.
func (c *Context) ID() uint64 { return c.id }

// Descriptor returns the descriptor the context was created from.
func (c *Context) Descriptor() ContextDescriptor { return c.desc }

// GLVersion reports the version the driver actually created, which may
// exceed the requested one. Software contexts report 0.0.
func (c *Context) GLVersion() GLVersion {
	major, minor := c.bc.GLVersion()
	return GLVersion{major, minor}
}

// Surface returns the currently attached surface, or nil.
func (c *Context) Surface() *Surface {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	return c.attached
}

// IsCurrent reports whether the context is current on the calling OS
// thread.
func (c *Context) IsCurrent() bool {
	tid := currentThreadID()
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	return c.state == contextCurrent && c.tid == tid
}
