// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"errors"
	"fmt"

	"github.com/go-surf/surf/internal/backend"
)

// Errors reported by surf operations. All of them are recoverable: the
// caller decides whether to retry with a different configuration, adapter
// or backend. Native failure detail is attached by wrapping, so callers
// match with errors.Is.
var (
	// ErrPlatformUnavailable reports that no backend could reach the
	// platform's display system.
	ErrPlatformUnavailable = backend.ErrPlatformUnavailable

	// ErrDeviceCreationFailed reports that an adapter could not be
	// opened as a logical device.
	ErrDeviceCreationFailed = backend.ErrDeviceCreationFailed

	// ErrUnsupportedConfig reports a ContextDescriptor that no adapter
	// capability can represent. It is returned before any native call
	// is attempted.
	ErrUnsupportedConfig = backend.ErrUnsupportedConfig

	// ErrContextCreationFailed reports a native context creation
	// failure for a descriptor that passed validation.
	ErrContextCreationFailed = backend.ErrContextCreationFailed

	// ErrSurfaceCreationFailed reports a native surface allocation
	// failure.
	ErrSurfaceCreationFailed = backend.ErrSurfaceCreationFailed

	// ErrInvalidSize rejects surface sizes that are not positive in
	// both dimensions. Nothing is allocated.
	ErrInvalidSize = backend.ErrInvalidSize

	// ErrResizeFailed reports that backing storage could not be
	// reallocated. The surface keeps its previous size and contents.
	ErrResizeFailed = backend.ErrResizeFailed

	// ErrPresentFailed reports a failed swap or present, including
	// swaps attempted without the required attachment or current
	// context.
	ErrPresentFailed = backend.ErrPresentFailed
)

var (
	// ErrContextNotThreadSafe reports an operation on a context that is
	// current on a different thread.
	ErrContextNotThreadSafe = errors.New("surf: context is current on another thread")

	// ErrSharingGroupMismatch reports objects from different devices
	// used together.
	ErrSharingGroupMismatch = errors.New("surf: objects belong to different sharing groups")

	// ErrContextStillCurrent rejects destroying a context that has not
	// been released. Release it explicitly first.
	ErrContextStillCurrent = errors.New("surf: context is still current")

	// ErrAlreadyAttached rejects attaching a surface that is attached
	// elsewhere, or attaching to a context that already has a surface.
	ErrAlreadyAttached = errors.New("surf: surface already attached")

	// ErrSurfaceInUse rejects exporting or destroying a surface whose
	// front buffer is attached or borrowed.
	ErrSurfaceInUse = errors.New("surf: surface is in use")

	// ErrNoAdapter reports that no adapter of the requested kind is
	// reachable through the connection.
	ErrNoAdapter = errors.New("surf: no matching adapter")

	// ErrConnectionClosed reports use of a closed connection.
	ErrConnectionClosed = errors.New("surf: connection closed")

	// ErrDeviceDestroyed reports use of a destroyed device.
	ErrDeviceDestroyed = errors.New("surf: device destroyed")

	// ErrContextDestroyed reports use of a destroyed context.
	ErrContextDestroyed = errors.New("surf: context destroyed")

	// ErrSurfaceDestroyed reports use of a destroyed surface.
	ErrSurfaceDestroyed = errors.New("surf: surface destroyed")

	// ErrSurfaceTextureInvalidated reports use of a surface texture
	// whose backing storage was resized away, or that was already
	// destroyed.
	ErrSurfaceTextureInvalidated = errors.New("surf: surface texture invalidated")

	// ErrInvalidSurfaceType reports an operation that does not apply to
	// the surface's variant, like presenting a generic surface or
	// exporting a widget surface.
	ErrInvalidSurfaceType = errors.New("surf: operation not supported for this surface type")
)

// ContractViolationError reports a broken API contract: destroying a
// Device while contexts or surfaces derived from it are still alive. It is
// a programming error, deliberately distinct from the recoverable sentinel
// errors above, and never matches them under errors.Is. The device is left
// untouched; destroy the listed objects and retry.
type ContractViolationError struct {
	// Contexts and Surfaces count the live objects that block the
	// destroy.
	Contexts int
	Surfaces int
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("surf: contract violation: device destroyed with %d live context(s) and %d live surface(s)",
		e.Contexts, e.Surfaces)
}
