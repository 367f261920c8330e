// SPDX-License-Identifier: Unlicense OR MIT

package backend

import "errors"

// Sentinel errors shared by the backends and the surf package. They carry
// the public "surf:" prefix because the surf package re-exports them
// unchanged; backends wrap them with the native failure detail so that
// errors.Is keeps working on the wrapped value.
var (
	ErrPlatformUnavailable   = errors.New("surf: platform unavailable")
	ErrDeviceCreationFailed  = errors.New("surf: device creation failed")
	ErrUnsupportedConfig     = errors.New("surf: unsupported context configuration")
	ErrContextCreationFailed = errors.New("surf: context creation failed")
	ErrSurfaceCreationFailed = errors.New("surf: surface creation failed")
	ErrInvalidSize           = errors.New("surf: invalid surface size")
	ErrResizeFailed          = errors.New("surf: surface resize failed")
	ErrPresentFailed         = errors.New("surf: present failed")
)
