// SPDX-License-Identifier: Unlicense OR MIT

/*
Package surf manages GPU rendering contexts and surfaces across platforms.

It abstracts the platform context APIs (EGL on Linux, Android and FreeBSD,
WGL and ANGLE on Windows, CGL on macOS, plus a pure CPU fallback) behind
one contract: connect to the display system, pick an adapter, open a
device, create contexts and surfaces from it, make a context current on a
render thread, draw with the native API and swap. surf does not render
and does not create windows; widget surfaces wrap a native window handle
owned by an external windowing library such as GLFW.

The object tree is

	Connection → Adapter → Device → Context
	                              → Surface
	                              → SurfaceTexture

with three rules the package enforces instead of leaving them to driver
undefined behavior: a context is current on at most one OS thread, a
surface is attached to at most one context, and objects only mix within
the sharing group of the device that created them. Devices must be
destroyed only after everything created from them; getting that wrong is
reported as a *ContractViolationError rather than masked.

A minimal off-screen session:

	conn, err := surf.Connect()
	if err != nil { ... }
	defer conn.Close()

	adapter, _ := conn.DefaultAdapter()
	dev, err := conn.CreateDevice(adapter)
	if err != nil { ... }

	ctx, err := dev.CreateContext(surf.ContextDescriptor{
		Version:   surf.GLVersion{Major: 3, Minor: 3},
		DepthBits: 24,
	})
	if err != nil { ... }

	srf, err := dev.CreateSurface(ctx, surf.GenericSurface{Size: image.Pt(800, 600)})
	if err != nil { ... }

	runtime.LockOSThread()
	dev.MakeContextCurrent(ctx)
	dev.BindSurfaceToContext(ctx, srf)
	// ... native GL calls ...
	dev.SwapSurface(ctx, srf)

Contexts are thread-affine. Pin the goroutine that holds a context current
with runtime.LockOSThread, and release the context before destroying it or
handing it to another thread.
*/
package surf
