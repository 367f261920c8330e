// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	conn := newTestConnection(t)

	assert.NotEmpty(t, conn.Backend())

	adapters, err := conn.EnumerateAdapters()
	require.NoError(t, err)
	require.NotEmpty(t, adapters)

	// the software rasterizer registers at the lowest priority on every
	// platform, so it enumerates last and is always reachable
	last := adapters[len(adapters)-1]
	assert.Equal(t, AdapterSoftware, last.Kind())
	assert.Equal(t, "software", last.Backend())
	assert.NotEmpty(t, last.Name())

	def, err := conn.DefaultAdapter()
	require.NoError(t, err)
	assert.Equal(t, adapters[0], def)

	sw, err := conn.SoftwareAdapter()
	require.NoError(t, err)
	assert.Equal(t, AdapterSoftware, sw.Kind())
}

func TestAdapterKindSelectors(t *testing.T) {
	conn := newTestConnection(t)

	hw, err := conn.HardwareAdapter()
	if err != nil {
		// no GPU reachable; the low-power fallback has nothing either
		assert.ErrorIs(t, err, ErrNoAdapter)
		_, err = conn.LowPowerAdapter()
		assert.ErrorIs(t, err, ErrNoAdapter)
		return
	}
	assert.Equal(t, AdapterHardware, hw.Kind())

	lp, err := conn.LowPowerAdapter()
	require.NoError(t, err)
	assert.Contains(t, []AdapterKind{AdapterLowPower, AdapterHardware}, lp.Kind())
}

func TestAdapterKindString(t *testing.T) {
	assert.Equal(t, "hardware", AdapterHardware.String())
	assert.Equal(t, "low-power", AdapterLowPower.String())
	assert.Equal(t, "software", AdapterSoftware.String())
	assert.Equal(t, "unknown", AdapterKind(42).String())
}

func TestConnectionClose(t *testing.T) {
	conn, err := Connect()
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	// idempotent
	require.NoError(t, conn.Close())

	_, err = conn.EnumerateAdapters()
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = conn.DefaultAdapter()
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = conn.SoftwareAdapter()
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = conn.CreateDevice(Adapter{})
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Empty(t, conn.Backend())
}

func TestCreateDeviceForeignAdapter(t *testing.T) {
	conn1 := newTestConnection(t)
	conn2 := newTestConnection(t)

	a, err := conn2.SoftwareAdapter()
	require.NoError(t, err)

	_, err = conn1.CreateDevice(a)
	assert.ErrorIs(t, err, ErrDeviceCreationFailed)
}

func TestDevicesAreDistinctSharingGroups(t *testing.T) {
	conn := newTestConnection(t)
	a, err := conn.SoftwareAdapter()
	require.NoError(t, err)

	dev1, err := conn.CreateDevice(a)
	require.NoError(t, err)
	dev2, err := conn.CreateDevice(a)
	require.NoError(t, err)

	ctx, err := dev1.CreateContext(ContextDescriptor{})
	require.NoError(t, err)
	assert.ErrorIs(t, dev2.DestroyContext(ctx), ErrSharingGroupMismatch)

	require.NoError(t, dev1.DestroyContext(ctx))
	require.NoError(t, dev1.Destroy())
	require.NoError(t, dev2.Destroy())
}
