package cache

import (
	"path/filepath"
	"testing"

	"github.com/rigado/hcicore/linux/hci/controller"
	"github.com/rigado/hcicore/linux/hci/iso"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "controllers.json"))

	all, err := c.All()
	require.NoError(t, err)
	assert.Empty(t, all)

	info := controller.Info{
		Addr:         "11:22:33:44:55:66",
		HCIVersion:   0x0c,
		Manufacturer: 0x0059,
		ISO:          iso.BufferInfo{MaxDataLength: 120, MaxNumPackets: 2},
	}
	require.NoError(t, c.Store(info, false))
	assert.Error(t, c.Store(info, false))

	info.HCIVersion = 0x0d
	require.NoError(t, c.Store(info, true))

	got, err := c.Load(info.Addr)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	_, err = c.Load("00:00:00:00:00:00")
	assert.Error(t, err)

	require.NoError(t, c.Clear())
	require.NoError(t, c.Clear())
	all, err = c.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}
