package disk

import (
	"context"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLongestPrefix(t *testing.T) {
	partitions := []disk.PartitionStat{
		{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		{Device: "/dev/mmcblk0p1", Mountpoint: "/media/sd", Fstype: "vfat"},
		{Device: "/dev/sdb1", Mountpoint: "/media/sdcard", Fstype: "exfat"},
	}

	tests := []struct {
		path   string
		device string
	}{
		{"/media/sd", "/dev/mmcblk0p1"},
		{"/media/sd/DCIM/100", "/dev/mmcblk0p1"},
		{"/media/sdcard/x", "/dev/sdb1"},
		{"/home/user", "/dev/sda1"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p := longestPrefix(partitions, tt.path)
			require.NotNil(t, p)
			assert.Equal(t, tt.device, p.Device)
		})
	}
}

func TestLongestPrefixNoMatch(t *testing.T) {
	partitions := []disk.PartitionStat{
		{Device: "/dev/mmcblk0p1", Mountpoint: "/media/sd"},
	}
	assert.Nil(t, longestPrefix(partitions, "/var/lib"))
}

func TestLookupTempDir(t *testing.T) {
	info, err := NewReader().Lookup(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.NotZero(t, info.Total)
	assert.LessOrEqual(t, info.Used, info.Total)
}

func TestMountedAtUnknownDevice(t *testing.T) {
	mounted, err := NewReader().MountedAt(context.Background(), "/dev/does-not-exist", t.TempDir())
	if err != nil {
		t.Skipf("partitions unavailable: %v", err)
	}
	assert.False(t, mounted)
}
