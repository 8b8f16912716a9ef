package disk

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// Info represents the partition holding a path
type Info struct {
	Device     string   `json:"device"`
	Mountpoint string   `json:"mountpoint"`
	Filesystem string   `json:"filesystem"`
	Options    []string `json:"options,omitempty"`
	Total      uint64   `json:"total_bytes"`
	Used       uint64   `json:"used_bytes"`
	Available  uint64   `json:"available_bytes"`
	Usage      float64  `json:"usage_percent"`
}

// Reader interface for partition lookups
type Reader interface {
	// Lookup returns the partition holding path together with its usage.
	// Device and Mountpoint stay empty when no partition claims the path.
	Lookup(ctx context.Context, path string) (*Info, error)
	// MountedAt reports whether device is mounted exactly at mountpoint.
	MountedAt(ctx context.Context, device, mountpoint string) (bool, error)
}

// NewReader creates a new partition reader
func NewReader() Reader {
	return &psReader{}
}

// psReader answers lookups through gopsutil
type psReader struct{}

func (r *psReader) Lookup(ctx context.Context, path string) (*Info, error) {
	path = filepath.Clean(path)

	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Filesystem: usage.Fstype,
		Total:      usage.Total,
		Used:       usage.Used,
		Available:  usage.Free,
		Usage:      usage.UsedPercent,
	}

	partitions, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		// Usage alone is still meaningful
		return info, nil
	}

	if p := longestPrefix(partitions, path); p != nil {
		info.Device = p.Device
		info.Mountpoint = p.Mountpoint
		info.Options = p.Opts
		if p.Fstype != "" {
			info.Filesystem = p.Fstype
		}
	}

	return info, nil
}

func (r *psReader) MountedAt(ctx context.Context, device, mountpoint string) (bool, error) {
	partitions, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return false, err
	}

	mountpoint = filepath.Clean(mountpoint)
	for _, p := range partitions {
		if filepath.Clean(p.Mountpoint) == mountpoint && sameDevice(p.Device, device) {
			return true, nil
		}
	}
	return false, nil
}

// longestPrefix picks the partition with the deepest mountpoint containing path.
func longestPrefix(partitions []disk.PartitionStat, path string) *disk.PartitionStat {
	var best *disk.PartitionStat
	for i := range partitions {
		mp := filepath.Clean(partitions[i].Mountpoint)
		if !contains(mp, path) {
			continue
		}
		if best == nil || len(mp) > len(filepath.Clean(best.Mountpoint)) {
			best = &partitions[i]
		}
	}
	return best
}

func contains(mountpoint, path string) bool {
	if mountpoint == path {
		return true
	}
	rel, err := filepath.Rel(mountpoint, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func sameDevice(a, b string) bool {
	if a == b {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}
