//go:build linux

package card

import (
	"golang.org/x/sys/unix"
)

// unixMounter mounts through the mount(2) syscall
type unixMounter struct{}

func newPlatformMounter() Mounter {
	return unixMounter{}
}

func (unixMounter) Mount(device, target, fstype, data string) error {
	return unix.Mount(device, target, fstype, unix.MS_NOATIME, data)
}

func (unixMounter) Unmount(target string) error {
	return unix.Unmount(target, 0)
}
