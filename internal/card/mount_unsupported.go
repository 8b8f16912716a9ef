//go:build !linux

package card

import "fmt"

// unsupportedMounter leaves mounting to the host
type unsupportedMounter struct{}

func newPlatformMounter() Mounter {
	return unsupportedMounter{}
}

func (unsupportedMounter) Mount(device, target, fstype, data string) error {
	return fmt.Errorf("mounting %s is not supported on this platform, mount it at %s first", device, target)
}

func (unsupportedMounter) Unmount(target string) error {
	return fmt.Errorf("unmounting is not supported on this platform")
}
