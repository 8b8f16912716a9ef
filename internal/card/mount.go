package card

// Mounter attaches a block device to a directory
type Mounter interface {
	Mount(device, target, fstype, data string) error
	Unmount(target string) error
}

// NewMounter returns the mounter for the current platform
func NewMounter() Mounter {
	return newPlatformMounter()
}
