// Package card manages the SD card mounted as a FAT filesystem: opening
// and closing it, browsing its tree and reporting its capacity.
package card

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/CristiGvl/picoSD/internal/disk"
)

var (
	// ErrNoCard is returned by every operation on a card that is not open.
	ErrNoCard = errors.New("no SD card")
	// ErrMount is returned when the card could not be mounted.
	ErrMount = errors.New("failed to mount filesystem")
	// ErrPathRequired is returned when an operation needs a path.
	ErrPathRequired = errors.New("path is required")
	// ErrFilenameRequired is returned when a file operation has no filename.
	ErrFilenameRequired = errors.New("filename is required")
	// ErrIllegalOffset is returned for negative read offsets.
	ErrIllegalOffset = errors.New("illegal offset")
	// ErrEmptyChunk is returned when a read would return no data.
	ErrEmptyChunk = errors.New("len <= 0")
	// ErrOutsideMount is returned for paths that leave the mount point.
	ErrOutsideMount = errors.New("path is outside the mount point")
)

// Interface selects the host peripheral the card is attached to
type Interface string

const (
	SDMMC Interface = "sdmmc"
	SPI   Interface = "spi"
)

// SPIPins is the GPIO assignment of an SPI attached card
type SPIPins struct {
	MISO int `json:"miso"`
	MOSI int `json:"mosi"`
	CLK  int `json:"clk"`
	CS   int `json:"cs"`
}

// DefaultSPIPins is the pin mapping that lets the same wiring work in SPI
// and 1-line SD mode. A pull-up on CS is required in SD mode.
var DefaultSPIPins = SPIPins{MISO: 2, MOSI: 15, CLK: 14, CS: 13}

func (p SPIPins) validate() error {
	pins := map[string]int{"miso": p.MISO, "mosi": p.MOSI, "clk": p.CLK, "cs": p.CS}
	seen := make(map[int]string, len(pins))
	for _, name := range []string{"miso", "mosi", "clk", "cs"} {
		pin := pins[name]
		if pin < 0 {
			return fmt.Errorf("spi pin %s is not set", name)
		}
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("spi pins %s and %s share GPIO %d", other, name, pin)
		}
		seen[pin] = name
	}
	return nil
}

// SDMMCSlot configures an SDMMC attached card
type SDMMCSlot struct {
	// BusWidth is 1 or 4 data lines. GPIOs 15, 2, 4, 12 and 13 need
	// external 10k pull-ups in 4-line mode.
	BusWidth int `json:"bus_width"`
}

// Options configures Open
type Options struct {
	Interface  Interface
	MountPoint string

	// Device is the block device of the card. When empty the card is
	// expected to be mounted at MountPoint already.
	Device    string
	FSType    string
	MountData string

	// FormatIfMountFailed formats the device with a fresh FAT filesystem
	// when mounting it fails.
	FormatIfMountFailed bool
	Label               string

	// MaxFiles bounds the number of files open at the same time.
	MaxFiles int

	// Capacity overrides the card capacity in bytes. Zero probes it.
	Capacity uint64

	SPI   SPIPins
	SDMMC SDMMCSlot

	Mounter Mounter
	Disks   disk.Reader
}

const (
	defaultFSType   = "vfat"
	defaultLabel    = "PICOSD"
	defaultMaxFiles = 5
)

func (o *Options) setDefaults() {
	if o.Interface == "" {
		o.Interface = SDMMC
	}
	if o.FSType == "" {
		o.FSType = defaultFSType
	}
	if o.Label == "" {
		o.Label = defaultLabel
	}
	if o.MaxFiles <= 0 {
		o.MaxFiles = defaultMaxFiles
	}
	if o.SDMMC.BusWidth == 0 {
		o.SDMMC.BusWidth = 4
	}
	if o.Mounter == nil {
		o.Mounter = NewMounter()
	}
	if o.Disks == nil {
		o.Disks = disk.NewReader()
	}
}

func (o *Options) validate() error {
	if o.MountPoint == "" {
		return fmt.Errorf("mount point is required")
	}
	switch o.Interface {
	case SDMMC:
		if o.SDMMC.BusWidth != 1 && o.SDMMC.BusWidth != 4 {
			return fmt.Errorf("sdmmc bus width must be 1 or 4, got %d", o.SDMMC.BusWidth)
		}
	case SPI:
		if err := o.SPI.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown interface %q", o.Interface)
	}
	return nil
}

// Card is an open SD card
type Card struct {
	mu     sync.RWMutex
	closed bool

	opts       Options
	mountPoint string
	device     string
	size       uint64
	regs       *Registers

	// mounted is set when Open mounted the device and Close has to
	// unmount it.
	mounted bool
	files   chan struct{}
}

// used by tests to swap the platform specific pieces
var (
	probeRegisters = readRegisters
	formatDevice   = Format
)

// Open initializes the card and mounts its filesystem at opts.MountPoint.
func Open(ctx context.Context, opts Options) (*Card, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	switch opts.Interface {
	case SPI:
		log.Printf("Using SPI peripheral (miso=%d mosi=%d clk=%d cs=%d)",
			opts.SPI.MISO, opts.SPI.MOSI, opts.SPI.CLK, opts.SPI.CS)
	default:
		log.Printf("Using SDMMC peripheral (%d-line)", opts.SDMMC.BusWidth)
	}

	c := &Card{
		opts:       opts,
		mountPoint: filepath.Clean(opts.MountPoint),
		device:     opts.Device,
		files:      make(chan struct{}, opts.MaxFiles),
	}

	if err := c.mount(ctx); err != nil {
		return nil, err
	}

	c.probe(ctx)

	log.Printf("SD card mounted at %s (%d MB)", c.mountPoint, Megabytes.Convert(c.size))
	return c, nil
}

// OpenSDMMC opens a card on the SDMMC peripheral with the default slot.
func OpenSDMMC(ctx context.Context, mountPoint string, formatIfMountFailed bool) (*Card, error) {
	return Open(ctx, Options{
		Interface:           SDMMC,
		MountPoint:          mountPoint,
		FormatIfMountFailed: formatIfMountFailed,
	})
}

// OpenSPI opens a card on the SPI peripheral using pins.
func OpenSPI(ctx context.Context, mountPoint string, formatIfMountFailed bool, pins SPIPins) (*Card, error) {
	return Open(ctx, Options{
		Interface:           SPI,
		MountPoint:          mountPoint,
		FormatIfMountFailed: formatIfMountFailed,
		SPI:                 pins,
	})
}

func (c *Card) mount(ctx context.Context) error {
	if c.device == "" {
		st, err := os.Stat(c.mountPoint)
		if err != nil || !st.IsDir() {
			log.Printf("Failed to initialize the card (%v). "+
				"Make sure SD card lines have pull-up resistors in place.", err)
			return fmt.Errorf("%w: %s is not a mounted directory", ErrMount, c.mountPoint)
		}
		return nil
	}

	mounted, err := c.opts.Disks.MountedAt(ctx, c.device, c.mountPoint)
	if err == nil && mounted {
		log.Printf("%s already mounted at %s", c.device, c.mountPoint)
		return nil
	}

	if err := os.MkdirAll(c.mountPoint, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrMount, err)
	}

	err = c.opts.Mounter.Mount(c.device, c.mountPoint, c.opts.FSType, c.opts.MountData)
	if err != nil && c.opts.FormatIfMountFailed {
		log.Printf("Mounting %s failed (%v), formatting", c.device, err)
		if ferr := formatDevice(c.device, c.opts.Label); ferr != nil {
			return fmt.Errorf("%w: format %s: %v", ErrMount, c.device, ferr)
		}
		err = c.opts.Mounter.Mount(c.device, c.mountPoint, c.opts.FSType, c.opts.MountData)
	}
	if err != nil {
		if !c.opts.FormatIfMountFailed {
			log.Printf("Failed to mount filesystem. " +
				"If you want the card to be formatted, set format_if_mount_failed = true.")
		}
		return fmt.Errorf("%w: %s: %v", ErrMount, c.device, err)
	}

	c.mounted = true
	return nil
}

// probe reads the card registers and settles the capacity.
func (c *Card) probe(ctx context.Context) {
	device := c.device
	if device == "" {
		if info, err := c.opts.Disks.Lookup(ctx, c.mountPoint); err == nil {
			device = info.Device
		}
	}

	if device != "" {
		regs, err := probeRegisters(device)
		if err != nil {
			log.Printf("Could not read card registers of %s: %v", device, err)
		}
		c.regs = regs
	}

	switch {
	case c.opts.Capacity > 0:
		c.size = c.opts.Capacity
	case c.regs != nil && c.regs.Capacity > 0:
		c.size = c.regs.Capacity
	default:
		if info, err := c.opts.Disks.Lookup(ctx, c.mountPoint); err == nil {
			c.size = info.Total
		} else {
			log.Printf("Could not read the size of %s: %v", c.mountPoint, err)
		}
	}
}

// Close unmounts the card if Open mounted it. Operations on a closed card
// fail with ErrNoCard.
func (c *Card) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	// A failed unmount leaves the card open so Close can be retried
	if c.mounted {
		if err := c.opts.Mounter.Unmount(c.mountPoint); err != nil {
			return fmt.Errorf("unmount %s: %w", c.mountPoint, err)
		}
		c.mounted = false
	}
	c.closed = true
	log.Printf("SD card at %s closed", c.mountPoint)
	return nil
}

// MountPoint returns where the card filesystem is mounted
func (c *Card) MountPoint() string {
	return c.mountPoint
}

// Interface returns the peripheral the card is attached to, empty for a
// nil card
func (c *Card) Interface() Interface {
	if c == nil {
		return ""
	}
	return c.opts.Interface
}

// rlock takes the read lock for an operation, failing on a closed card.
// The caller must call c.mu.RUnlock on success.
func (c *Card) rlock() error {
	if c == nil {
		return ErrNoCard
	}
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrNoCard
	}
	return nil
}
