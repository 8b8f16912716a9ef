package card

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	gofs "github.com/mitchellh/go-fs"
	"github.com/mitchellh/go-fs/fat"
)

const oemName = "picosd"

// fatTypeFor picks the FAT variant fitting a device of size bytes.
func fatTypeFor(size int64) fat.FATType {
	switch {
	case size <= 4*1024*1024:
		return fat.FAT12
	case size < 512*1024*1024:
		return fat.FAT16
	default:
		return fat.FAT32
	}
}

// sizedDisk is a file disk whose length is measured by seeking to its end.
// Stat reports zero bytes for block device nodes.
type sizedDisk struct {
	*gofs.FileDisk
	size int64
}

func (d *sizedDisk) Len() int64 {
	return d.size
}

func openDisk(f *os.File) (*sizedDisk, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, errors.New("device is empty")
	}

	disk, err := gofs.NewFileDisk(f)
	if err != nil {
		return nil, err
	}
	return &sizedDisk{FileDisk: disk, size: size}, nil
}

// Format writes an empty FAT filesystem covering the whole device, without
// a partition table. device may be a block device or an image file.
func Format(device, label string) error {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	disk, err := openDisk(f)
	if err != nil {
		return fmt.Errorf("open %s: %w", device, err)
	}

	if err := formatDisk(disk, label); err != nil {
		return fmt.Errorf("format %s: %w", device, err)
	}

	log.Printf("formatted %s (%d bytes)", device, disk.Len())
	return nil
}

func formatDisk(disk gofs.BlockDevice, label string) error {
	label = strings.ToUpper(label)
	if len(label) > 11 {
		label = label[:11]
	}

	cfg := &fat.SuperFloppyConfig{
		FATType: fatTypeFor(disk.Len()),
		Label:   label,
		OEMName: oemName,
	}
	if err := fat.FormatSuperFloppy(disk, cfg); err != nil {
		return err
	}

	// Read it back so a bad layout fails here and not at mount time
	fsys, err := fat.New(disk)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if _, err := fsys.RootDir(); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	return nil
}
