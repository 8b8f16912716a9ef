//go:build windows

package card

import (
	"fmt"
	"strings"

	"github.com/StackExchange/wmi"
)

// Win32_DiskDrive represents WMI disk drive data
type Win32_DiskDrive struct {
	DeviceID       string
	Model          string
	MediaType      string
	InterfaceType  string
	SerialNumber   string
	Size           uint64
	BytesPerSector uint32
}

// Win32_DiskPartition represents WMI partition data
type Win32_DiskPartition struct {
	DeviceID string
}

// readRegisters describes the removable drive holding device, a drive
// letter such as "E:". Windows does not expose the card registers, only
// what the reader reports.
func readRegisters(device string) (*Registers, error) {
	drive, err := driveFor(device)
	if err != nil || drive == nil {
		return nil, err
	}

	return &Registers{
		Name:     drive.Model,
		Capacity: drive.Size,
	}, nil
}

func driveFor(device string) (*Win32_DiskDrive, error) {
	letter := strings.TrimSuffix(strings.ToUpper(device), `\`)
	if len(letter) != 2 || letter[1] != ':' {
		return nil, fmt.Errorf("not a drive letter: %s", device)
	}

	var partitions []Win32_DiskPartition
	err := wmi.Query(fmt.Sprintf("ASSOCIATORS OF {Win32_LogicalDisk.DeviceID='%s'} "+
		"WHERE AssocClass = Win32_LogicalDiskToPartition", letter), &partitions)
	if err != nil {
		return nil, err
	}
	if len(partitions) == 0 {
		return nil, nil
	}

	var drives []Win32_DiskDrive
	err = wmi.Query(fmt.Sprintf("ASSOCIATORS OF {Win32_DiskPartition.DeviceID='%s'} "+
		"WHERE AssocClass = Win32_DiskDriveToDiskPartition", partitions[0].DeviceID), &drives)
	if err != nil {
		return nil, err
	}

	for i := range drives {
		if strings.Contains(drives[i].MediaType, "Removable") {
			return &drives[i], nil
		}
	}
	return nil, nil
}
