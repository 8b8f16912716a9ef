package card

import (
	"context"
	"path/filepath"
)

// Info describes the card for the SD.Info call
type Info struct {
	Name     string `json:"Name"`
	Type     string `json:"Type"`
	Speed    string `json:"Speed"`
	Size     uint64 `json:"Size"`
	SizeUnit string `json:"SizeUnit"`
	CSD      *CSD   `json:"CSD,omitempty"`
	SCR      *SCR   `json:"SCR,omitempty"`
	CID      *CID   `json:"CID,omitempty"`

	Interface  Interface `json:"Interface"`
	BusWidth   int       `json:"BusWidth,omitempty"`
	SPI        *SPIPins  `json:"SPI,omitempty"`
	Device     string    `json:"Device,omitempty"`
	MountPoint string    `json:"MountPoint"`
	Filesystem string    `json:"Filesystem,omitempty"`
}

// Info describes the card and where it is mounted
func (c *Card) Info(ctx context.Context) (*Info, error) {
	if err := c.rlock(); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()

	info := &Info{
		Name:       "unknown",
		Type:       "unknown",
		Speed:      "unknown",
		Size:       Megabytes.Convert(c.size),
		SizeUnit:   Megabytes.String(),
		Interface:  c.opts.Interface,
		Device:     c.device,
		MountPoint: c.mountPoint,
	}

	switch c.opts.Interface {
	case SPI:
		pins := c.opts.SPI
		info.SPI = &pins
	default:
		info.BusWidth = c.opts.SDMMC.BusWidth
	}

	if part, err := c.opts.Disks.Lookup(ctx, c.mountPoint); err == nil {
		info.Filesystem = part.Filesystem
		if info.Device == "" {
			info.Device = part.Device
		}
	}

	if r := c.regs; r != nil {
		if r.Name != "" {
			info.Name = r.Name
		}
		info.Type = r.cardType()
		info.Speed = r.speed()
		info.CSD = r.CSD
		info.SCR = r.SCR
		info.CID = r.CID
	} else if info.Device != "" {
		info.Name = filepath.Base(info.Device)
	}

	return info, nil
}
