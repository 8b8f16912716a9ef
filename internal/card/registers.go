package card

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Registers is what could be learned about the card hardware
type Registers struct {
	Name string
	Kind string

	// Capacity in bytes, zero when unknown
	Capacity uint64

	OCR    uint32
	HasOCR bool

	CSD *CSD
	SCR *SCR
	CID *CID
}

// CSD holds the decoded card-specific data register
type CSD struct {
	Ver        int    `json:"ver"`
	SectorSize int    `json:"sector_size"`
	Capacity   uint64 `json:"capacity"`
	ReadBlLen  int    `json:"read_bl_len"`
	TrSpeed    int    `json:"tr_speed"`
	CCC        int    `json:"card_command_class"`
}

// SCR holds the decoded SD configuration register
type SCR struct {
	SDSpec   int `json:"sd_spec"`
	BusWidth int `json:"bus_width"`
}

// CID holds the decoded card identification register
type CID struct {
	ManufacturerID int    `json:"mfg_id"`
	OEMID          int    `json:"oem_id"`
	Name           string `json:"name"`
	Revision       int    `json:"revision"`
	Serial         uint32 `json:"serial"`
	Date           string `json:"date"`
}

const (
	csdVer1 = 0
	csdVer2 = 1

	// TRAN_SPEED value of a 50MHz capable card
	csdSpeed50MHz = 0x5a

	ocrSDHCCap = 1 << 30

	// largest standard capacity card
	sdscMaxCapacity = 2 << 30
)

// field extracts width bits starting at bit start of a big-endian register.
func field(raw []byte, start, width uint) uint32 {
	var v uint32
	total := uint(len(raw)) * 8
	for i := uint(0); i < width; i++ {
		bit := start + i
		if bit >= total {
			break
		}
		b := raw[len(raw)-1-int(bit/8)]
		v |= uint32((b>>(bit%8))&1) << i
	}
	return v
}

// parseRegister decodes a register dumped as hex, e.g. by sysfs.
func parseRegister(s string, bits int) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != bits/8 {
		return nil, fmt.Errorf("register is %d bits, want %d", len(raw)*8, bits)
	}
	return raw, nil
}

func decodeCSD(raw []byte) (*CSD, error) {
	csd := &CSD{Ver: int(field(raw, 126, 2))}

	switch csd.Ver {
	case csdVer2:
		csd.Capacity = (uint64(field(raw, 48, 22)) + 1) << 10
		csd.ReadBlLen = 9
	case csdVer1:
		csize := uint64(field(raw, 62, 12))
		mult := field(raw, 47, 3)
		csd.Capacity = (csize + 1) << (mult + 2)
		csd.ReadBlLen = int(field(raw, 80, 4))
	default:
		return nil, fmt.Errorf("unsupported CSD structure %d", csd.Ver)
	}

	csd.CCC = int(field(raw, 84, 12))

	readBlSize := 1 << csd.ReadBlLen
	csd.SectorSize = readBlSize
	if csd.SectorSize > 512 {
		csd.SectorSize = 512
	}
	if csd.SectorSize < readBlSize {
		csd.Capacity *= uint64(readBlSize / csd.SectorSize)
	}

	csd.TrSpeed = 25000000
	if field(raw, 96, 8) == csdSpeed50MHz {
		csd.TrSpeed = 50000000
	}
	return csd, nil
}

func decodeSCR(raw []byte) *SCR {
	return &SCR{
		SDSpec:   int(field(raw, 56, 4)),
		BusWidth: int(field(raw, 48, 4)),
	}
}

func decodeCID(raw []byte) *CID {
	name := make([]byte, 5)
	for i := range name {
		name[i] = byte(field(raw, uint(96-8*i), 8))
	}
	mdt := field(raw, 8, 12)

	return &CID{
		ManufacturerID: int(field(raw, 120, 8)),
		OEMID:          int(field(raw, 104, 16)),
		Name:           strings.TrimRight(string(name), "\x00 "),
		Revision:       int(field(raw, 56, 8)),
		Serial:         field(raw, 24, 32),
		Date:           fmt.Sprintf("%02d/%04d", mdt&0xf, 2000+(mdt>>4)),
	}
}

// cardType names the capacity class of the card
func (r *Registers) cardType() string {
	switch {
	case r.HasOCR:
		if r.OCR&ocrSDHCCap != 0 {
			return "SDHC/SDXC"
		}
		return "SDSC"
	case r.CSD != nil:
		if r.CSD.Ver == csdVer2 {
			return "SDHC/SDXC"
		}
		return "SDSC"
	case r.Capacity > 0:
		if r.Capacity > sdscMaxCapacity {
			return "SDHC/SDXC"
		}
		return "SDSC"
	case r.Kind != "":
		return r.Kind
	}
	return "unknown"
}

func (r *Registers) speed() string {
	if r.CSD == nil {
		return "unknown"
	}
	if r.CSD.TrSpeed > 25000000 {
		return "high speed"
	}
	return "default speed"
}
