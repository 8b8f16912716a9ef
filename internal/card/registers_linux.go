//go:build linux

package card

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// sysBlock is where the kernel lists block devices
var sysBlock = "/sys/class/block"

var partitionSuffix = []*regexp.Regexp{
	regexp.MustCompile(`^(mmcblk\d+)p\d+$`),
	regexp.MustCompile(`^(sd[a-z]+)\d+$`),
}

// readRegisters reads the registers the mmc core exports for device. Cards
// behind USB readers export none, which yields nil without error.
func readRegisters(device string) (*Registers, error) {
	name := filepath.Base(device)
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		name = filepath.Base(resolved)
	}
	for _, re := range partitionSuffix {
		if m := re.FindStringSubmatch(name); m != nil {
			name = m[1]
			break
		}
	}

	dir := filepath.Join(sysBlock, name, "device")
	rawCSD, err := readAttr(dir, "csd")
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	regs := &Registers{}
	regs.Name, _ = readAttr(dir, "name")
	regs.Kind, _ = readAttr(dir, "type")

	raw, err := parseRegister(rawCSD, 128)
	if err != nil {
		return nil, fmt.Errorf("csd: %w", err)
	}
	if regs.CSD, err = decodeCSD(raw); err != nil {
		return nil, err
	}
	regs.Capacity = regs.CSD.Capacity * uint64(regs.CSD.SectorSize)

	if s, err := readAttr(dir, "scr"); err == nil {
		if raw, err := parseRegister(s, 64); err == nil {
			regs.SCR = decodeSCR(raw)
		}
	}
	if s, err := readAttr(dir, "cid"); err == nil {
		if raw, err := parseRegister(s, 128); err == nil {
			regs.CID = decodeCID(raw)
			if regs.Name == "" {
				regs.Name = regs.CID.Name
			}
		}
	}
	if s, err := readAttr(dir, "ocr"); err == nil {
		if ocr, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32); err == nil {
			regs.OCR = uint32(ocr)
			regs.HasOCR = true
		}
	}

	return regs, nil
}

func readAttr(dir, name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
