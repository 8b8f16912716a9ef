package card

import (
	"fmt"
	"strings"
)

// Unit is the unit sizes are reported in
type Unit int

const (
	Bytes Unit = iota + 1
	Kilobytes
	Megabytes
)

// Convert turns a byte count into u, rounding down.
func (u Unit) Convert(n uint64) uint64 {
	switch u {
	case Megabytes:
		n /= 1024
		fallthrough
	case Kilobytes:
		n /= 1024
	}
	return n
}

func (u Unit) String() string {
	switch u {
	case Kilobytes:
		return "KB"
	case Megabytes:
		return "MB"
	default:
		return "B"
	}
}

// ParseUnit accepts B, KB and MB in any case. The empty string means bytes.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "B", "BYTES":
		return Bytes, nil
	case "KB", "KILOBYTES":
		return Kilobytes, nil
	case "MB", "MEGABYTES":
		return Megabytes, nil
	}
	return 0, fmt.Errorf("unknown unit %q", s)
}
