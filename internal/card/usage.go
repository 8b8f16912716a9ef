package card

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// Size returns the card capacity
func (c *Card) Size(unit Unit) (uint64, error) {
	if err := c.rlock(); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()

	return unit.Convert(c.size), nil
}

// Used returns the sum of all file sizes on the card. Entries that cannot
// be read are logged and left out of the total.
func (c *Card) Used(unit Unit) (uint64, error) {
	if err := c.rlock(); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()

	return unit.Convert(c.used()), nil
}

// Free returns the capacity not taken by files
func (c *Card) Free(unit Unit) (uint64, error) {
	if err := c.rlock(); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()

	used := c.used()
	if used >= c.size {
		return 0, nil
	}
	return unit.Convert(c.size - used), nil
}

func (c *Card) used() uint64 {
	total, err := treeSize(c.mountPoint)
	if err != nil {
		log.Printf("size of %s is incomplete: %v", c.mountPoint, err)
	}
	return total
}

// treeSize sums the sizes of the regular files below dir. It keeps going
// past unreadable entries and returns their errors joined.
func treeSize(dir string) (uint64, error) {
	var total uint64
	var errs []error

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		st, err := os.Stat(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if !st.IsDir() {
			total += uint64(st.Size())
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return total, errors.Join(errs...)
}
