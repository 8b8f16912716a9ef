package card

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one item of a directory listing. Size is the file size, or for
// directories the sum of the files below them.
type Entry struct {
	Name      string `json:"name"`
	Size      uint64 `json:"size"`
	Directory bool   `json:"directory"`
}

// Ready returns ErrNoCard unless the card is open
func (c *Card) Ready() error {
	if err := c.rlock(); err != nil {
		return err
	}
	c.mu.RUnlock()
	return nil
}

// resolve maps a card relative path onto the mount point. Trailing
// slashes are dropped.
func (c *Card) resolve(p string) (string, error) {
	full := filepath.Clean(c.mountPoint + "/" + p)

	rel, err := filepath.Rel(c.mountPoint, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideMount, p)
	}
	return full, nil
}

// List describes path. A file yields a single entry named by its full
// path, a directory one entry per child.
func (c *Card) List(p string) ([]Entry, error) {
	if err := c.rlock(); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()

	target, err := c.resolve(p)
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("could not stat %s: %w", target, err)
	}
	if !st.IsDir() {
		return []Entry{{Name: target, Size: uint64(st.Size())}}, nil
	}

	children, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", target, err)
	}

	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		full := filepath.Join(target, child.Name())
		st, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("could not stat %s: %w", full, err)
		}

		entry := Entry{Name: child.Name(), Directory: st.IsDir()}
		if entry.Directory {
			entry.Size, _ = treeSize(full)
		} else {
			entry.Size = uint64(st.Size())
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Mkdir creates a single directory and returns its full path.
func (c *Card) Mkdir(p string) (string, error) {
	if err := c.rlock(); err != nil {
		return "", err
	}
	defer c.mu.RUnlock()

	if p == "" {
		return "", ErrPathRequired
	}

	target, err := c.resolve(p)
	if err != nil {
		return "", err
	}

	if err := os.Mkdir(target, 0777); err != nil {
		return target, fmt.Errorf("could not create %s: %w", target, err)
	}

	log.Printf("created %s", target)
	return target, nil
}

// Get reads up to length bytes of filename starting at offset. A negative
// length reads to the end. left is the number of bytes after the chunk.
func (c *Card) Get(ctx context.Context, filename string, offset, length int64) (data []byte, left int64, err error) {
	if err := c.rlock(); err != nil {
		return nil, 0, err
	}
	defer c.mu.RUnlock()

	if filename == "" {
		return nil, 0, ErrFilenameRequired
	}
	if offset < 0 {
		return nil, 0, ErrIllegalOffset
	}

	target, err := c.resolve(filename)
	if err != nil {
		return nil, 0, err
	}

	if err := c.acquire(ctx); err != nil {
		return nil, 0, err
	}
	defer c.release()

	f, err := os.Open(target)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file %q: %w", target, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("could not stat %q: %w", target, err)
	}
	size := st.Size()

	if offset > size {
		offset = size
	}
	if length < 0 || length > size-offset {
		length = size - offset
	}
	if length <= 0 {
		return nil, 0, ErrEmptyChunk
	}

	if offset == 0 {
		log.Printf("Sending %s", target)
	}

	data = make([]byte, length)
	if n, err := f.ReadAt(data, offset); n < len(data) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, 0, fmt.Errorf("read %s: %w", target, err)
	}

	return data, size - offset - length, nil
}

// Put writes data to filename, creating it when missing. Without appendTo
// an existing file is truncated first.
func (c *Card) Put(ctx context.Context, filename string, data []byte, appendTo bool) (int, error) {
	if err := c.rlock(); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()

	if filename == "" {
		return 0, ErrFilenameRequired
	}

	target, err := c.resolve(filename)
	if err != nil {
		return 0, err
	}

	if err := c.acquire(ctx); err != nil {
		return 0, err
	}
	defer c.release()

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendTo {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	f, err := os.OpenFile(target, flags, 0666)
	if err != nil {
		return 0, fmt.Errorf("failed to open file %q: %w", target, err)
	}

	n, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", target, err)
	}
	return n, nil
}

func (c *Card) acquire(ctx context.Context) error {
	select {
	case c.files <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Card) release() {
	<-c.files
}
