package disk

import (
	"fmt"

	"golang.org/x/exp/mmap"
)

// Mapped is a read-only Device backed by a memory-mapped image. It is
// used by commands which only inspect a volume.
type Mapped struct {
	r *mmap.ReaderAt
}

// OpenReadOnly maps the image name.
func OpenReadOnly(name string) (*Mapped, error) {
	r, err := mmap.Open(name)
	if err != nil {
		return nil, err
	}
	if r.Len()%BlockSize != 0 {
		r.Close()
		return nil, fmt.Errorf("%s: %w (%d bytes)", name, ErrBadSize, r.Len())
	}
	return &Mapped{r: r}, nil
}

func (m *Mapped) BlockCount() int { return m.r.Len() / BlockSize }

func (m *Mapped) ReadOnly() bool { return true }

func (m *Mapped) ReadBlock(index int, buf []byte) error {
	if err := check("read", index, m.BlockCount(), buf); err != nil {
		return err
	}
	if _, err := m.r.ReadAt(buf, int64(index)*BlockSize); err != nil {
		return &IOError{Op: "read", Block: index, Err: err}
	}
	return nil
}

func (m *Mapped) WriteBlock(index int, buf []byte) error {
	return &IOError{Op: "write", Block: index, Err: ErrReadOnly}
}

func (m *Mapped) Close() error { return m.r.Close() }
