package disk

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a read-write Device backed by a regular file (a disk
// image). The file is locked exclusively for as long as it is open.
type File struct {
	f      *os.File
	blocks int
}

// Open opens the existing image name for reading and writing.
func Open(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size()%BlockSize != 0 {
		f.Close()
		return nil, fmt.Errorf("%s: %w (%d bytes)", name, ErrBadSize, st.Size())
	}
	if err := lock(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &File{f: f, blocks: int(st.Size() / BlockSize)}, nil
}

// Create creates a new zero-filled image name of blocks blocks. It
// fails if name already exists.
func Create(name string, blocks int) (*File, error) {
	if blocks <= 0 {
		return nil, fmt.Errorf("invalid block count %d", blocks)
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	if err := lock(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := f.Truncate(int64(blocks) * BlockSize); err != nil {
		f.Close()
		os.Remove(name)
		return nil, err
	}
	return &File{f: f, blocks: blocks}, nil
}

func lock(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrLocked
	}
	return err
}

func (d *File) BlockCount() int { return d.blocks }

func (d *File) ReadBlock(index int, buf []byte) error {
	if err := check("read", index, d.blocks, buf); err != nil {
		return err
	}
	n, err := unix.Pread(int(d.f.Fd()), buf, int64(index)*BlockSize)
	if err != nil {
		return &IOError{Op: "read", Block: index, Err: err}
	}
	if n != BlockSize {
		return &IOError{Op: "read", Block: index, Err: fmt.Errorf("short read: %d bytes", n)}
	}
	return nil
}

func (d *File) WriteBlock(index int, buf []byte) error {
	if err := check("write", index, d.blocks, buf); err != nil {
		return err
	}
	n, err := unix.Pwrite(int(d.f.Fd()), buf, int64(index)*BlockSize)
	if err != nil {
		return &IOError{Op: "write", Block: index, Err: err}
	}
	if n != BlockSize {
		return &IOError{Op: "write", Block: index, Err: fmt.Errorf("short write: %d bytes", n)}
	}
	return nil
}

// Sync flushes written blocks to stable storage.
func (d *File) Sync() error { return d.f.Sync() }

// Close releases the lock and closes the image. Closing the file
// descriptor drops the flock.
func (d *File) Close() error {
	return d.f.Close()
}
