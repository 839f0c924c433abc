package fs

import (
	"fmt"

	"github.com/gokrazy/ecsfs/fat"
)

func (fsys *FileSystem) checkWritable() error {
	if !fsys.mounted {
		return ErrNotMounted
	}
	if fsys.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Create creates an empty file called name.
func (fsys *FileSystem) Create(name string) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if err := fsys.checkWritable(); err != nil {
		return err
	}
	if _, err := fsys.dir.Create(name); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return nil
}

// Delete removes the file called name and releases its blocks. It
// fails with ErrFileOpen while the file is open.
func (fsys *FileSystem) Delete(name string) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if err := fsys.checkWritable(); err != nil {
		return err
	}
	if err := fat.ValidName(name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	slot, err := fsys.dir.Lookup(name)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	for _, d := range fsys.open {
		if d != nil && d.slot == slot {
			return fmt.Errorf("delete: %q: %w", name, ErrFileOpen)
		}
	}
	if err := fsys.fat.Free(fsys.dir[slot].FirstBlock); err != nil {
		return fmt.Errorf("delete: %q: %w", name, err)
	}
	fsys.dir.Remove(slot)
	return nil
}

// List returns the files of the volume in directory order.
func (fsys *FileSystem) List() ([]fat.Entry, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if !fsys.mounted {
		return nil, ErrNotMounted
	}
	return fsys.dir.Entries(), nil
}

// Open opens the file called name and returns a descriptor positioned
// at offset 0. A file can be opened several times; each descriptor has
// its own offset.
func (fsys *FileSystem) Open(name string) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if !fsys.mounted {
		return -1, ErrNotMounted
	}
	if err := fat.ValidName(name); err != nil {
		return -1, fmt.Errorf("open: %w", err)
	}
	slot, err := fsys.dir.Lookup(name)
	if err != nil {
		return -1, fmt.Errorf("open: %w", err)
	}
	for fd, d := range fsys.open {
		if d == nil {
			fsys.open[fd] = &descriptor{slot: slot}
			return fd, nil
		}
	}
	return -1, fmt.Errorf("open: %q: %w", name, ErrTooManyOpen)
}

// lookupFD returns the open descriptor fd. fsys.mu must be held.
func (fsys *FileSystem) lookupFD(fd int) (*descriptor, error) {
	if !fsys.mounted {
		return nil, ErrNotMounted
	}
	if fd < 0 || fd >= MaxOpenFiles {
		return nil, fmt.Errorf("%w: %d", ErrBadDescriptor, fd)
	}
	d := fsys.open[fd]
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotOpen, fd)
	}
	return d, nil
}

func (fsys *FileSystem) Close(fd int) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if _, err := fsys.lookupFD(fd); err != nil {
		return err
	}
	fsys.open[fd] = nil
	return nil
}

// Stat returns the size in bytes of the file open as fd.
func (fsys *FileSystem) Stat(fd int) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	d, err := fsys.lookupFD(fd)
	if err != nil {
		return 0, err
	}
	return int(fsys.dir[d.slot].Size), nil
}

// Seek sets the offset of fd. Offsets past the end of the file are
// rejected with ErrOffsetBeyondEnd.
func (fsys *FileSystem) Seek(fd int, offset int) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	d, err := fsys.lookupFD(fd)
	if err != nil {
		return err
	}
	if size := int(fsys.dir[d.slot].Size); offset < 0 || offset > size {
		return fmt.Errorf("%w: offset %d, size %d", ErrOffsetBeyondEnd, offset, size)
	}
	d.offset = offset
	return nil
}

// Tell returns the offset of fd.
func (fsys *FileSystem) Tell(fd int) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	d, err := fsys.lookupFD(fd)
	if err != nil {
		return 0, err
	}
	return d.offset, nil
}
