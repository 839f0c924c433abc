package fat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"

	"github.com/gokrazy/ecsfs/disk"
)

const (
	// FilenameLen is the size of the on-disk filename field, including
	// the terminating NUL byte.
	FilenameLen = 16

	// EntrySize is the on-disk size of a directory entry.
	EntrySize = 32

	// MaxFiles is the number of entries in the root directory block.
	MaxFiles = disk.BlockSize / EntrySize
)

var (
	ErrInvalidName   = errors.New("invalid filename")
	ErrNameTooLong   = fmt.Errorf("filename longer than %d bytes", FilenameLen-1)
	ErrDirectoryFull = errors.New("root directory is full")

	ErrExist    = fmt.Errorf("file %w", iofs.ErrExist)
	ErrNotExist = fmt.Errorf("file %w", iofs.ErrNotExist)
)

// Entry is a root directory entry. The zero Entry is an empty slot.
type Entry struct {
	Name       string
	Size       uint32
	FirstBlock uint16
}

func (e *Entry) empty() bool { return e.Name == "" }

// Blocks returns the number of data blocks the file's contents occupy.
func (e *Entry) Blocks() int {
	return fullBlocks(int(e.Size))
}

// Directory is the root directory: a fixed number of slots, each
// either empty or holding one file.
type Directory [MaxFiles]Entry

// ValidName reports whether name can be stored in a directory entry.
func ValidName(name string) error {
	if name == "" || bytes.IndexByte([]byte(name), 0) != -1 {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if len(name) >= FilenameLen {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	return nil
}

// Lookup returns the slot of the file named name.
func (d *Directory) Lookup(name string) (int, error) {
	for i := range d {
		if !d[i].empty() && d[i].Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%q: %w", name, ErrNotExist)
}

// Create adds an empty file named name and returns its slot.
func (d *Directory) Create(name string) (int, error) {
	if err := ValidName(name); err != nil {
		return -1, err
	}
	if _, err := d.Lookup(name); err == nil {
		return -1, fmt.Errorf("%q: %w", name, ErrExist)
	}
	for i := range d {
		if d[i].empty() {
			d[i] = Entry{Name: name, FirstBlock: EOC}
			return i, nil
		}
	}
	return -1, ErrDirectoryFull
}

// Remove clears slot. The caller is responsible for freeing the
// file's blocks first.
func (d *Directory) Remove(slot int) {
	d[slot] = Entry{}
}

// FreeCount returns the number of empty slots.
func (d *Directory) FreeCount() int {
	var free int
	for i := range d {
		if d[i].empty() {
			free++
		}
	}
	return free
}

// Entries returns the non-empty entries in slot order.
func (d *Directory) Entries() []Entry {
	var entries []Entry
	for _, e := range d {
		if !e.empty() {
			entries = append(entries, e)
		}
	}
	return entries
}

// DecodeDirectory parses the root directory block.
func DecodeDirectory(block []byte) (*Directory, error) {
	if len(block) < MaxFiles*EntrySize {
		return nil, fmt.Errorf("directory block too short: %d bytes", len(block))
	}
	var d Directory
	for i := range d {
		raw := block[i*EntrySize : (i+1)*EntrySize]
		if raw[0] == 0 {
			continue
		}
		name := raw[:FilenameLen]
		if idx := bytes.IndexByte(name, 0); idx != -1 {
			name = name[:idx]
		} else {
			// not NUL terminated: use all but the last byte
			name = name[:FilenameLen-1]
		}
		d[i] = Entry{
			Name:       string(name),
			Size:       binary.LittleEndian.Uint32(raw[FilenameLen:]),
			FirstBlock: binary.LittleEndian.Uint16(raw[FilenameLen+4:]),
		}
	}
	return &d, nil
}

// Encode writes the directory as one block to w.
func (d *Directory) Encode(w io.Writer) error {
	pw := &paddingWriter{w: w, padTo: disk.BlockSize}
	for _, e := range d {
		var name [FilenameLen]byte
		copy(name[:FilenameLen-1], e.Name)
		for _, v := range []interface{}{
			name,
			e.Size,
			e.FirstBlock,
			[10]byte{}, // reserved
		} {
			if err := binary.Write(pw, binary.LittleEndian, v); err != nil {
				return err
			}
		}
	}
	return pw.Flush()
}
