// Package fs implements a mount session of an ECS150FS volume: loading
// the volume's tables from a block device, operating on files by name
// or descriptor, and writing the tables back on Unmount.
//
// All methods of FileSystem are safe for concurrent use; each one runs
// to completion before the next one starts.
package fs

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/gokrazy/ecsfs/disk"
	"github.com/gokrazy/ecsfs/fat"
)

// MaxOpenFiles is the number of descriptors which can be open at the
// same time.
const MaxOpenFiles = 32

var (
	ErrNotMounted      = errors.New("file system not mounted")
	ErrFilesStillOpen  = errors.New("files still open")
	ErrFileOpen        = errors.New("file is open")
	ErrTooManyOpen     = fmt.Errorf("more than %d open files", MaxOpenFiles)
	ErrBadDescriptor   = errors.New("bad file descriptor")
	ErrNotOpen         = errors.New("file descriptor not open")
	ErrOffsetBeyondEnd = errors.New("offset beyond end of file")
	ErrInvalidBuffer   = errors.New("invalid buffer")
	ErrReadOnly        = errors.New("file system is read-only")
	ErrDeviceClose     = errors.New("closing device failed")
)

// An Option configures a FileSystem.
type Option func(*FileSystem)

// WithLogger makes the FileSystem log mount, unmount and allocation
// events to l.
func WithLogger(l *log.Logger) Option {
	return func(fsys *FileSystem) {
		fsys.log = l
	}
}

type descriptor struct {
	slot   int // index into the root directory
	offset int
}

// FileSystem is a mounted volume.
type FileSystem struct {
	mu sync.Mutex

	dev      disk.Device
	readOnly bool
	mounted  bool

	sb  *fat.Superblock
	fat fat.Table
	dir *fat.Directory

	open [MaxOpenFiles]*descriptor

	// block is the bounce buffer for partial block transfers.
	block []byte

	log *log.Logger
}

// Mount opens the volume image name for reading and writing and mounts
// it.
func Mount(name string, opts ...Option) (*FileSystem, error) {
	dev, err := disk.Open(name)
	if err != nil {
		return nil, fmt.Errorf("mounting %s: %w", name, err)
	}
	fsys, err := MountDevice(dev, opts...)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("mounting %s: %w", name, err)
	}
	return fsys, nil
}

// MountReadOnly maps the volume image name and mounts it. Operations
// which modify the volume fail with ErrReadOnly.
func MountReadOnly(name string, opts ...Option) (*FileSystem, error) {
	dev, err := disk.OpenReadOnly(name)
	if err != nil {
		return nil, fmt.Errorf("mounting %s: %w", name, err)
	}
	fsys, err := MountDevice(dev, opts...)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("mounting %s: %w", name, err)
	}
	return fsys, nil
}

// MountDevice mounts the volume stored on dev. On success, the returned
// FileSystem owns dev and closes it in Unmount. On failure, dev is left
// open for the caller to close.
func MountDevice(dev disk.Device, opts ...Option) (*FileSystem, error) {
	fsys := &FileSystem{
		dev:      dev,
		readOnly: disk.IsReadOnly(dev),
		block:    make([]byte, disk.BlockSize),
		log:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(fsys)
	}

	if err := dev.ReadBlock(0, fsys.block); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb, err := fat.DecodeSuperblock(fsys.block)
	if err != nil {
		return nil, err
	}
	if err := sb.Validate(dev.BlockCount()); err != nil {
		return nil, err
	}

	fatBytes := make([]byte, int(sb.FATBlocks)*disk.BlockSize)
	for i := 0; i < int(sb.FATBlocks); i++ {
		if err := dev.ReadBlock(1+i, fatBytes[i*disk.BlockSize:(i+1)*disk.BlockSize]); err != nil {
			return nil, fmt.Errorf("reading FAT: %w", err)
		}
	}
	table, err := fat.DecodeTable(fatBytes, int(sb.DataBlocks))
	if err != nil {
		return nil, err
	}

	if err := dev.ReadBlock(int(sb.RootDirBlock), fsys.block); err != nil {
		return nil, fmt.Errorf("reading root directory: %w", err)
	}
	dir, err := fat.DecodeDirectory(fsys.block)
	if err != nil {
		return nil, err
	}

	fsys.sb = sb
	fsys.fat = table
	fsys.dir = dir
	fsys.mounted = true
	fsys.log.Printf("mounted volume: %d blocks, %d data blocks (%d free), %d files",
		sb.TotalBlocks, sb.DataBlocks, table.FreeCount(), fat.MaxFiles-dir.FreeCount())
	return fsys, nil
}

// Unmount writes the volume's tables back to the device and closes the
// device. It fails with ErrFilesStillOpen, leaving the volume mounted
// and untouched, while any descriptor is open.
func (fsys *FileSystem) Unmount() error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if !fsys.mounted {
		return ErrNotMounted
	}
	if n := fsys.openCount(); n > 0 {
		return fmt.Errorf("%w: %d descriptors", ErrFilesStillOpen, n)
	}
	if !fsys.readOnly {
		if err := fat.WriteMetadata(fsys.dev, fsys.sb, fsys.fat, fsys.dir); err != nil {
			return err
		}
		if s, ok := fsys.dev.(interface{ Sync() error }); ok {
			if err := s.Sync(); err != nil {
				return err
			}
		}
	}
	fsys.mounted = false
	fsys.sb, fsys.fat, fsys.dir = nil, nil, nil
	if err := fsys.dev.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceClose, err)
	}
	fsys.log.Printf("unmounted volume")
	return nil
}

func (fsys *FileSystem) openCount() int {
	var n int
	for _, d := range fsys.open {
		if d != nil {
			n++
		}
	}
	return n
}

// Info describes the layout and usage of a mounted volume.
type Info struct {
	TotalBlocks    int
	FATBlocks      int
	RootDirBlock   int
	DataStartBlock int
	DataBlocks     int
	FreeDataBlocks int
	FreeDirEntries int
}

func (i Info) String() string {
	return fmt.Sprintf(`FS Info:
total_blk_count=%d
fat_blk_count=%d
rdir_blk=%d
data_blk=%d
data_blk_count=%d
fat_free_ratio=%d/%d
rdir_free_ratio=%d/%d
`,
		i.TotalBlocks,
		i.FATBlocks,
		i.RootDirBlock,
		i.DataStartBlock,
		i.DataBlocks,
		i.FreeDataBlocks, i.DataBlocks,
		i.FreeDirEntries, fat.MaxFiles)
}

func (fsys *FileSystem) Info() (Info, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if !fsys.mounted {
		return Info{}, ErrNotMounted
	}
	return Info{
		TotalBlocks:    int(fsys.sb.TotalBlocks),
		FATBlocks:      int(fsys.sb.FATBlocks),
		RootDirBlock:   int(fsys.sb.RootDirBlock),
		DataStartBlock: int(fsys.sb.DataStartBlock),
		DataBlocks:     int(fsys.sb.DataBlocks),
		FreeDataBlocks: fsys.fat.FreeCount(),
		FreeDirEntries: fsys.dir.FreeCount(),
	}, nil
}

// ReadOnly reports whether the volume was mounted from a read-only
// device.
func (fsys *FileSystem) ReadOnly() bool {
	return fsys.readOnly
}
