// Package disk provides fixed-size block devices: a file-backed
// read-write device, a memory-mapped read-only device and an in-memory
// device for tests.
package disk

import (
	"errors"
	"fmt"
)

// BlockSize is the size in bytes of every block of every device.
const BlockSize = 4096

var (
	ErrOutOfRange = errors.New("block index out of range")
	ErrBufferSize = fmt.Errorf("buffer must be exactly %d bytes", BlockSize)
	ErrReadOnly   = errors.New("device is read-only")
	ErrBadSize    = fmt.Errorf("device size is not a multiple of %d bytes", BlockSize)
	ErrLocked     = errors.New("device is in use by another process")
	ErrClosed     = errors.New("device is closed")
)

// Device is a block storage device with a fixed number of blocks.
type Device interface {
	// BlockCount returns the number of blocks of the device.
	BlockCount() int

	// ReadBlock reads block index into buf, which must be BlockSize
	// bytes long.
	ReadBlock(index int, buf []byte) error

	// WriteBlock writes buf, which must be BlockSize bytes long, to
	// block index.
	WriteBlock(index int, buf []byte) error

	Close() error
}

// IOError records a failed block transfer.
type IOError struct {
	Op    string // "read" or "write"
	Block int
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s block %d: %v", e.Op, e.Block, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsReadOnly reports whether dev rejects writes.
func IsReadOnly(dev Device) bool {
	ro, ok := dev.(interface{ ReadOnly() bool })
	return ok && ro.ReadOnly()
}

func check(op string, index, count int, buf []byte) error {
	if index < 0 || index >= count {
		return &IOError{Op: op, Block: index, Err: ErrOutOfRange}
	}
	if len(buf) != BlockSize {
		return &IOError{Op: op, Block: index, Err: ErrBufferSize}
	}
	return nil
}
