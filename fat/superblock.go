package fat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gokrazy/ecsfs/disk"
)

const (
	// Signature identifies an ECS150FS volume. It occupies the first 8
	// bytes of the superblock.
	Signature = "ECS150FS"

	// EOC marks the end of a block chain in the FAT, and the first
	// block of an empty file.
	EOC = uint16(0xFFFF)

	// entriesPerBlock is the number of 16-bit FAT entries per block.
	entriesPerBlock = disk.BlockSize / 2

	// MaxBlocks is the largest total block count a superblock can
	// describe.
	MaxBlocks = 0xFFFF

	// minBlocks covers superblock, one FAT block, root directory and
	// one data block.
	minBlocks = 4
)

var ErrBadLayout = errors.New("inconsistent superblock layout")

// SignatureError is returned when block 0 does not start with
// Signature.
type SignatureError struct {
	Found [8]byte
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("bad signature: got %q, want %q", e.Found[:], Signature)
}

// SizeMismatchError is returned when the superblock describes a volume
// of a different size than the device it was read from.
type SizeMismatchError struct {
	Superblock int
	Device     int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("superblock describes %d blocks, device has %d", e.Superblock, e.Device)
}

// LayoutError describes which relationship between superblock fields
// does not hold.
type LayoutError struct {
	Field string
	Got   int
	Want  int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%v: %s is %d, want %d", ErrBadLayout, e.Field, e.Got, e.Want)
}

func (e *LayoutError) Unwrap() error { return ErrBadLayout }

// Superblock is the volume header stored in block 0.
type Superblock struct {
	Signature      [8]byte
	TotalBlocks    uint16
	RootDirBlock   uint16
	DataStartBlock uint16
	DataBlocks     uint16
	FATBlocks      uint8
}

// NewSuperblock computes the layout of a volume of totalBlocks blocks:
// the superblock, as many FAT blocks as needed to hold one entry per
// data block, the root directory, and the data blocks.
func NewSuperblock(totalBlocks int) (*Superblock, error) {
	if totalBlocks < minBlocks || totalBlocks > MaxBlocks {
		return nil, fmt.Errorf("volume size %d blocks out of range [%d, %d]", totalBlocks, minBlocks, MaxBlocks)
	}
	// Smallest FAT which holds one entry for each remaining block.
	fatBlocks := (totalBlocks - 2 + entriesPerBlock) / (entriesPerBlock + 1)
	if fatBlocks > 0xFF {
		return nil, fmt.Errorf("volume size %d blocks needs %d FAT blocks, at most 255 supported", totalBlocks, fatBlocks)
	}
	sb := &Superblock{
		TotalBlocks:    uint16(totalBlocks),
		RootDirBlock:   uint16(fatBlocks + 1),
		DataStartBlock: uint16(fatBlocks + 2),
		DataBlocks:     uint16(totalBlocks - 2 - fatBlocks),
		FATBlocks:      uint8(fatBlocks),
	}
	copy(sb.Signature[:], Signature)
	return sb, nil
}

func fullBlocks(bytes int) int {
	blocks := bytes / disk.BlockSize
	if bytes%disk.BlockSize > 0 {
		blocks++
	}
	return blocks
}

// DecodeSuperblock parses block 0.
func DecodeSuperblock(block []byte) (*Superblock, error) {
	var sb Superblock
	if err := binary.Read(bytes.NewReader(block), binary.LittleEndian, &sb); err != nil {
		return nil, fmt.Errorf("decoding superblock: %w", err)
	}
	return &sb, nil
}

// Encode writes the superblock, zero padded to a full block, to w.
func (sb *Superblock) Encode(w io.Writer) error {
	pw := &paddingWriter{w: w, padTo: disk.BlockSize}
	for _, v := range []interface{}{
		sb.Signature,
		sb.TotalBlocks,
		sb.RootDirBlock,
		sb.DataStartBlock,
		sb.DataBlocks,
		sb.FATBlocks,
	} {
		if err := binary.Write(pw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return pw.Flush()
}

// Validate checks the superblock against itself and against a device
// of deviceBlocks blocks.
func (sb *Superblock) Validate(deviceBlocks int) error {
	if string(sb.Signature[:]) != Signature {
		return &SignatureError{Found: sb.Signature}
	}
	if int(sb.TotalBlocks) != deviceBlocks {
		return &SizeMismatchError{Superblock: int(sb.TotalBlocks), Device: deviceBlocks}
	}
	for _, c := range []struct {
		field     string
		got, want int
	}{
		{"root directory block", int(sb.RootDirBlock), int(sb.FATBlocks) + 1},
		{"data start block", int(sb.DataStartBlock), int(sb.RootDirBlock) + 1},
		{"data block end", int(sb.DataStartBlock) + int(sb.DataBlocks), int(sb.TotalBlocks)},
	} {
		if c.got != c.want {
			return &LayoutError{Field: c.field, Got: c.got, Want: c.want}
		}
	}
	if need := fullBlocks(int(sb.DataBlocks) * 2); int(sb.FATBlocks) < need {
		return &LayoutError{Field: "FAT block count", Got: int(sb.FATBlocks), Want: need}
	}
	if sb.DataBlocks == 0 {
		return &LayoutError{Field: "data block count", Got: 0, Want: 1}
	}
	return nil
}
