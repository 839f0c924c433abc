package fs

import (
	"errors"
	"fmt"

	"github.com/gokrazy/ecsfs/disk"
	"github.com/gokrazy/ecsfs/fat"
)

// transfer copies between p and data block blk, starting at offset off
// within the block. At most disk.BlockSize-off bytes are transferred.
// Writes which do not cover the whole block read the block into the
// bounce buffer first, so that bytes outside the range are preserved.
func (fsys *FileSystem) transfer(blk uint16, off int, p []byte, write bool) (int, error) {
	n := len(p)
	if rest := disk.BlockSize - off; n > rest {
		n = rest
	}
	index := int(fsys.sb.DataStartBlock) + int(blk)
	if !write || n < disk.BlockSize {
		if err := fsys.dev.ReadBlock(index, fsys.block); err != nil {
			return 0, err
		}
	}
	if !write {
		copy(p[:n], fsys.block[off:])
		return n, nil
	}
	copy(fsys.block[off:], p[:n])
	if err := fsys.dev.WriteBlock(index, fsys.block); err != nil {
		return 0, err
	}
	return n, nil
}

// Read reads up to len(p) bytes from the file open as fd, starting at
// the descriptor's offset, and advances the offset. At the end of the
// file, Read returns 0 and no error.
func (fsys *FileSystem) Read(fd int, p []byte) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	d, err := fsys.lookupFD(fd)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, ErrInvalidBuffer
	}
	e := &fsys.dir[d.slot]
	rest := int(e.Size) - d.offset
	if len(p) == 0 || rest <= 0 {
		return 0, nil
	}
	if len(p) > rest {
		p = p[:rest]
	}

	blk, err := fsys.fat.BlockAt(e.FirstBlock, d.offset/disk.BlockSize)
	if err != nil {
		if errors.Is(err, fat.ErrPastEnd) {
			// size claims more blocks than the chain holds
			return 0, nil
		}
		return 0, fmt.Errorf("read %q: %w", e.Name, err)
	}
	var n int
	for {
		c, err := fsys.transfer(blk, d.offset%disk.BlockSize, p[n:], false)
		n += c
		d.offset += c
		if err != nil {
			return n, err
		}
		if n == len(p) {
			return n, nil
		}
		blk = fsys.fat[blk]
		if blk == fat.EOC || blk == 0 {
			return n, nil
		}
	}
}

// Write writes p to the file open as fd, starting at the descriptor's
// offset, allocating blocks as needed. When the volume runs out of
// space, Write stops and returns the number of bytes written without an
// error. The file grows if the write ends past its previous size.
func (fsys *FileSystem) Write(fd int, p []byte) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	d, err := fsys.lookupFD(fd)
	if err != nil {
		return 0, err
	}
	if fsys.readOnly {
		return 0, ErrReadOnly
	}
	if p == nil {
		return 0, ErrInvalidBuffer
	}
	if len(p) == 0 {
		return 0, nil
	}

	e := &fsys.dir[d.slot]
	chain, err := fsys.fat.Chain(e.FirstBlock)
	if err != nil {
		return 0, fmt.Errorf("write %q: %w", e.Name, err)
	}
	before := len(chain)

	var (
		n     int
		ioErr error
	)
	for n < len(p) {
		idx := d.offset / disk.BlockSize
		if idx >= len(chain) {
			blk, err := fsys.grow(e, chain)
			if err != nil {
				if errors.Is(err, fat.ErrNoSpace) {
					fsys.log.Printf("write %q: volume full after %d of %d bytes", e.Name, n, len(p))
				} else {
					ioErr = fmt.Errorf("write %q: %w", e.Name, err)
				}
				break
			}
			chain = append(chain, blk)
			continue
		}
		c, err := fsys.transfer(chain[idx], d.offset%disk.BlockSize, p[n:], true)
		n += c
		d.offset += c
		if err != nil {
			ioErr = err
			break
		}
	}

	if d.offset > int(e.Size) {
		e.Size = uint32(d.offset)
	}
	// Give back blocks this call allocated but did not fill, so that an
	// empty file keeps no chain.
	if keep := e.Blocks(); keep < len(chain) && len(chain) > before {
		if keep < before {
			keep = before
		}
		first, err := fsys.fat.Truncate(e.FirstBlock, keep)
		if err != nil && ioErr == nil {
			ioErr = err
		}
		if err == nil {
			e.FirstBlock = first
		}
	}
	return n, ioErr
}

// grow appends a block to the chain of e, whose current blocks are
// chain, and returns it.
func (fsys *FileSystem) grow(e *fat.Entry, chain []uint16) (uint16, error) {
	if len(chain) == 0 {
		blk, err := fsys.fat.Allocate()
		if err != nil {
			return 0, err
		}
		e.FirstBlock = blk
		fsys.log.Printf("%q: allocated first block %d", e.Name, blk)
		return blk, nil
	}
	blk, err := fsys.fat.Extend(chain[len(chain)-1])
	if err != nil {
		return 0, err
	}
	fsys.log.Printf("%q: allocated block %d", e.Name, blk)
	return blk, nil
}
