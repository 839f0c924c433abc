package fat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gokrazy/ecsfs/disk"
)

var (
	ErrNoSpace      = errors.New("no free data blocks")
	ErrPastEnd      = errors.New("block chain ends before requested position")
	ErrCorruptChain = errors.New("block chain is corrupt")
	ErrCorruptTable = errors.New("file allocation table is corrupt")
)

// Table is the File Allocation Table: one entry for each data block,
// holding 0 (free), EOC (last block of a chain) or the index of the
// next block in the chain. Entry 0 is reserved and never allocated.
type Table []uint16

// NewTable returns the table of a freshly formatted volume with
// dataBlocks data blocks.
func NewTable(dataBlocks int) Table {
	t := make(Table, dataBlocks)
	t[0] = EOC
	return t
}

// DecodeTable parses the FAT from its on-disk blocks. Only the first
// dataBlocks entries are kept.
func DecodeTable(blocks []byte, dataBlocks int) (Table, error) {
	if len(blocks) < dataBlocks*2 {
		return nil, fmt.Errorf("%w: %d bytes hold fewer than %d entries", ErrCorruptTable, len(blocks), dataBlocks)
	}
	t := make(Table, dataBlocks)
	for i := range t {
		t[i] = binary.LittleEndian.Uint16(blocks[2*i:])
	}
	for i, next := range t[1:] {
		if next != EOC && int(next) >= len(t) {
			return nil, fmt.Errorf("%w: entry %d links to %d, table has %d entries", ErrCorruptTable, i+1, next, len(t))
		}
		if int(next) == i+1 {
			return nil, fmt.Errorf("%w: entry %d links to itself", ErrCorruptTable, i+1)
		}
	}
	return t, nil
}

// Encode writes the table to w, zero padded to fatBlocks blocks.
func (t Table) Encode(w io.Writer, fatBlocks int) error {
	if len(t) > fatBlocks*entriesPerBlock {
		return fmt.Errorf("%d entries do not fit into %d FAT blocks", len(t), fatBlocks)
	}
	pw := &paddingWriter{w: w, padTo: fatBlocks * disk.BlockSize}
	if err := binary.Write(pw, binary.LittleEndian, []uint16(t)); err != nil {
		return err
	}
	return pw.Flush()
}

// FreeCount returns the number of unallocated data blocks.
func (t Table) FreeCount() int {
	var free int
	for _, e := range t[1:] {
		if e == 0 {
			free++
		}
	}
	return free
}

// FreeIndex returns the lowest free entry, if any.
func (t Table) FreeIndex() (uint16, bool) {
	for i := 1; i < len(t); i++ {
		if t[i] == 0 {
			return uint16(i), true
		}
	}
	return 0, false
}

// Allocate claims a free block as a new one-block chain.
func (t Table) Allocate() (uint16, error) {
	idx, ok := t.FreeIndex()
	if !ok {
		return 0, ErrNoSpace
	}
	t[idx] = EOC
	return idx, nil
}

// Extend appends a free block to the chain ending at tail and returns
// the new tail.
func (t Table) Extend(tail uint16) (uint16, error) {
	if int(tail) >= len(t) || t[tail] != EOC {
		return 0, fmt.Errorf("%w: block %d is not the end of a chain", ErrCorruptChain, tail)
	}
	idx, err := t.Allocate()
	if err != nil {
		return 0, err
	}
	t[tail] = idx
	return idx, nil
}

// next returns the successor of block cur, checking that the link is
// usable.
func (t Table) next(cur uint16) (uint16, error) {
	if cur == 0 || int(cur) >= len(t) {
		return 0, fmt.Errorf("%w: block %d out of range", ErrCorruptChain, cur)
	}
	next := t[cur]
	if next == 0 {
		return 0, fmt.Errorf("%w: block %d is free", ErrCorruptChain, cur)
	}
	return next, nil
}

// Chain returns the blocks of the chain starting at first, in order.
// An empty chain (first == EOC) yields no blocks.
func (t Table) Chain(first uint16) ([]uint16, error) {
	var blocks []uint16
	visited := make(map[uint16]bool)
	for cur := first; cur != EOC; {
		if visited[cur] {
			return nil, fmt.Errorf("%w: cycle at block %d", ErrCorruptChain, cur)
		}
		visited[cur] = true
		next, err := t.next(cur)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, cur)
		cur = next
	}
	return blocks, nil
}

// BlockAt returns the n-th (0-based) block of the chain starting at
// first.
func (t Table) BlockAt(first uint16, n int) (uint16, error) {
	cur := first
	for i := 0; i < n; i++ {
		if cur == EOC {
			return 0, ErrPastEnd
		}
		if i >= len(t) {
			return 0, fmt.Errorf("%w: longer than %d blocks", ErrCorruptChain, len(t))
		}
		next, err := t.next(cur)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	if cur == EOC {
		return 0, ErrPastEnd
	}
	return cur, nil
}

// Free releases every block of the chain starting at first.
func (t Table) Free(first uint16) error {
	blocks, err := t.Chain(first)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		t[b] = 0
	}
	return nil
}

// Truncate keeps the first keep blocks of the chain starting at first
// and frees the rest. It returns the (possibly new) first block, which
// is EOC when keep is 0.
func (t Table) Truncate(first uint16, keep int) (uint16, error) {
	blocks, err := t.Chain(first)
	if err != nil {
		return 0, err
	}
	if keep >= len(blocks) {
		return first, nil
	}
	for _, b := range blocks[keep:] {
		t[b] = 0
	}
	if keep == 0 {
		return EOC, nil
	}
	t[blocks[keep-1]] = EOC
	return first, nil
}
