package fat

import (
	"fmt"
	"io"

	"github.com/gokrazy/ecsfs/disk"
)

type paddingWriter struct {
	w     io.Writer
	count int
	padTo int
}

func (pw *paddingWriter) Write(p []byte) (n int, err error) {
	pw.count += int(len(p))
	return pw.w.Write(p)
}

func (pw *paddingWriter) Flush() error {
	if pw.count%pw.padTo == 0 {
		return nil
	}
	remainder := pw.padTo - (pw.count % pw.padTo)
	pw.count += remainder
	_, err := pw.w.Write(make([]byte, remainder))
	return err
}

// blockWriter turns a byte stream into consecutive block writes on a
// device, starting at block next. Callers must only write whole blocks
// in total (see paddingWriter); Close reports a partial trailing block.
type blockWriter struct {
	dev  disk.Device
	next int
	buf  []byte
	n    int
}

func newBlockWriter(dev disk.Device, start int) *blockWriter {
	return &blockWriter{
		dev:  dev,
		next: start,
		buf:  make([]byte, disk.BlockSize),
	}
}

func (bw *blockWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		c := copy(bw.buf[bw.n:], p)
		bw.n += c
		p = p[c:]
		written += c
		if bw.n == len(bw.buf) {
			if err := bw.dev.WriteBlock(bw.next, bw.buf); err != nil {
				return written, err
			}
			bw.next++
			bw.n = 0
		}
	}
	return written, nil
}

func (bw *blockWriter) Close() error {
	if bw.n != 0 {
		return fmt.Errorf("BUG: %d bytes left over in partial block %d", bw.n, bw.next)
	}
	return nil
}

// WriteMetadata writes superblock, FAT and root directory to the
// blocks sb describes.
func WriteMetadata(dev disk.Device, sb *Superblock, t Table, d *Directory) error {
	bw := newBlockWriter(dev, 0)
	if err := sb.Encode(bw); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	if err := t.Encode(bw, int(sb.FATBlocks)); err != nil {
		return fmt.Errorf("writing FAT: %w", err)
	}
	if bw.next != int(sb.RootDirBlock) {
		return fmt.Errorf("BUG: FAT ends at block %d, root directory is block %d", bw.next, sb.RootDirBlock)
	}
	if err := d.Encode(bw); err != nil {
		return fmt.Errorf("writing root directory: %w", err)
	}
	return bw.Close()
}

// Format writes an empty file system spanning all of dev. Data blocks
// are left untouched.
func Format(dev disk.Device) (*Superblock, error) {
	sb, err := NewSuperblock(dev.BlockCount())
	if err != nil {
		return nil, err
	}
	if err := WriteMetadata(dev, sb, NewTable(int(sb.DataBlocks)), &Directory{}); err != nil {
		return nil, err
	}
	return sb, nil
}
