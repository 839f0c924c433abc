package disk

// Memory is a Device held entirely in memory.
type Memory struct {
	data   []byte
	closed bool
}

// NewMemory returns a zero-filled in-memory device of blocks blocks.
func NewMemory(blocks int) *Memory {
	return &Memory{data: make([]byte, blocks*BlockSize)}
}

// NewMemoryFrom returns an in-memory device backed by data, whose
// length must be a multiple of BlockSize.
func NewMemoryFrom(data []byte) (*Memory, error) {
	if len(data)%BlockSize != 0 {
		return nil, ErrBadSize
	}
	return &Memory{data: data}, nil
}

func (m *Memory) BlockCount() int { return len(m.data) / BlockSize }

func (m *Memory) ReadBlock(index int, buf []byte) error {
	if m.closed {
		return &IOError{Op: "read", Block: index, Err: ErrClosed}
	}
	if err := check("read", index, m.BlockCount(), buf); err != nil {
		return err
	}
	copy(buf, m.data[index*BlockSize:])
	return nil
}

func (m *Memory) WriteBlock(index int, buf []byte) error {
	if m.closed {
		return &IOError{Op: "write", Block: index, Err: ErrClosed}
	}
	if err := check("write", index, m.BlockCount(), buf); err != nil {
		return err
	}
	copy(m.data[index*BlockSize:], buf)
	return nil
}

// Close marks the device closed. The contents stay available via
// Bytes, so that a test can remount the same data.
func (m *Memory) Close() error {
	m.closed = true
	return nil
}

// Reopen makes a closed device usable again.
func (m *Memory) Reopen() { m.closed = false }

// Bytes returns the device contents. The slice aliases the device.
func (m *Memory) Bytes() []byte { return m.data }
