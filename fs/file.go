package fs

import (
	"errors"
	"fmt"
	"io"
)

// File is an open file, usable with the io package.
type File struct {
	fsys *FileSystem
	fd   int
	name string
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// OpenFile opens the file called name and wraps the descriptor in a
// File.
func (fsys *FileSystem) OpenFile(name string) (*File, error) {
	fd, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	return &File{fsys: fsys, fd: fd, name: name}, nil
}

func (f *File) Name() string { return f.name }

// Fd returns the descriptor of f.
func (f *File) Fd() int { return f.fd }

// Read implements io.Reader; it returns io.EOF at the end of the file.
func (f *File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := f.fsys.Read(f.fd, p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements io.Writer. When the volume is full, the returned
// error is io.ErrShortWrite.
func (f *File) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := f.fsys.Write(f.fd, p)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Seek implements io.Seeker. Seeking past the end of the file fails
// with ErrOffsetBeyondEnd.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		cur, err := f.fsys.Tell(f.fd)
		if err != nil {
			return 0, err
		}
		base = cur
	case io.SeekEnd:
		size, err := f.fsys.Stat(f.fd)
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	abs := int64(base) + offset
	if abs < 0 {
		return 0, errors.New("seek: negative position")
	}
	if err := f.fsys.Seek(f.fd, int(abs)); err != nil {
		return 0, err
	}
	return abs, nil
}

// Size returns the current size of the file in bytes.
func (f *File) Size() (int64, error) {
	size, err := f.fsys.Stat(f.fd)
	return int64(size), err
}

func (f *File) Close() error {
	return f.fsys.Close(f.fd)
}
