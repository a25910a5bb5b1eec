package diskio

import (
	"fmt"
	"io"
)

// MemFile is an in-memory File, used to build synthetic device images in
// tests without touching the filesystem.
type MemFile struct {
	name string
	data []byte
}

func NewMemFile(name string, data []byte) *MemFile {
	return &MemFile{name: name, data: data}
}

func (f *MemFile) Name() string  { return f.name }
func (f *MemFile) Size() int64   { return int64(len(f.data)) }
func (f *MemFile) Close() error  { return nil }

func (f *MemFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(f.data)) {
		return 0, fmt.Errorf("diskio: MemFile.ReadAt: offset %d out of range", off)
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *MemFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	return copy(f.data[off:], p), nil
}

var _ File[int64] = (*MemFile)(nil)
