package diskio

import "os"

// OSFile adapts an *os.File to the File interface, for reading real block
// devices or disk images.
type OSFile struct {
	f    *os.File
	size int64
}

// OpenOSFile opens path read-only and wraps it as a File[int64].
func OpenOSFile(path string) (*OSFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &OSFile{f: f, size: info.Size()}, nil
}

func (f *OSFile) Name() string                        { return f.f.Name() }
func (f *OSFile) Size() int64                         { return f.size }
func (f *OSFile) Close() error                        { return f.f.Close() }
func (f *OSFile) ReadAt(p []byte, off int64) (int, error)  { return f.f.ReadAt(p, off) }
func (f *OSFile) WriteAt(p []byte, off int64) (int, error) { return f.f.WriteAt(p, off) }

var _ File[int64] = (*OSFile)(nil)
