package diskio

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"

	"go.btrfsro.dev/btrfsro/lib/containers"
)

// DefaultCacheSize is the number of blocks kept in a BlockReader's LRU
// cache when none is explicitly configured.
const DefaultCacheSize = 32

type blockKey struct {
	Dev  string
	Off  int64
	Size int
}

// BlockReader is a read-only, cached view onto one or more underlying
// devices. Every read is addressed by (device, physical offset, length);
// repeated reads of the same block are served from an LRU cache instead
// of re-issuing I/O.
type BlockReader struct {
	devices map[string]File[int64]
	cache   *containers.LRUCache[blockKey, []byte]
}

// NewBlockReader constructs a BlockReader with the given cache capacity
// (in blocks, not bytes). Devices are registered with AddDevice after
// construction.
func NewBlockReader(cacheSize int) *BlockReader {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &BlockReader{
		devices: make(map[string]File[int64]),
		cache:   containers.NewLRUCache[blockKey, []byte](cacheSize),
	}
}

// AddDevice registers a device under the given name so that it can be
// addressed by ReadAt.
func (r *BlockReader) AddDevice(name string, f File[int64]) {
	r.devices[name] = f
}

// Devices returns the names of all registered devices.
func (r *BlockReader) Devices() []string {
	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	return names
}

// ReadAt returns size bytes read from the named device at the given
// physical offset, serving from cache when possible.
func (r *BlockReader) ReadAt(ctx context.Context, dev string, off int64, size int) ([]byte, error) {
	key := blockKey{Dev: dev, Off: off, Size: size}
	if cached, ok := r.cache.Get(key); ok {
		dlog.Debugf(ctx, "diskio: cache hit dev=%s off=%#x size=%#x", dev, off, size)
		return cached, nil
	}
	f, ok := r.devices[dev]
	if !ok {
		return nil, fmt.Errorf("diskio: unknown device %q", dev)
	}
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, off)
	if err != nil {
		return nil, fmt.Errorf("diskio: read dev=%s off=%#x size=%#x: %w", dev, off, size, err)
	}
	if n != size {
		return nil, fmt.Errorf("diskio: short read dev=%s off=%#x: wanted %d, got %d", dev, off, size, n)
	}
	r.cache.Add(key, buf)
	return buf, nil
}

// CacheLen reports how many blocks are currently cached, for diagnostics.
func (r *BlockReader) CacheLen() int { return r.cache.Len() }

// Close closes every registered device.
func (r *BlockReader) Close() error {
	var firstErr error
	for _, f := range r.devices {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
