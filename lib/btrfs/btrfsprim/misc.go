package btrfsprim

import "time"

// Generation is a transaction ID; the filesystem's global monotonic clock.
type Generation uint64

// Time is the on-disk timestamp format used by inode times and root times.
type Time struct {
	Sec  int64
	NSec uint32
}

func (t Time) ToStd() time.Time {
	return time.Unix(t.Sec, int64(t.NSec))
}
