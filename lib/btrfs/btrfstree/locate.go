package btrfstree

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"

	"go.btrfsro.dev/btrfsro/lib/diskio"
)

// LocateSuperblock reads every candidate superblock offset off of dev,
// validates each copy's magic and checksum, and returns the
// highest-generation valid copy. At least one copy must validate; if more
// than one copy fails to validate, the individual errors are aggregated
// but do not prevent success as long as one copy is good.
func LocateSuperblock(ctx context.Context, r *diskio.BlockReader, dev string) (Superblock, error) {
	var best Superblock
	haveBest := false
	var errs derror.MultiError

	for _, off := range SuperblockOffsets {
		raw, err := r.ReadAt(ctx, dev, int64(off), SuperblockSize)
		if err != nil {
			dlog.Debugf(ctx, "btrfstree: superblock candidate at %v: %v", off, err)
			continue
		}
		sb, err := DecodeSuperblock(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("offset %v: %w", off, err))
			continue
		}
		if err := sb.ValidateMagic(); err != nil {
			errs = append(errs, fmt.Errorf("offset %v: %w", off, err))
			continue
		}
		if err := ValidateChecksum(raw, sb); err != nil {
			errs = append(errs, fmt.Errorf("offset %v: %w", off, err))
			continue
		}
		if !haveBest || sb.Generation > best.Generation {
			best = sb
			haveBest = true
		}
	}
	if !haveBest {
		if len(errs) > 0 {
			return Superblock{}, fmt.Errorf("btrfstree: no valid superblock found: %w", errs)
		}
		return Superblock{}, fmt.Errorf("btrfstree: no valid superblock found")
	}
	if len(errs) > 0 {
		dlog.Infof(ctx, "btrfstree: %d superblock copies were invalid, using generation %v", len(errs), best.Generation)
	}
	return best, nil
}
