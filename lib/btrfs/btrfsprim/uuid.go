package btrfsprim

import (
	"fmt"

	"github.com/google/uuid"
)

// UUID is a raw 16-byte UUID as it appears on disk (fs UUID, chunk-tree
// UUID, device UUID, subvolume UUID). Presentation goes through
// github.com/google/uuid; the wire format is always the plain bytes.
type UUID [16]byte

func (u UUID) String() string {
	return uuid.UUID(u).String()
}

func (u UUID) IsZero() bool {
	return u == UUID{}
}

func ParseUUID(s string) (UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, fmt.Errorf("parse UUID %q: %w", s, err)
	}
	return UUID(id), nil
}
