// Package btrfsutil mounts a filesystem image across one or more devices
// and answers read-only queries against it: the chunk-tree handler (C7)
// that resolves logical addresses, the root-tree handler (C8) that finds
// subvolumes, the FS-tree handler (C9) that answers name and directory
// queries, and the query façade (C10) that ties them together behind a
// small mount lifecycle.
package btrfsutil

import "errors"

// ENOTREE is returned when a requested tree ID has no ROOT_ITEM in the
// root tree.
var ENOTREE = errors.New("ENOTREE: no such tree")

// ENOENT is returned when a name or object ID lookup finds nothing.
var ENOENT = errors.New("ENOENT: no such entry")

// EUNSUPPORTED names on-disk features this reader deliberately does not
// implement (extent-tree bookkeeping, quota groups, multi-device
// redundancy). No operation in this package returns it: items of such
// types decode as btrfsitem.Unknown, and an unattached device ID falls
// back to the primary device.
var EUNSUPPORTED = errors.New("EUNSUPPORTED: unsupported feature")

// ENOTREADY is returned by any query issued before Mount has reached the
// ready state.
var ENOTREADY = errors.New("ENOTREADY: volume is not mounted")
