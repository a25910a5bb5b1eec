package btrfsutil

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfssum"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
	"go.btrfsro.dev/btrfsro/lib/diskio"
)

const testNodeSize = 0x1000

type testLeafItem struct {
	key  btrfsprim.Key
	body []byte
}

// encodeLeaf packs items into one leaf node the way real on-disk leaves
// are laid out: item headers grow forward from the node header, item
// bodies are packed backward from the end of the node.
func encodeLeaf(t *testing.T, addr btrfsvol.LogicalAddr, owner btrfsprim.ObjID, gen btrfsprim.Generation, items []testLeafItem) []byte {
	t.Helper()
	buf := make([]byte, testNodeSize)
	le := binary.LittleEndian
	le.PutUint64(buf[0x30:], uint64(addr))
	le.PutUint64(buf[0x50:], uint64(gen))
	le.PutUint64(buf[0x58:], uint64(owner))
	le.PutUint32(buf[0x60:], uint32(len(items)))
	buf[0x64] = 0 // Level=0

	dataEnd := testNodeSize
	for i, item := range items {
		hdr := buf[0x65+i*0x19:]
		le.PutUint64(hdr[0x0:], uint64(item.key.ObjectID))
		hdr[0x8] = byte(item.key.ItemType)
		le.PutUint64(hdr[0x9:], item.key.Offset)

		dataStart := dataEnd - len(item.body)
		dataOffset := dataStart - 0x65
		le.PutUint32(hdr[0x11:], uint32(dataOffset))
		le.PutUint32(hdr[0x15:], uint32(len(item.body)))
		copy(buf[dataStart:dataEnd], item.body)
		dataEnd = dataStart
	}

	sum := btrfssum.Sum(0, buf[0x20:testNodeSize])
	le.PutUint32(buf[0x0:], sum)
	return buf
}

func encodeInode(size int64) []byte {
	body := make([]byte, 0xa0)
	binary.LittleEndian.PutUint64(body[0x10:], uint64(size))
	return body
}

func encodeInodeRef(name string) []byte {
	body := make([]byte, 0xa+len(name))
	binary.LittleEndian.PutUint16(body[0x8:], uint16(len(name)))
	copy(body[0xa:], name)
	return body
}

func encodeDirItem(childID btrfsprim.ObjID, name string, fileType btrfsitem.FileType) []byte {
	body := make([]byte, 0x1e+len(name))
	le := binary.LittleEndian
	le.PutUint64(body[0x0:], uint64(childID)) // location.objectid
	body[0x8] = byte(btrfsprim.INODE_ITEM)    // location.type
	// body[0x9:0x11] location.offset = 0
	le.PutUint64(body[0x11:], 0) // transid
	le.PutUint16(body[0x19:], 0) // data_len
	le.PutUint16(body[0x1b:], uint16(len(name)))
	body[0x1d] = byte(fileType)
	copy(body[0x1e:], name)
	return body
}

func encodeRegFileExtent(numBytes int64) []byte {
	body := make([]byte, 0x15+0x20)
	body[0x14] = byte(btrfsitem.FILE_EXTENT_REG)
	binary.LittleEndian.PutUint64(body[0x15+0x18:], uint64(numBytes))
	return body
}

// mountedVolume builds a ready Volume whose FS tree is a single leaf node
// at logical address 0x20000, backed by an in-memory device.
func mountedVolume(t *testing.T, leaf []byte, fsTreeAddr btrfsvol.LogicalAddr) *Volume {
	t.Helper()
	mem := diskio.NewMemFile("mem", nil)
	_, err := mem.WriteAt(leaf, 0)
	require.NoError(t, err)

	reader := diskio.NewBlockReader(0)
	reader.AddDevice("mem", mem)

	v := newVolume(reader, "mem")
	v.devNames[1] = "mem"
	v.chunks.Insert(btrfsvol.Chunk{
		LogicalAddr: fsTreeAddr,
		Size:        btrfsvol.AddrDelta(testNodeSize),
		Stripes:     []btrfsvol.Stripe{{DeviceID: 1, Offset: 0}},
	})
	v.super.NodeSize = testNodeSize
	v.roots = []btrfstree.LeafItem{
		{
			Key:  btrfsprim.Key{ObjectID: btrfsprim.FS_TREE_OBJECTID, ItemType: btrfsprim.ROOT_ITEM},
			Body: btrfsitem.Root{ByteNr: fsTreeAddr, Level: 0},
		},
	}
	v.state = stateReady
	return v
}

func buildFSTreeImage(t *testing.T) (*Volume, btrfsprim.ObjID) {
	t.Helper()
	const fsTreeAddr = btrfsvol.LogicalAddr(0x20000)
	const rootDirID = btrfsprim.FIRST_FREE_OBJECTID // 256
	const fileID = rootDirID + 1

	name := "hello.txt"
	items := []testLeafItem{
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.INODE_ITEM},
			body: encodeInode(0),
		},
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.DIR_ITEM, Offset: btrfsitem.NameHash([]byte(name))},
			body: encodeDirItem(fileID, name, btrfsitem.FT_REG_FILE),
		},
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.DIR_INDEX, Offset: 2},
			body: encodeDirItem(fileID, name, btrfsitem.FT_REG_FILE),
		},
		{
			key:  btrfsprim.Key{ObjectID: fileID, ItemType: btrfsprim.INODE_ITEM},
			body: encodeInode(4096),
		},
		{
			key:  btrfsprim.Key{ObjectID: fileID, ItemType: btrfsprim.INODE_REF, Offset: uint64(rootDirID)},
			body: encodeInodeRef(name),
		},
		{
			key:  btrfsprim.Key{ObjectID: fileID, ItemType: btrfsprim.EXTENT_DATA, Offset: 0},
			body: encodeRegFileExtent(4096),
		},
	}
	leaf := encodeLeaf(t, fsTreeAddr, btrfsprim.FS_TREE_OBJECTID, 7, items)
	v := mountedVolume(t, leaf, fsTreeAddr)
	return v, fileID
}

func TestNameToIDResolvesFileInRootDir(t *testing.T) {
	t.Parallel()
	v, fileID := buildFSTreeImage(t)
	ctx := context.Background()

	id, err := v.NameToID(ctx, btrfsprim.FS_TREE_OBJECTID, btrfsprim.FIRST_FREE_OBJECTID, []byte("hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, fileID, id)

	_, err = v.NameToID(ctx, btrfsprim.FS_TREE_OBJECTID, btrfsprim.FIRST_FREE_OBJECTID, []byte("nope.txt"))
	assert.ErrorIs(t, err, ENOENT)
}

func TestGetFilePkgAssemblesInodeParentAndName(t *testing.T) {
	t.Parallel()
	v, fileID := buildFSTreeImage(t)
	ctx := context.Background()

	pkg, err := v.GetFilePkg(ctx, btrfsprim.FS_TREE_OBJECTID, fileID)
	require.NoError(t, err)
	assert.True(t, pkg.HaveInode)
	assert.Equal(t, int64(4096), pkg.Inode.Size)
	assert.True(t, pkg.HaveName)
	assert.Equal(t, "hello.txt", string(pkg.Name))
	assert.Equal(t, btrfsprim.FIRST_FREE_OBJECTID, pkg.ParentID)
}

func TestDirListIncludesSyntheticDotEntries(t *testing.T) {
	t.Parallel()
	v, fileID := buildFSTreeImage(t)
	ctx := context.Background()

	entries, err := v.DirList(ctx, btrfsprim.FS_TREE_OBJECTID, fileID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ".", string(entries[0].Name))
	assert.True(t, entries[0].HaveInode)
	assert.Equal(t, "..", string(entries[1].Name))
	assert.Equal(t, btrfsprim.FIRST_FREE_OBJECTID, entries[1].ObjectID)
	assert.True(t, entries[1].HaveInode)
}

func TestDirListOmitsDotEntriesForSubvolumeRoot(t *testing.T) {
	t.Parallel()
	v, fileID := buildFSTreeImage(t)
	ctx := context.Background()

	entries, err := v.DirList(ctx, btrfsprim.FS_TREE_OBJECTID, btrfsprim.FIRST_FREE_OBJECTID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello.txt", string(entries[0].Name))
	assert.Equal(t, fileID, entries[0].ObjectID)
	assert.True(t, entries[0].HaveInode)
	assert.False(t, entries[0].Hidden)
}

func TestDirListSetsHiddenForDotfiles(t *testing.T) {
	t.Parallel()
	const fsTreeAddr = btrfsvol.LogicalAddr(0x20000)
	const rootDirID = btrfsprim.FIRST_FREE_OBJECTID
	const fileID = rootDirID + 1
	name := ".bashrc"
	items := []testLeafItem{
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.INODE_ITEM},
			body: encodeInode(0),
		},
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.DIR_ITEM, Offset: btrfsitem.NameHash([]byte(name))},
			body: encodeDirItem(fileID, name, btrfsitem.FT_REG_FILE),
		},
		{
			key:  btrfsprim.Key{ObjectID: fileID, ItemType: btrfsprim.INODE_ITEM},
			body: encodeInode(10),
		},
		{
			key:  btrfsprim.Key{ObjectID: fileID, ItemType: btrfsprim.EXTENT_DATA, Offset: 0},
			body: encodeRegFileExtent(10),
		},
	}
	leaf := encodeLeaf(t, fsTreeAddr, btrfsprim.FS_TREE_OBJECTID, 7, items)
	v := mountedVolume(t, leaf, fsTreeAddr)
	ctx := context.Background()

	entries, err := v.DirList(ctx, btrfsprim.FS_TREE_OBJECTID, rootDirID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Hidden)

	pkg, err := v.GetFilePkg(ctx, btrfsprim.FS_TREE_OBJECTID, fileID)
	require.NoError(t, err)
	assert.True(t, pkg.Hidden)
}

func TestGetFilePkgFailsOnDanglingDirItemReference(t *testing.T) {
	t.Parallel()
	const fsTreeAddr = btrfsvol.LogicalAddr(0x20000)
	const rootDirID = btrfsprim.FIRST_FREE_OBJECTID
	const fileID = rootDirID + 1
	name := "ghost.txt"
	// The DIR_ITEM chain names fileID, but fileID's own INODE_ITEM is
	// missing: a dangling reference. GetFilePkg must surface ENOENT
	// rather than a package with HaveInode false.
	items := []testLeafItem{
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.INODE_ITEM},
			body: encodeInode(0),
		},
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.DIR_ITEM, Offset: btrfsitem.NameHash([]byte(name))},
			body: encodeDirItem(fileID, name, btrfsitem.FT_REG_FILE),
		},
	}
	leaf := encodeLeaf(t, fsTreeAddr, btrfsprim.FS_TREE_OBJECTID, 7, items)
	v := mountedVolume(t, leaf, fsTreeAddr)
	ctx := context.Background()

	_, err := v.GetFilePkg(ctx, btrfsprim.FS_TREE_OBJECTID, fileID)
	assert.ErrorIs(t, err, ENOENT)
}

func TestDirListFailsOnDanglingChildReference(t *testing.T) {
	t.Parallel()
	const fsTreeAddr = btrfsvol.LogicalAddr(0x20000)
	const rootDirID = btrfsprim.FIRST_FREE_OBJECTID
	const fileID = rootDirID + 1
	name := "ghost.txt"
	items := []testLeafItem{
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.INODE_ITEM},
			body: encodeInode(0),
		},
		{
			key:  btrfsprim.Key{ObjectID: rootDirID, ItemType: btrfsprim.DIR_ITEM, Offset: btrfsitem.NameHash([]byte(name))},
			body: encodeDirItem(fileID, name, btrfsitem.FT_REG_FILE),
		},
	}
	leaf := encodeLeaf(t, fsTreeAddr, btrfsprim.FS_TREE_OBJECTID, 7, items)
	v := mountedVolume(t, leaf, fsTreeAddr)
	ctx := context.Background()

	_, err := v.DirList(ctx, btrfsprim.FS_TREE_OBJECTID, rootDirID)
	assert.ErrorIs(t, err, ENOENT)
}

func TestQueriesFailBeforeReady(t *testing.T) {
	t.Parallel()
	v := newVolume(nil, "")
	ctx := context.Background()

	_, err := v.NameToID(ctx, btrfsprim.FS_TREE_OBJECTID, btrfsprim.FIRST_FREE_OBJECTID, []byte("x"))
	assert.ErrorIs(t, err, ENOTREADY)
}
