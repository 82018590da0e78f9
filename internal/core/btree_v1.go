// Package core reads the on-disk chunk index of HDF5 chunked datasets.
package core

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/scigolib/arrayio/internal/utils"
)

// UndefinedAddress marks an absent sibling or chunk.
const UndefinedAddress = 0xFFFFFFFFFFFFFFFF

// chunkNodeType is the B-tree node type of raw data chunk indexes.
const chunkNodeType = 1

// BTreeV1Node represents a B-tree version 1 node of a chunk index.
// Reference: H5Bpkg.h, H5Dbtree.c.
type BTreeV1Node struct {
	Signature    [4]byte // Should be "TREE".
	NodeType     uint8   // Type of B-tree node.
	NodeLevel    uint8   // Level of node (0 = leaf).
	EntriesUsed  uint16  // Number of entries currently used.
	LeftSibling  uint64  // Address of left sibling (or UNDEFINED).
	RightSibling uint64  // Address of right sibling (or UNDEFINED).

	// Child i holds the chunks whose origins lie in [Keys[i], Keys[i+1]).
	Keys     []ChunkKey
	Children []uint64
}

// ChunkKey is a chunk index key.
type ChunkKey struct {
	// Offset is the chunk origin in dataset element coordinates, followed
	// by the trailing element-size dimension (always zero).
	Offset     []uint64
	Nbytes     uint32 // Size of stored chunk data in bytes.
	FilterMask uint32 // Excluded filters mask.
}

// ChunkEntry represents a chunk location in the B-tree.
type ChunkEntry struct {
	Key     ChunkKey // Chunk origin and metadata.
	Address uint64   // Address of chunk data.
}

// ParseBTreeV1Node parses a chunk B-tree v1 node from file.
// ndims is the number of key coordinates: the dataset rank plus one.
//
// Coordinates in chunk keys are always stored as 8-byte values regardless
// of the size of the chunk dimensions in the layout message.
func ParseBTreeV1Node(r utils.ReaderAt, address uint64, offsetSize uint8, ndims int) (*BTreeV1Node, error) {
	if address == UndefinedAddress {
		return nil, errors.New("undefined B-tree address")
	}
	if ndims <= 0 {
		return nil, fmt.Errorf("invalid key dimensionality: %d", ndims)
	}

	// signature + type + level + entries + 2 siblings.
	headerSize := 4 + 1 + 1 + 2 + int(offsetSize)*2
	header := utils.GetBuffer(headerSize)
	defer utils.ReleaseBuffer(header)

	//nolint:gosec // G115: HDF5 addresses fit in int64 for io.ReaderAt interface
	if _, err := r.ReadAt(header, int64(address)); err != nil {
		return nil, fmt.Errorf("failed to read B-tree node header: %w", err)
	}

	node := &BTreeV1Node{}
	offset := 0

	copy(node.Signature[:], header[offset:offset+4])
	if string(node.Signature[:]) != "TREE" {
		return nil, fmt.Errorf("invalid B-tree signature: %q", string(node.Signature[:]))
	}
	offset += 4

	node.NodeType = header[offset]
	if node.NodeType != chunkNodeType {
		return nil, fmt.Errorf("B-tree node type %d is not a chunk index", node.NodeType)
	}
	offset++

	node.NodeLevel = header[offset]
	offset++

	node.EntriesUsed = binary.LittleEndian.Uint16(header[offset : offset+2])
	offset += 2

	node.LeftSibling = readAddress(header[offset:], int(offsetSize))
	offset += int(offsetSize)

	node.RightSibling = readAddress(header[offset:], int(offsetSize))

	if node.EntriesUsed == 0 {
		return node, nil
	}

	// Key: nbytes (4) + filter_mask (4) + ndims*8 coordinates.
	// Layout: key0, child0, key1, child1, ..., keyN.
	keySize := 4 + 4 + ndims*8
	childSize := int(offsetSize)
	entrySize := keySize + childSize
	dataSize := int(node.EntriesUsed)*entrySize + keySize

	// Keys are decoded into fresh slices, so the raw bytes can be pooled.
	data := utils.GetBuffer(dataSize)
	defer utils.ReleaseBuffer(data)
	//nolint:gosec // G115: HDF5 addresses fit in int64 for io.ReaderAt interface
	if _, err := r.ReadAt(data, int64(address)+int64(headerSize)); err != nil {
		return nil, fmt.Errorf("failed to read B-tree node data: %w", err)
	}

	node.Keys = make([]ChunkKey, node.EntriesUsed+1)
	node.Children = make([]uint64, node.EntriesUsed)

	dataOffset := 0
	for i := 0; i <= int(node.EntriesUsed); i++ {
		key := ChunkKey{Offset: make([]uint64, ndims)}

		key.Nbytes = binary.LittleEndian.Uint32(data[dataOffset : dataOffset+4])
		dataOffset += 4

		key.FilterMask = binary.LittleEndian.Uint32(data[dataOffset : dataOffset+4])
		dataOffset += 4

		for j := 0; j < ndims; j++ {
			key.Offset[j] = binary.LittleEndian.Uint64(data[dataOffset : dataOffset+8])
			dataOffset += 8
		}
		node.Keys[i] = key

		if i < int(node.EntriesUsed) {
			node.Children[i] = readAddress(data[dataOffset:], childSize)
			dataOffset += childSize
		}
	}

	return node, nil
}

// SubtreeFilter reports whether a child whose chunk origins lie between
// the keys first and last may hold chunks of interest.
type SubtreeFilter func(first, last []uint64) bool

// Walk visits the chunks of the subtree rooted at node in key order.
// Children rejected by keep are not read. A nil keep visits everything.
func (node *BTreeV1Node) Walk(r utils.ReaderAt, offsetSize uint8, keep SubtreeFilter, fn func(ChunkEntry) error) error {
	for i := 0; i < int(node.EntriesUsed); i++ {
		if keep != nil && !keep(node.Keys[i].Offset, node.Keys[i+1].Offset) {
			continue
		}

		childAddr := node.Children[i]
		if node.NodeLevel == 0 {
			if err := fn(ChunkEntry{Key: node.Keys[i], Address: childAddr}); err != nil {
				return err
			}
			continue
		}

		childNode, err := ParseBTreeV1Node(r, childAddr, offsetSize, len(node.Keys[i].Offset))
		if err != nil {
			return fmt.Errorf("failed to parse child node at 0x%x: %w", childAddr, err)
		}
		if childNode.NodeLevel >= node.NodeLevel {
			return fmt.Errorf("child node at 0x%x has level %d, parent has level %d",
				childAddr, childNode.NodeLevel, node.NodeLevel)
		}
		if err := childNode.Walk(r, offsetSize, keep, fn); err != nil {
			return err
		}
	}
	return nil
}

// CollectAllChunks recursively collects all chunks from the B-tree.
func (node *BTreeV1Node) CollectAllChunks(r utils.ReaderAt, offsetSize uint8) ([]ChunkEntry, error) {
	var chunks []ChunkEntry
	err := node.Walk(r, offsetSize, nil, func(e ChunkEntry) error {
		chunks = append(chunks, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// FindChunk searches the B-tree for the chunk whose origin equals offset.
// offset has the same dimensionality as the keys. The boolean result is
// false when the chunk is not allocated.
func (node *BTreeV1Node) FindChunk(r utils.ReaderAt, offset []uint64, offsetSize uint8) (ChunkEntry, bool, error) {
	if node.EntriesUsed == 0 {
		return ChunkEntry{}, false, nil
	}

	// Follow the last child whose left key is <= offset.
	childIndex := -1
	for i := 0; i < int(node.EntriesUsed); i++ {
		if compareCoords(offset, node.Keys[i].Offset) < 0 {
			break
		}
		childIndex = i
	}
	if childIndex < 0 {
		return ChunkEntry{}, false, nil
	}

	childAddr := node.Children[childIndex]
	if node.NodeLevel == 0 {
		key := node.Keys[childIndex]
		if compareCoords(offset, key.Offset) != 0 {
			return ChunkEntry{}, false, nil
		}
		return ChunkEntry{Key: key, Address: childAddr}, true, nil
	}

	childNode, err := ParseBTreeV1Node(r, childAddr, offsetSize, len(offset))
	if err != nil {
		return ChunkEntry{}, false, fmt.Errorf("failed to parse child node at 0x%x: %w", childAddr, err)
	}
	return childNode.FindChunk(r, offset, offsetSize)
}

// compareCoords compares two coordinate arrays.
// Returns: -1 if a < b, 0 if a == b, 1 if a > b.
func compareCoords(a, b []uint64) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// readAddress reads a variable-sized little-endian address.
func readAddress(data []byte, size int) uint64 {
	if size > len(data) {
		size = len(data)
	}

	switch size {
	case 2:
		return uint64(binary.LittleEndian.Uint16(data[:2]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data[:4]))
	case 8:
		return binary.LittleEndian.Uint64(data[:8])
	default:
		var buf [8]byte
		copy(buf[:], data[:size])
		return binary.LittleEndian.Uint64(buf[:])
	}
}

// String returns human-readable B-tree node description.
func (node *BTreeV1Node) String() string {
	return fmt.Sprintf("B-tree v1 node: type=%d level=%d entries=%d",
		node.NodeType, node.NodeLevel, node.EntriesUsed)
}
