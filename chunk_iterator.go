package arrayio

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/scigolib/arrayio/internal/core"
	"github.com/scigolib/arrayio/internal/utils"
)

// ChunkIndex is the version 1 B-tree chunk index of one HDF5 chunked
// variable. Keys are chunk origins, as produced by Tiling.Index.
type ChunkIndex struct {
	r          io.ReaderAt
	root       *core.BTreeV1Node
	offsetSize uint8
	tiling     *Tiling
}

// OpenChunkIndex reads the root node of the chunk B-tree at address.
// offsetSize is the file's address width in bytes.
func OpenChunkIndex(r io.ReaderAt, address uint64, offsetSize uint8, tiling *Tiling) (*ChunkIndex, error) {
	// Keys carry one extra trailing element-size dimension.
	root, err := core.ParseBTreeV1Node(r, address, offsetSize, tiling.Rank()+1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunk B-tree: %w", err)
	}
	return &ChunkIndex{r: r, root: root, offsetSize: offsetSize, tiling: tiling}, nil
}

// Tiling returns the tiling the index was opened with.
func (ix *ChunkIndex) Tiling() *Tiling {
	return ix.tiling
}

// Lookup returns the storage chunk of the tile at the given tile
// coordinate. The boolean result is false for unallocated chunks.
func (ix *ChunkIndex) Lookup(tile []int) (DataChunk, bool, error) {
	origin := ix.tiling.Index(tile)
	key := make([]uint64, len(origin)+1)
	for i, o := range origin {
		//nolint:gosec // G115: tile origins are non-negative
		key[i] = uint64(o)
	}

	entry, ok, err := ix.root.FindChunk(ix.r, key, ix.offsetSize)
	if err != nil {
		return DataChunk{}, false, utils.WrapErrorAt("chunk lookup", tile, err)
	}
	if !ok {
		return DataChunk{}, false, nil
	}
	return toDataChunk(entry)
}

// Chunks returns an iterator over the allocated storage chunks that
// overlap want, in index order.
func (ix *ChunkIndex) Chunks(ctx context.Context, want IndexSpace) (*ChunkIterator, error) {
	tiles, err := ix.tiling.Section(want)
	if err != nil {
		return nil, fmt.Errorf("invalid section: %w", err)
	}

	it := &ChunkIterator{ctx: ctx, tiling: ix.tiling}
	if tiles.IsEmpty() {
		return it, nil
	}

	lo := ix.tiling.Order(ix.tiling.Index(tiles.start))
	hi := ix.tiling.Order(ix.tiling.Index(tiles.Limit()))
	keep := func(first, last []uint64) bool {
		return ix.tiling.Order(toInts(first)) <= hi && ix.tiling.Order(toInts(last)) >= lo
	}

	err = ix.root.Walk(ix.r, ix.offsetSize, keep, func(e core.ChunkEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		dc, ok, err := toDataChunk(e)
		if err != nil || !ok {
			return err
		}
		origin := dc.Offset[:ix.tiling.Rank()]
		tile := ix.tiling.Tile(origin)
		if !slices.Equal(ix.tiling.Index(tile), origin) {
			return utils.WrapErrorAt("chunk index", origin,
				fmt.Errorf("chunk key is not aligned to chunk shape %v", ix.tiling.ChunkShape()))
		}
		if tiles.Contains(tile) {
			it.chunks = append(it.chunks, dc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect chunks: %w", err)
	}
	return it, nil
}

func toDataChunk(e core.ChunkEntry) (DataChunk, bool, error) {
	if e.Address == core.UndefinedAddress {
		return DataChunk{}, false, nil
	}
	if e.Address > uint64(1<<63-1) {
		return DataChunk{}, false, fmt.Errorf("chunk address 0x%x out of range", e.Address)
	}
	//nolint:gosec // G115: checked above
	return DataChunk{Offset: toInts(e.Key.Offset), FilePos: int64(e.Address)}, true, nil
}

func toInts(v []uint64) []int {
	out := make([]int, len(v))
	for i, x := range v {
		//nolint:gosec // G115: chunk coordinates fit in int
		out[i] = int(x)
	}
	return out
}

// ChunkIterator iterates over the storage chunks overlapping a section.
// It follows the bufio.Scanner pattern and implements DataChunkIterator,
// so it can drive a LayoutTiled directly:
//
//	it, err := index.Chunks(ctx, want)
//	if err != nil {
//	    return err
//	}
//	layout, err := arrayio.NewLayoutTiled(it, chunkShape, elemSize, want)
//
// The context is checked before each Next call.
type ChunkIterator struct {
	ctx        context.Context
	tiling     *Tiling
	chunks     []DataChunk
	current    int
	err        error
	onProgress func(current, total int)
}

// Next advances to the next chunk. Returns false when iteration is complete
// or an error occurred. Check Err() after iteration to distinguish.
func (it *ChunkIterator) Next() bool {
	if it.err != nil {
		return false
	}

	if it.ctx != nil {
		if err := it.ctx.Err(); err != nil {
			it.err = err
			return false
		}
	}

	if it.current >= len(it.chunks) {
		return false
	}
	it.current++

	if it.onProgress != nil {
		it.onProgress(it.current, len(it.chunks))
	}

	return true
}

// DataChunk returns the current chunk. Must be called after Next() returns true.
func (it *ChunkIterator) DataChunk() DataChunk {
	if it.current < 1 || it.current > len(it.chunks) {
		return DataChunk{}
	}
	return it.chunks[it.current-1]
}

// ChunkCoords returns the tile coordinate of the current chunk.
// For element indices, use Tiling.Index.
func (it *ChunkIterator) ChunkCoords() []int {
	if it.current < 1 || it.current > len(it.chunks) {
		return nil
	}
	return it.tiling.Tile(it.chunks[it.current-1].Offset)
}

// Progress returns the current chunk index and total chunk count.
func (it *ChunkIterator) Progress() (current, total int) {
	return it.current, len(it.chunks)
}

// Total returns the number of chunks overlapping the section.
func (it *ChunkIterator) Total() int {
	return len(it.chunks)
}

// Err returns any error that occurred during iteration.
func (it *ChunkIterator) Err() error {
	return it.err
}

// OnProgress sets a callback function that is called after each Next().
// The callback receives the current chunk index (1-based) and total count.
func (it *ChunkIterator) OnProgress(fn func(current, total int)) {
	it.onProgress = fn
}

// Reset rewinds the iterator to the first chunk.
func (it *ChunkIterator) Reset() {
	it.current = 0
	it.err = nil
}
