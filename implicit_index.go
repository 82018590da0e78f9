package arrayio

import (
	"fmt"

	"github.com/scigolib/arrayio/internal/utils"
)

// ImplicitChunks iterates the storage chunks of an implicit chunk index:
// every chunk of the tile grid is allocated, back to back in row-major
// tile order starting at a base address, so a chunk's file position is
// base + order*chunkBytes. HDF5 uses this index for fixed-size datasets
// without filters.
//
// Only the tiles overlapping the wanted section are visited.
type ImplicitChunks struct {
	tiling     *Tiling
	base       int64
	chunkBytes int64
	tiles      *Odometer
	cur        DataChunk
}

// NewImplicitChunks creates the iterator for the chunks of tiling that
// overlap want, with chunk data starting at base.
func NewImplicitChunks(tiling *Tiling, want IndexSpace, base int64, elemSize int) (*ImplicitChunks, error) {
	tiles, err := tiling.Section(want)
	if err != nil {
		return nil, utils.WrapErrorAt("implicit chunk index", want.start, err)
	}
	nelems, err := utils.ShapeProduct(tiling.chunkShape)
	if err != nil {
		return nil, utils.WrapError("implicit chunk index", err)
	}
	chunkBytes, err := utils.ByteSize(nelems, elemSize)
	if err != nil {
		return nil, utils.WrapError("implicit chunk index", err)
	}
	if err := utils.ValidateBufferSize(chunkBytes, utils.MaxChunkBytes, "chunk"); err != nil {
		return nil, utils.WrapError("implicit chunk index", err)
	}

	odo, err := NewOdometer(tiles, tiling.tileShape)
	if err != nil {
		return nil, fmt.Errorf("tile odometer: %w", err)
	}
	return &ImplicitChunks{tiling: tiling, base: base, chunkBytes: chunkBytes, tiles: odo}, nil
}

// Next implements DataChunkIterator.
func (c *ImplicitChunks) Next() bool {
	if c.tiles.Done() {
		return false
	}
	origin := c.tiling.Index(c.tiles.Current())
	c.cur = DataChunk{
		Offset:  origin,
		FilePos: c.base + c.tiling.Order(origin)*c.chunkBytes,
	}
	c.tiles.Incr()
	return true
}

// DataChunk implements DataChunkIterator.
func (c *ImplicitChunks) DataChunk() DataChunk {
	return c.cur
}

// Err implements DataChunkIterator. The implicit index never fails.
func (c *ImplicitChunks) Err() error {
	return nil
}
