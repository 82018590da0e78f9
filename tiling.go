package arrayio

import (
	"fmt"

	"github.com/scigolib/arrayio/internal/utils"
)

// Tiling maps between dataset index coordinates and tile (storage chunk)
// coordinates for grid-chunked storage.
//
// chunkShape may have more dimensions than varShape; HDF5 appends an
// element-size dimension to its chunk dimensions. The extra trailing
// dimensions are ignored.
//
// The index shape is max(varShape, chunkShape) per dimension: storage
// may allocate whole chunks past the declared extent of the variable, and
// points inside those padded chunks are accepted.
type Tiling struct {
	rank        int
	chunkShape  []int
	indexShape  []int
	tileShape   []int
	tileStrider []int64
}

// NewTiling creates the tiling of a variable with the given chunk shape.
func NewTiling(varShape, chunkShape []int) (*Tiling, error) {
	rank := len(varShape)
	if len(chunkShape) < rank {
		return nil, fmt.Errorf("%w: variable has rank %d, chunk shape has rank %d",
			ErrRankMismatch, rank, len(chunkShape))
	}

	t := &Tiling{
		rank:       rank,
		chunkShape: cloneInts(chunkShape[:rank]),
		indexShape: make([]int, rank),
		tileShape:  make([]int, rank),
	}
	for i := 0; i < rank; i++ {
		if varShape[i] < 0 {
			return nil, fmt.Errorf("%w: variable shape[%d] = %d", ErrNegativeShape, i, varShape[i])
		}
		if chunkShape[i] <= 0 {
			return nil, fmt.Errorf("chunk shape[%d] must be positive, got %d", i, chunkShape[i])
		}
		t.indexShape[i] = max(varShape[i], chunkShape[i])
		t.tileShape[i] = (t.indexShape[i] + chunkShape[i] - 1) / chunkShape[i]
	}
	if _, err := utils.ShapeProduct(t.tileShape); err != nil {
		return nil, fmt.Errorf("tile grid too large: %w", err)
	}
	t.tileStrider = utils.Strides(t.tileShape)

	return t, nil
}

// Rank returns the number of dataset dimensions.
func (t *Tiling) Rank() int {
	return t.rank
}

// ChunkShape returns the chunk shape restricted to the dataset rank.
func (t *Tiling) ChunkShape() []int {
	return cloneInts(t.chunkShape)
}

// IndexShape returns the chunk-padded dataset shape.
func (t *Tiling) IndexShape() []int {
	return cloneInts(t.indexShape)
}

// TileShape returns the number of tiles along each dimension.
func (t *Tiling) TileShape() []int {
	return cloneInts(t.tileShape)
}

// Tile returns the coordinate of the tile containing index.
// Only the first min(rank, len(index)) dimensions are used.
func (t *Tiling) Tile(index []int) []int {
	n := min(t.rank, len(index))
	tile := make([]int, n)
	for i := 0; i < n; i++ {
		tile[i] = index[i] / t.chunkShape[i]
	}
	return tile
}

// Index returns the origin (minimum dataset coordinate) of tile. This is
// the key format of the on-disk chunk index.
func (t *Tiling) Index(tile []int) []int {
	n := min(t.rank, len(tile))
	index := make([]int, n)
	for i := 0; i < n; i++ {
		index[i] = tile[i] * t.chunkShape[i]
	}
	return index
}

// Order returns a scalar key giving a row-major total order over the
// tiles: the linear position of tile(pt) within the tile grid.
func (t *Tiling) Order(pt []int) int64 {
	var order int64
	for i, c := range t.Tile(pt) {
		order += t.tileStrider[i] * int64(c)
	}
	return order
}

// Compare orders two dataset points by the tiles containing them.
// The result is negative, zero or positive.
func (t *Tiling) Compare(p1, p2 []int) int64 {
	return t.Order(p1) - t.Order(p2)
}

// Section converts a dataset index section into the inclusive range of
// tile coordinates overlapping it. The section must start at or above
// zero and its limit must lie below the chunk-padded index shape.
func (t *Tiling) Section(indexSection IndexSpace) (IndexSpace, error) {
	if indexSection.Rank() != t.rank {
		return IndexSpace{}, fmt.Errorf("%w: section has rank %d, tiling has rank %d",
			ErrRankMismatch, indexSection.Rank(), t.rank)
	}
	for i, s := range indexSection.start {
		if s < 0 {
			return IndexSpace{}, fmt.Errorf("%w: section start %d < 0 at dimension %d",
				ErrOutOfBounds, s, i)
		}
	}

	limit := indexSection.Limit()
	for i, l := range limit {
		if l >= t.indexShape[i] {
			return IndexSpace{}, fmt.Errorf("%w: section limit %d >= index shape %d at dimension %d",
				ErrOutOfBounds, l, t.indexShape[i], i)
		}
	}
	if indexSection.IsEmpty() {
		return NewIndexSpace(t.Tile(indexSection.start), make([]int, t.rank))
	}

	first := t.Tile(indexSection.start)
	last := t.Tile(limit)
	shape := make([]int, t.rank)
	for i := range shape {
		shape[i] = last[i] - first[i] + 1
	}
	return NewIndexSpace(first, shape)
}
