package arrayio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/arrayio/internal/utils"
)

func collectChunks(t *testing.T, l Layout) []Chunk {
	t.Helper()
	var out []Chunk
	for c := range Chunks(l) {
		out = append(out, c)
	}
	require.NoError(t, l.Err())
	return out
}

func TestLayoutRegular(t *testing.T) {
	want, err := ParseIndexSpace("1:2,1:3")
	require.NoError(t, err)

	l, err := NewLayoutRegular(1000, 4, []int{4, 5}, want)
	require.NoError(t, err)
	require.Equal(t, 4, l.ElemSize())
	require.Equal(t, int64(6), l.TotalNelems())
	require.Equal(t, int64(1024), l.BytePos(6))

	// Rows are only partly wanted, so nothing merges.
	require.Equal(t, []Chunk{
		{SrcPos: 1024, Nelems: 1, DestElem: 0},
		{SrcPos: 1028, Nelems: 1, DestElem: 1},
		{SrcPos: 1032, Nelems: 1, DestElem: 2},
		{SrcPos: 1044, Nelems: 1, DestElem: 3},
		{SrcPos: 1048, Nelems: 1, DestElem: 4},
		{SrcPos: 1052, Nelems: 1, DestElem: 5},
	}, collectChunks(t, l))
}

func TestLayoutRegular_FullRowsMerge(t *testing.T) {
	want, err := ParseIndexSpace("1:2,0:4")
	require.NoError(t, err)

	l, err := NewLayoutRegular(1000, 4, []int{4, 5}, want)
	require.NoError(t, err)
	require.Equal(t, []Chunk{
		{SrcPos: 1020, Nelems: 5, DestElem: 0},
		{SrcPos: 1040, Nelems: 5, DestElem: 5},
	}, collectChunks(t, l))
}

func TestLayoutRegular_WholeVariableIsOneRead(t *testing.T) {
	whole, err := ShapeSpace([]int{4, 5, 6})
	require.NoError(t, err)

	l, err := NewLayoutRegular(64, 8, []int{4, 5, 6}, whole)
	require.NoError(t, err)
	require.Equal(t, []Chunk{{SrcPos: 64, Nelems: 120, DestElem: 0}}, collectChunks(t, l))
}

func TestLayoutRegular_Errors(t *testing.T) {
	_, err := NewLayoutRegular(0, 4, []int{4, 5}, mustSpace(t, []int{0}, []int{4}))
	require.ErrorIs(t, err, ErrRankMismatch)

	_, err = NewLayoutRegular(0, 4, []int{4, 5}, mustSpace(t, []int{3, 0}, []int{2, 5}))
	require.ErrorIs(t, err, ErrOutOfBounds)
	var aerr *utils.ArrayError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, "regular layout", aerr.Op)
	require.Equal(t, []int{3, 0}, aerr.Coords)

	_, err = NewLayoutRegular(0, 0, []int{4, 5}, mustSpace(t, []int{0, 0}, []int{2, 5}))
	require.Error(t, err)
}

func TestLayoutRegular_EmptySection(t *testing.T) {
	l, err := NewLayoutRegular(0, 4, []int{4, 5}, mustSpace(t, []int{0, 0}, []int{0, 5}))
	require.NoError(t, err)
	require.Empty(t, collectChunks(t, l))
	require.Zero(t, l.TotalNelems())
}

func TestLayoutRegularSegmented_BytePos(t *testing.T) {
	whole, err := ShapeSpace([]int{3, 20})
	require.NoError(t, err)

	l, err := NewLayoutRegularSegmented(500, 4, 100, []int{3, 20}, whole)
	require.NoError(t, err)
	require.Equal(t, int64(500), l.BytePos(0))
	require.Equal(t, int64(500+120), l.BytePos(25))
	require.Equal(t, int64(500+200), l.BytePos(40))
}

func TestLayoutRegularSegmented_SplitsAtRecords(t *testing.T) {
	whole, err := ShapeSpace([]int{3, 20})
	require.NoError(t, err)

	l, err := NewLayoutRegularSegmented(500, 4, 100, []int{3, 20}, whole)
	require.NoError(t, err)
	require.Equal(t, []Chunk{
		{SrcPos: 500, Nelems: 20, DestElem: 0},
		{SrcPos: 600, Nelems: 20, DestElem: 20},
		{SrcPos: 700, Nelems: 20, DestElem: 40},
	}, collectChunks(t, l))
}

func TestLayoutRegularSegmented_Subsection(t *testing.T) {
	want, err := ParseIndexSpace("1:2,5:9")
	require.NoError(t, err)

	l, err := NewLayoutRegularSegmented(0, 4, 100, []int{3, 20}, want)
	require.NoError(t, err)

	var expected []Chunk
	for rec := 1; rec <= 2; rec++ {
		for col := 5; col <= 9; col++ {
			expected = append(expected, Chunk{
				SrcPos:   int64(rec*100 + col*4),
				Nelems:   1,
				DestElem: int64((rec-1)*5 + col - 5),
			})
		}
	}
	require.Equal(t, expected, collectChunks(t, l))
}

func TestLayoutRegularSegmented_OneDimensional(t *testing.T) {
	// Each record holds a single element.
	l, err := NewLayoutRegularSegmented(8, 2, 12, []int{5}, mustSpace(t, []int{1}, []int{3}))
	require.NoError(t, err)
	require.Equal(t, []Chunk{
		{SrcPos: 20, Nelems: 1, DestElem: 0},
		{SrcPos: 32, Nelems: 1, DestElem: 1},
		{SrcPos: 44, Nelems: 1, DestElem: 2},
	}, collectChunks(t, l))
}

func TestLayoutRegularSegmented_NoChunkCrossesRecord(t *testing.T) {
	varShape := []int{6, 3, 7}
	want, err := ShapeSpace(varShape)
	require.NoError(t, err)
	const recSize, elemSize = 200, 4

	l, err := NewLayoutRegularSegmented(0, elemSize, recSize, varShape, want)
	require.NoError(t, err)

	chunks := collectChunks(t, l)
	require.Len(t, chunks, 6)
	var total int64
	for _, c := range chunks {
		first := c.SrcPos / recSize
		last := (c.SrcPos + int64(c.Nelems*elemSize) - 1) / recSize
		assert.Equal(t, first, last, "chunk %+v crosses a record boundary", c)
		total += int64(c.Nelems)
	}
	require.Equal(t, want.TotalElements(), total)
}

func TestLayoutRegularSegmented_Errors(t *testing.T) {
	_, err := NewLayoutRegularSegmented(0, 4, 100, nil, IndexSpace{})
	require.ErrorIs(t, err, ErrRankMismatch)

	// 20 floats need 80 bytes per record.
	_, err = NewLayoutRegularSegmented(0, 4, 60, []int{3, 20}, mustSpace(t, []int{0, 0}, []int{1, 1}))
	require.Error(t, err)
}

// sliceChunks is a fixed DataChunkIterator.
type sliceChunks struct {
	chunks []DataChunk
	pos    int
	err    error
}

func (s *sliceChunks) Next() bool {
	if s.pos >= len(s.chunks) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceChunks) DataChunk() DataChunk { return s.chunks[s.pos-1] }
func (s *sliceChunks) Err() error           { return s.err }

func TestLayoutTiled(t *testing.T) {
	chunks := &sliceChunks{chunks: []DataChunk{
		{Offset: []int{0, 0, 0}, FilePos: 1000},
		{Offset: []int{0, 10, 0}, FilePos: 2000},
		{Offset: []int{10, 0, 0}, FilePos: 3000},
		{Offset: []int{10, 10, 0}, FilePos: 4000},
	}}
	want, err := ParseIndexSpace("5:14,0:9")
	require.NoError(t, err)

	l, err := NewLayoutTiled(chunks, []int{10, 10, 4}, 4, want)
	require.NoError(t, err)
	require.Equal(t, int64(100), l.TotalNelems())

	var expected []Chunk
	// Rows 5..9 of chunk (0,0), then rows 10..14 from chunk (1,0).
	for row := 0; row < 5; row++ {
		expected = append(expected, Chunk{SrcPos: 1000 + int64(50+row*10)*4, Nelems: 10, DestElem: int64(row * 10)})
	}
	for row := 0; row < 5; row++ {
		expected = append(expected, Chunk{SrcPos: 3000 + int64(row*10)*4, Nelems: 10, DestElem: int64(50 + row*10)})
	}
	require.Equal(t, expected, collectChunks(t, l))
}

func TestLayoutTiled_PropagatesIteratorError(t *testing.T) {
	chunks := &sliceChunks{err: assert.AnError}
	l, err := NewLayoutTiled(chunks, []int{4}, 4, mustSpace(t, []int{0}, []int{4}))
	require.NoError(t, err)

	require.False(t, l.Next())
	require.ErrorIs(t, l.Err(), assert.AnError)
}

func TestLayoutTiled_ShortChunkOffset(t *testing.T) {
	chunks := &sliceChunks{chunks: []DataChunk{{Offset: []int{0}, FilePos: 0}}}
	l, err := NewLayoutTiled(chunks, []int{4, 4}, 4, mustSpace(t, []int{0, 0}, []int{4, 4}))
	require.NoError(t, err)

	require.False(t, l.Next())
	require.ErrorIs(t, l.Err(), ErrRankMismatch)
}

func TestLayoutTiled_Errors(t *testing.T) {
	_, err := NewLayoutTiled(&sliceChunks{}, []int{4}, 4, mustSpace(t, []int{0, 0}, []int{1, 1}))
	require.ErrorIs(t, err, ErrRankMismatch)

	_, err = NewLayoutTiled(&sliceChunks{}, []int{4}, 0, mustSpace(t, []int{0}, []int{1}))
	require.Error(t, err)

	_, err = NewLayoutTiled(&sliceChunks{}, []int{4}, 4, mustSpace(t, []int{-2}, []int{4}))
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = NewLayoutTiled(&sliceChunks{}, []int{0, 4}, 4, mustSpace(t, []int{0}, []int{4}))
	require.ErrorContains(t, err, "chunk shape[0] must be positive")
}
