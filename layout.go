package arrayio

import (
	"fmt"
	"iter"

	"github.com/scigolib/arrayio/internal/utils"
)

// Chunk is one bulk read of a transfer plan: Nelems elements starting at
// byte SrcPos of the file, to be stored at element DestElem of the
// destination buffer.
type Chunk struct {
	SrcPos   int64
	Nelems   int
	DestElem int64
}

// Layout is a pull sequence of byte-level transfers for one section of a
// variable under a physical storage model. It follows the bufio.Scanner
// pattern:
//
//	for layout.Next() {
//	    c := layout.Chunk()
//	    // read c.Nelems*layout.ElemSize() bytes at c.SrcPos
//	}
//	if err := layout.Err(); err != nil {
//	    return err
//	}
//
// The set of layouts is closed: LayoutRegular, LayoutRegularSegmented and
// LayoutTiled. A Layout is single-pass and not restartable.
type Layout interface {
	// ElemSize returns the size of one element in bytes.
	ElemSize() int
	// TotalNelems returns the number of elements in the wanted section.
	TotalNelems() int64
	// Next advances to the next chunk.
	Next() bool
	// Chunk returns the chunk produced by the last call to Next.
	Chunk() Chunk
	// Err returns the error that stopped iteration, if any.
	Err() error

	layout()
}

// Chunks adapts a Layout into an iterator. Check l.Err() after the loop.
func Chunks(l Layout) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for l.Next() {
			if !yield(l.Chunk()) {
				return
			}
		}
	}
}

// LayoutRegular maps a section of a variable stored as one contiguous
// row-major array starting at byte startPos.
type LayoutRegular struct {
	startPos int64
	elemSize int
	total    int64
	chunker  *Chunker
	cur      Chunk
}

// NewLayoutRegular plans the read of want from a contiguous variable of
// shape varShape at file position startPos.
func NewLayoutRegular(startPos int64, elemSize int, varShape []int, want IndexSpace) (*LayoutRegular, error) {
	chunker, err := newVariableChunker(elemSize, varShape, want)
	if err != nil {
		return nil, utils.WrapErrorAt("regular layout", want.start, err)
	}
	return &LayoutRegular{
		startPos: startPos,
		elemSize: elemSize,
		total:    want.TotalElements(),
		chunker:  chunker,
	}, nil
}

// newVariableChunker treats the whole variable as a single storage chunk.
func newVariableChunker(elemSize int, varShape []int, want IndexSpace) (*Chunker, error) {
	if len(varShape) != want.Rank() {
		return nil, fmt.Errorf("%w: variable has rank %d, wanted section has rank %d",
			ErrRankMismatch, len(varShape), want.Rank())
	}
	whole, err := ShapeSpace(varShape)
	if err != nil {
		return nil, err
	}
	if !want.IsEmpty() {
		for i, l := range want.Limit() {
			if want.start[i] < 0 || l >= varShape[i] {
				return nil, fmt.Errorf("%w: section %s exceeds shape %v", ErrOutOfBounds, want, varShape)
			}
		}
	}
	return NewChunker(whole, elemSize, want, true)
}

// BytePos returns the file position of element elem of the variable.
func (l *LayoutRegular) BytePos(elem int64) int64 {
	return l.startPos + elem*int64(l.elemSize)
}

// ElemSize implements Layout.
func (l *LayoutRegular) ElemSize() int { return l.elemSize }

// TotalNelems implements Layout.
func (l *LayoutRegular) TotalNelems() int64 { return l.total }

// Next implements Layout.
func (l *LayoutRegular) Next() bool {
	if !l.chunker.Next() {
		return false
	}
	t := l.chunker.Transfer()
	l.cur = Chunk{SrcPos: l.BytePos(t.SrcElem), Nelems: t.Nelems, DestElem: t.DestElem}
	return true
}

// Chunk implements Layout.
func (l *LayoutRegular) Chunk() Chunk { return l.cur }

// Err implements Layout. Regular layouts never fail once constructed.
func (l *LayoutRegular) Err() error { return nil }

func (l *LayoutRegular) layout() {}

// LayoutRegularSegmented maps a section of a variable whose outermost
// dimension is stored as evenly spaced records of recSize bytes, the
// netCDF3 record variable model. recSize may exceed the variable's own
// per-record size because other record variables interleave within each
// record.
//
// A run that is contiguous in element space may cross a record boundary,
// so incoming runs are split at record boundaries.
type LayoutRegularSegmented struct {
	startPos    int64
	elemSize    int
	recSize     int64
	innerNelems int64
	total       int64
	chunker     *Chunker

	pending TransferChunk
	cur     Chunk
}

// NewLayoutRegularSegmented plans the read of want from a record variable
// of shape varShape whose first record starts at startPos.
func NewLayoutRegularSegmented(startPos int64, elemSize int, recSize int64, varShape []int, want IndexSpace) (*LayoutRegularSegmented, error) {
	if len(varShape) == 0 {
		return nil, utils.WrapError("segmented layout", fmt.Errorf("%w: record variable needs rank >= 1", ErrRankMismatch))
	}
	inner, err := utils.ShapeProduct(varShape[1:])
	if err != nil {
		return nil, utils.WrapError("segmented layout", err)
	}
	innerBytes, err := utils.ByteSize(inner, elemSize)
	if err != nil {
		return nil, utils.WrapError("segmented layout", err)
	}
	if recSize < innerBytes {
		return nil, utils.WrapError("segmented layout",
			fmt.Errorf("record size %d smaller than per-record variable size %d", recSize, innerBytes))
	}

	chunker, err := newVariableChunker(elemSize, varShape, want)
	if err != nil {
		return nil, utils.WrapErrorAt("segmented layout", want.start, err)
	}
	return &LayoutRegularSegmented{
		startPos:    startPos,
		elemSize:    elemSize,
		recSize:     recSize,
		innerNelems: inner,
		total:       want.TotalElements(),
		chunker:     chunker,
	}, nil
}

// BytePos returns the file position of element elem of the variable.
func (l *LayoutRegularSegmented) BytePos(elem int64) int64 {
	segment := elem / l.innerNelems
	offsetInSegment := elem % l.innerNelems
	return l.startPos + segment*l.recSize + offsetInSegment*int64(l.elemSize)
}

// ElemSize implements Layout.
func (l *LayoutRegularSegmented) ElemSize() int { return l.elemSize }

// TotalNelems implements Layout.
func (l *LayoutRegularSegmented) TotalNelems() int64 { return l.total }

// Next implements Layout.
func (l *LayoutRegularSegmented) Next() bool {
	if l.pending.Nelems == 0 {
		if !l.chunker.Next() {
			return false
		}
		l.pending = l.chunker.Transfer()
	}

	startElem := l.pending.SrcElem
	maxElemsInSegment := l.innerNelems - startElem%l.innerNelems
	n := int64(l.pending.Nelems)
	if n > maxElemsInSegment {
		n = maxElemsInSegment
	}

	l.cur = Chunk{SrcPos: l.BytePos(startElem), Nelems: int(n), DestElem: l.pending.DestElem}
	l.pending.SrcElem += n
	l.pending.DestElem += n
	l.pending.Nelems -= int(n)
	return true
}

// Chunk implements Layout.
func (l *LayoutRegularSegmented) Chunk() Chunk { return l.cur }

// Err implements Layout. Segmented layouts never fail once constructed.
func (l *LayoutRegularSegmented) Err() error { return nil }

func (l *LayoutRegularSegmented) layout() {}

// DataChunk locates one storage chunk of a grid-chunked variable.
type DataChunk struct {
	// Offset is the chunk origin in dataset coordinates. It may carry
	// trailing dimensions beyond the variable rank.
	Offset []int
	// FilePos is the byte address of the chunk data.
	FilePos int64
}

// DataChunkIterator supplies the storage chunks of a grid-chunked
// variable, typically from an on-disk chunk index. *ChunkIterator
// implements it.
type DataChunkIterator interface {
	Next() bool
	DataChunk() DataChunk
	Err() error
}

// LayoutTiled maps a section of a grid-chunked variable. Each storage
// chunk supplied by the iterator is intersected with the wanted section;
// chunks outside it contribute nothing, and chunks missing from the
// index leave their part of the destination untouched.
type LayoutTiled struct {
	chunks     DataChunkIterator
	chunkShape []int
	elemSize   int
	want       IndexSpace
	total      int64

	filePos int64
	chunker *Chunker
	cur     Chunk
	err     error
}

// NewLayoutTiled plans the read of want from the storage chunks produced
// by chunks. chunkShape is the storage chunk shape and may carry extra
// trailing dimensions.
func NewLayoutTiled(chunks DataChunkIterator, chunkShape []int, elemSize int, want IndexSpace) (*LayoutTiled, error) {
	if len(chunkShape) < want.Rank() {
		return nil, utils.WrapError("tiled layout", fmt.Errorf("%w: chunk shape has rank %d, wanted section has rank %d",
			ErrRankMismatch, len(chunkShape), want.Rank()))
	}
	if elemSize <= 0 {
		return nil, utils.WrapError("tiled layout", fmt.Errorf("element size must be positive, got %d", elemSize))
	}
	for i, s := range want.start {
		if s < 0 {
			return nil, utils.WrapErrorAt("tiled layout", want.start,
				fmt.Errorf("%w: section start %d < 0 at dimension %d", ErrOutOfBounds, s, i))
		}
	}
	for i, n := range chunkShape[:want.Rank()] {
		if n <= 0 {
			return nil, utils.WrapError("tiled layout", fmt.Errorf("chunk shape[%d] must be positive, got %d", i, n))
		}
	}
	return &LayoutTiled{
		chunks:     chunks,
		chunkShape: cloneInts(chunkShape[:want.Rank()]),
		elemSize:   elemSize,
		want:       want,
		total:      want.TotalElements(),
	}, nil
}

// ElemSize implements Layout.
func (l *LayoutTiled) ElemSize() int { return l.elemSize }

// TotalNelems implements Layout.
func (l *LayoutTiled) TotalNelems() int64 { return l.total }

// Next implements Layout.
func (l *LayoutTiled) Next() bool {
	if l.err != nil {
		return false
	}
	for l.chunker == nil || !l.chunker.Next() {
		if !l.chunks.Next() {
			l.err = l.chunks.Err()
			return false
		}
		dc := l.chunks.DataChunk()
		if len(dc.Offset) < l.want.Rank() {
			l.err = fmt.Errorf("%w: chunk offset %v has rank %d, wanted section has rank %d",
				ErrRankMismatch, dc.Offset, len(dc.Offset), l.want.Rank())
			return false
		}

		space, err := NewIndexSpace(dc.Offset[:l.want.Rank()], l.chunkShape)
		if err != nil {
			l.err = utils.WrapErrorAt("tiled layout", dc.Offset, err)
			return false
		}
		l.chunker, err = NewChunker(space, l.elemSize, l.want, true)
		if err != nil {
			l.err = utils.WrapErrorAt("tiled layout", dc.Offset, err)
			return false
		}
		l.filePos = dc.FilePos
	}

	t := l.chunker.Transfer()
	l.cur = Chunk{
		SrcPos:   l.filePos + t.SrcElem*int64(l.elemSize),
		Nelems:   t.Nelems,
		DestElem: t.DestElem,
	}
	return true
}

// Chunk implements Layout.
func (l *LayoutTiled) Chunk() Chunk { return l.cur }

// Err implements Layout.
func (l *LayoutTiled) Err() error { return l.err }

func (l *LayoutTiled) layout() {}
