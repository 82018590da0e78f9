package arrayio

import (
	"fmt"
	"iter"
)

// TransferChunk is a contiguous run of Nelems elements, copied from
// element SrcElem of a storage chunk to element DestElem of the
// destination buffer. Offsets are in elements, not bytes.
type TransferChunk struct {
	SrcElem  int64
	Nelems   int
	DestElem int64
}

// Chunker computes the transfers that move the overlap of one storage
// chunk and a wanted section into the wanted section's buffer.
//
// The overlap is walked by two odometers in lockstep: one in the storage
// chunk's frame and one in the destination frame. Trailing dimensions
// spanned entirely by the overlap in both frames are merged into a single
// run, so aligned chunks collapse into few large transfers. Without any
// merged dimension (or with merge disabled) every transfer moves one
// element.
//
// Usage:
//
//	c, err := arrayio.NewChunker(chunk, elemSize, want, true)
//	if err != nil {
//	    return err
//	}
//	for c.Next() {
//	    t := c.Transfer()
//	    // copy t.Nelems elements
//	}
type Chunker struct {
	elemSize  int
	intersect IndexSpace
	src       *Odometer
	dst       *Odometer
	nelems    int
	incrDigit int
	total     int64
	done      int64
	cur       TransferChunk
}

// NewChunker plans the transfer of the overlap between dataChunk and want.
//
// dataChunk is the extent of one storage chunk in dataset coordinates; it
// may carry extra trailing dimensions (such as an HDF5 element-size
// dimension) beyond the rank of want, which are ignored. An empty overlap
// is valid and yields no transfers.
func NewChunker(dataChunk IndexSpace, elemSize int, want IndexSpace, merge bool) (*Chunker, error) {
	rank := want.Rank()
	if dataChunk.Rank() < rank {
		return nil, fmt.Errorf("%w: data chunk has rank %d, wanted section has rank %d",
			ErrRankMismatch, dataChunk.Rank(), rank)
	}
	if elemSize <= 0 {
		return nil, fmt.Errorf("element size must be positive, got %d", elemSize)
	}
	chunk := dataChunk.Prefix(rank)

	c := &Chunker{elemSize: elemSize, intersect: chunk.Intersect(want)}
	if !chunk.Intersects(want) || c.intersect.IsEmpty() {
		return c, nil
	}
	c.total = c.intersect.TotalElements()

	var err error
	// Same traversal shape, different stride bases.
	c.src, err = NewOdometer(c.intersect.Shift(chunk.start), chunk.shape)
	if err != nil {
		return nil, fmt.Errorf("source odometer: %w", err)
	}
	c.dst, err = NewOdometer(c.intersect.Shift(want.start), want.shape)
	if err != nil {
		return nil, fmt.Errorf("destination odometer: %w", err)
	}

	merged := 0
	if merge {
		for dim := rank - 1; dim >= 0; dim-- {
			n := c.intersect.shape[dim]
			if n != chunk.shape[dim] || n != want.shape[dim] {
				break
			}
			merged++
		}
	}

	// With nothing merged every run is a single element.
	firstDim := rank - merged
	c.nelems = 1
	for dim := firstDim; dim < rank; dim++ {
		c.nelems *= c.intersect.shape[dim]
	}
	// -1 when everything merged: one run covers the overlap.
	c.incrDigit = firstDim - 1

	return c, nil
}

// Next advances to the next transfer. It returns false once the whole
// overlap has been emitted.
func (c *Chunker) Next() bool {
	if c.done >= c.total {
		return false
	}

	c.cur = TransferChunk{
		SrcElem:  c.src.Element(),
		Nelems:   c.nelems,
		DestElem: c.dst.Element(),
	}
	c.src.IncrFrom(c.incrDigit)
	c.dst.IncrFrom(c.incrDigit)
	c.done += int64(c.nelems)
	return true
}

// Transfer returns the transfer produced by the last call to Next.
func (c *Chunker) Transfer() TransferChunk {
	return c.cur
}

// All returns an iterator over the remaining transfers.
func (c *Chunker) All() iter.Seq[TransferChunk] {
	return func(yield func(TransferChunk) bool) {
		for c.Next() {
			if !yield(c.cur) {
				return
			}
		}
	}
}

// ElemSize returns the element size in bytes.
func (c *Chunker) ElemSize() int {
	return c.elemSize
}

// TotalElements returns the number of elements in the overlap.
func (c *Chunker) TotalElements() int64 {
	return c.total
}

// Intersection returns the overlap of the storage chunk and the wanted section.
func (c *Chunker) Intersection() IndexSpace {
	return c.intersect
}

// String returns a human-readable summary of the plan.
func (c *Chunker) String() string {
	return fmt.Sprintf("chunker: intersect=[%s] nelems=%d incrDigit=%d total=%d",
		c.intersect, c.nelems, c.incrDigit, c.total)
}
