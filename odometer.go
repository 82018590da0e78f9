package arrayio

import (
	"fmt"
	"iter"

	"github.com/scigolib/arrayio/internal/utils"
)

// Odometer walks every coordinate of an IndexSpace in row-major order,
// incrementing the rightmost digit first and carrying into slower digits.
//
// Coordinates index into a larger array described by the stride shape
// passed to NewOdometer; Element converts the current coordinate into a
// linear element offset of that array.
//
// An Odometer is a single-pass cursor and must not be shared between goroutines.
type Odometer struct {
	start   []int
	limit   []int
	current []int
	strider []int64
	total   int64
	done    bool
}

// NewOdometer creates an odometer over space, with element offsets
// computed against the row-major layout of shape.
func NewOdometer(space IndexSpace, shape []int) (*Odometer, error) {
	if len(shape) != space.Rank() {
		return nil, fmt.Errorf("%w: space has rank %d, stride shape has rank %d",
			ErrRankMismatch, space.Rank(), len(shape))
	}
	if _, err := utils.ShapeProduct(shape); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNegativeShape, err)
	}

	return &Odometer{
		start:   space.Start(),
		limit:   space.Limit(),
		current: space.Start(),
		strider: utils.Strides(shape),
		total:   space.TotalElements(),
		done:    space.IsEmpty(),
	}, nil
}

// Current returns the coordinate under the cursor. The slice is owned by
// the odometer and changes on the next increment.
func (o *Odometer) Current() []int {
	return o.current
}

// Element returns the linear element offset of the current coordinate.
func (o *Odometer) Element() int64 {
	var elem int64
	for k, c := range o.current {
		elem += int64(c) * o.strider[k]
	}
	return elem
}

// TotalElements returns the number of coordinates the odometer visits.
func (o *Odometer) TotalElements() int64 {
	return o.total
}

// Done reports whether the odometer has rolled over past its last coordinate.
func (o *Odometer) Done() bool {
	return o.done
}

// Incr advances to the next coordinate in row-major order.
func (o *Odometer) Incr() {
	o.IncrFrom(len(o.current) - 1)
}

// IncrFrom advances the digit at position digit, carrying into slower
// digits on overflow. Digits faster than digit are left untouched, which
// lets callers step over a block of merged trailing dimensions at once.
func (o *Odometer) IncrFrom(digit int) {
	if o.done {
		return
	}
	if digit < 0 || digit >= len(o.current) {
		// Rank 0, or every dimension merged: a single step finishes the walk.
		o.done = true
		return
	}

	o.current[digit]++
	for o.current[digit] > o.limit[digit] {
		o.current[digit] = o.start[digit]
		digit--
		if digit < 0 {
			o.done = true
			return
		}
		o.current[digit]++
	}
}

// Coords returns an iterator over the remaining coordinates. Each yielded
// slice is a fresh copy.
func (o *Odometer) Coords() iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		for !o.done {
			if !yield(cloneInts(o.current)) {
				return
			}
			o.Incr()
		}
	}
}
