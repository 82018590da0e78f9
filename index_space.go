package arrayio

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/scigolib/arrayio/internal/utils"
)

// Sentinel errors returned by constructors when shapes are malformed.
var (
	ErrRankMismatch  = errors.New("rank mismatch")
	ErrNegativeShape = errors.New("negative shape")
	ErrOutOfBounds   = errors.New("index out of bounds")
)

// Range is a half-open index interval [First, End) along one dimension.
type Range struct {
	First int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.End - r.First
}

// IndexSpace is an immutable rectangular range of N-dimensional indices,
// described by a start coordinate and a shape.
//
// The zero value is a rank-0 (scalar) space holding one element.
type IndexSpace struct {
	start []int
	shape []int
}

// NewIndexSpace creates an IndexSpace from start and shape.
// Both slices are copied. start and shape must have equal length and
// every shape[i] must be >= 0.
func NewIndexSpace(start, shape []int) (IndexSpace, error) {
	if len(start) != len(shape) {
		return IndexSpace{}, fmt.Errorf("%w: start has rank %d, shape has rank %d",
			ErrRankMismatch, len(start), len(shape))
	}
	for i, n := range shape {
		if n < 0 {
			return IndexSpace{}, fmt.Errorf("%w: shape[%d] = %d", ErrNegativeShape, i, n)
		}
	}
	if _, err := utils.ShapeProduct(shape); err != nil {
		return IndexSpace{}, err
	}

	return IndexSpace{start: cloneInts(start), shape: cloneInts(shape)}, nil
}

// ShapeSpace returns the zero-based IndexSpace covering all of shape.
func ShapeSpace(shape []int) (IndexSpace, error) {
	return NewIndexSpace(make([]int, len(shape)), shape)
}

// ParseIndexSpace parses a section in inclusive "first:last" form, one
// range per dimension separated by commas, e.g. "20:39,40:79".
// A bare index "5" selects a single element along that dimension. An
// empty string parses as the rank-0 (scalar) space.
func ParseIndexSpace(s string) (IndexSpace, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return IndexSpace{}, nil
	}

	parts := strings.Split(s, ",")
	start := make([]int, len(parts))
	shape := make([]int, len(parts))
	for i, part := range parts {
		first, last, found := strings.Cut(strings.TrimSpace(part), ":")
		lo, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil {
			return IndexSpace{}, fmt.Errorf("invalid section %q at dimension %d: %w", s, i, err)
		}
		hi := lo
		if found {
			hi, err = strconv.Atoi(strings.TrimSpace(last))
			if err != nil {
				return IndexSpace{}, fmt.Errorf("invalid section %q at dimension %d: %w", s, i, err)
			}
		}
		if lo < 0 || hi < lo {
			return IndexSpace{}, fmt.Errorf("invalid section %q at dimension %d: range %d:%d", s, i, lo, hi)
		}
		start[i] = lo
		shape[i] = hi - lo + 1
	}

	return NewIndexSpace(start, shape)
}

// Rank returns the number of dimensions.
func (s IndexSpace) Rank() int {
	return len(s.start)
}

// Start returns a copy of the start coordinate.
func (s IndexSpace) Start() []int {
	return cloneInts(s.start)
}

// Shape returns a copy of the shape.
func (s IndexSpace) Shape() []int {
	return cloneInts(s.shape)
}

// Limit returns the inclusive last coordinate, start[i]+shape[i]-1.
func (s IndexSpace) Limit() []int {
	limit := make([]int, len(s.start))
	for i := range s.start {
		limit[i] = s.start[i] + s.shape[i] - 1
	}
	return limit
}

// Ranges returns the half-open range of each dimension.
func (s IndexSpace) Ranges() []Range {
	ranges := make([]Range, len(s.start))
	for i := range s.start {
		ranges[i] = Range{First: s.start[i], End: s.start[i] + s.shape[i]}
	}
	return ranges
}

// TotalElements returns the number of coordinates in the space.
func (s IndexSpace) TotalElements() int64 {
	total := int64(1)
	for _, n := range s.shape {
		total *= int64(n)
	}
	return total
}

// IsEmpty reports whether the space holds no coordinates.
func (s IndexSpace) IsEmpty() bool {
	for _, n := range s.shape {
		if n == 0 {
			return true
		}
	}
	return false
}

// Intersect returns the elementwise overlap of s and other.
// Dimensions without overlap get length zero, so the result of two
// disjoint spaces is empty. Use Intersects to test for overlap first.
//
// Both spaces should have the same rank; only the leading min(rank)
// dimensions take part. Drop trailing dimensions (such as the HDF5
// element-size dimension) with Prefix before intersecting.
func (s IndexSpace) Intersect(other IndexSpace) IndexSpace {
	rank := min(s.Rank(), other.Rank())
	start := make([]int, rank)
	shape := make([]int, rank)
	for i := 0; i < rank; i++ {
		first := max(s.start[i], other.start[i])
		last := min(s.start[i]+s.shape[i], other.start[i]+other.shape[i]) - 1
		start[i] = first
		shape[i] = max(last-first+1, 0)
	}
	return IndexSpace{start: start, shape: shape}
}

// Intersects reports whether s and other share at least one coordinate.
// Spaces of different rank never intersect.
func (s IndexSpace) Intersects(other IndexSpace) bool {
	if s.Rank() != other.Rank() {
		return false
	}
	rank := s.Rank()
	for i := 0; i < rank; i++ {
		first := max(s.start[i], other.start[i])
		last := min(s.start[i]+s.shape[i], other.start[i]+other.shape[i]) - 1
		if last < first {
			return false
		}
	}
	return true
}

// Shift translates the space so that origin becomes the zero coordinate.
// It is used to re-express a region in a chunk-local or buffer-local frame.
func (s IndexSpace) Shift(origin []int) IndexSpace {
	start := make([]int, len(s.start))
	for i := range s.start {
		start[i] = s.start[i]
		if i < len(origin) {
			start[i] -= origin[i]
		}
	}
	return IndexSpace{start: start, shape: cloneInts(s.shape)}
}

// Contains reports whether pt lies within the space.
func (s IndexSpace) Contains(pt []int) bool {
	if len(pt) != len(s.start) {
		return false
	}
	for i, p := range pt {
		if p < s.start[i] || p >= s.start[i]+s.shape[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both spaces have the same start and shape.
func (s IndexSpace) Equal(other IndexSpace) bool {
	return slices.Equal(s.start, other.start) && slices.Equal(s.shape, other.shape)
}

// Prefix returns the space restricted to its first rank dimensions.
func (s IndexSpace) Prefix(rank int) IndexSpace {
	if rank >= s.Rank() {
		return s
	}
	return IndexSpace{start: cloneInts(s.start[:rank]), shape: cloneInts(s.shape[:rank])}
}

// String renders the space in inclusive section syntax, e.g. "0:9,5:14".
func (s IndexSpace) String() string {
	var sb strings.Builder
	for i := range s.start {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d:%d", s.start[i], s.start[i]+s.shape[i]-1)
	}
	return sb.String()
}

func cloneInts(v []int) []int {
	return slices.Clone(v)
}
