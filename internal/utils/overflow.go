package utils

import (
	"fmt"
	"math"
)

// CheckMultiplyOverflow checks if multiplying two non-negative int64 values would overflow.
func CheckMultiplyOverflow(a, b int64) error {
	if a < 0 || b < 0 {
		return fmt.Errorf("negative operand: %d * %d", a, b)
	}
	if a == 0 || b == 0 {
		return nil
	}

	if a > math.MaxInt64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds int64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two non-negative int64 values.
// Returns 0 and an error if overflow would occur.
func SafeMultiply(a, b int64) (int64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// ShapeProduct returns the number of elements described by shape.
// An empty shape describes a scalar and holds one element.
func ShapeProduct(shape []int) (int64, error) {
	total := int64(1)
	for i, n := range shape {
		if n < 0 {
			return 0, fmt.Errorf("negative length %d at dimension %d", n, i)
		}

		// Check for overflow before multiplication
		if n > 0 && total > math.MaxInt64/int64(n) {
			return 0, fmt.Errorf("element count overflow at dimension %d: dimensions too large", i)
		}

		total *= int64(n)
	}
	return total, nil
}

// ByteSize returns nelems*elemSize, checking for overflow.
func ByteSize(nelems int64, elemSize int) (int64, error) {
	if elemSize <= 0 {
		return 0, fmt.Errorf("element size must be positive, got %d", elemSize)
	}
	size, err := SafeMultiply(nelems, int64(elemSize))
	if err != nil {
		return 0, fmt.Errorf("byte size overflow (elements: %d, elem size: %d): %w", nelems, elemSize, err)
	}
	return size, nil
}

// Strides returns the row-major stride table for shape: the last
// dimension has stride 1 and each slower dimension strides over all
// faster ones.
func Strides(shape []int) []int64 {
	strides := make([]int64, len(shape))
	product := int64(1)
	for k := len(shape) - 1; k >= 0; k-- {
		strides[k] = product
		product *= int64(shape[k])
	}
	return strides
}

// MaxChunkBytes limits the size of a single storage chunk to 1GB.
const MaxChunkBytes = 1024 * 1024 * 1024

// ValidateBufferSize validates that a buffer size is within reasonable limits.
// maxSize parameter allows different limits for different use cases.
func ValidateBufferSize(size, maxSize int64, description string) error {
	if size <= 0 {
		return fmt.Errorf("%s: size must be positive, got %d", description, size)
	}

	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}

	return nil
}
