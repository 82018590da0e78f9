package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMultiplyOverflow(t *testing.T) {
	tests := []struct {
		name    string
		a       int64
		b       int64
		wantErr bool
	}{
		{"no overflow - small numbers", 10, 20, false},
		{"no overflow - one zero", 0, math.MaxInt64, false},
		{"no overflow - exact max", math.MaxInt64, 1, false},
		{"overflow - max * 2", math.MaxInt64, 2, true},
		{"overflow - large numbers", math.MaxInt64 / 2, 3, true},
		{"negative operand", -1, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMultiplyOverflow(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestShapeProduct(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		want    int64
		wantErr bool
	}{
		{"scalar", nil, 1, false},
		{"1D", []int{7}, 7, false},
		{"3D", []int{2, 3, 4}, 24, false},
		{"zero length dimension", []int{5, 0, 3}, 0, false},
		{"negative length", []int{5, -1}, 0, true},
		{"overflow", []int{math.MaxInt32, math.MaxInt32, math.MaxInt32}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShapeProduct(tt.shape)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestByteSize(t *testing.T) {
	size, err := ByteSize(25, 4)
	require.NoError(t, err)
	require.Equal(t, int64(100), size)

	_, err = ByteSize(10, 0)
	require.Error(t, err)

	_, err = ByteSize(math.MaxInt64/2, 8)
	require.Error(t, err)
}

func TestStrides(t *testing.T) {
	require.Equal(t, []int64{12, 4, 1}, Strides([]int{2, 3, 4}))
	require.Equal(t, []int64{1}, Strides([]int{9}))
	require.Empty(t, Strides(nil))
}

func TestValidateBufferSize(t *testing.T) {
	require.NoError(t, ValidateBufferSize(1024, MaxChunkBytes, "chunk"))
	require.Error(t, ValidateBufferSize(0, MaxChunkBytes, "chunk"))
	require.Error(t, ValidateBufferSize(MaxChunkBytes+1, MaxChunkBytes, "chunk"))
}
