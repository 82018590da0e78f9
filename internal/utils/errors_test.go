package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArrayError_Error(t *testing.T) {
	cause := errors.New("rank mismatch")

	require.Equal(t, "building chunker: rank mismatch",
		(&ArrayError{Op: "building chunker", Cause: cause}).Error())
	require.Equal(t, "tiled layout at [10 20 0]: rank mismatch",
		(&ArrayError{Op: "tiled layout", Coords: []int{10, 20, 0}, Cause: cause}).Error())
}

func TestWrapErrorAt(t *testing.T) {
	cause := errors.New("short read")
	origin := []int{15, 30}

	err := WrapErrorAt("tiled layout", origin, cause)
	origin[0] = 99

	var aerr *ArrayError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, "tiled layout", aerr.Op)
	require.Equal(t, []int{15, 30}, aerr.Coords, "coordinates are copied")
	require.ErrorIs(t, err, cause)
}

func TestWrapError_Nil(t *testing.T) {
	require.NoError(t, WrapError("some operation", nil))
	require.NoError(t, WrapErrorAt("some operation", []int{1}, nil))
}

func TestWrapError_Chained(t *testing.T) {
	base := errors.New("base error")
	inner := WrapErrorAt("chunk lookup", []int{2, 3}, base)
	outer := WrapError("read section", inner)

	require.ErrorIs(t, outer, base)
	require.Equal(t, "read section: chunk lookup at [2 3]: base error", outer.Error())

	var aerr *ArrayError
	require.ErrorAs(t, errors.Unwrap(outer), &aerr)
	require.Equal(t, []int{2, 3}, aerr.Coords)
}
