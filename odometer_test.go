package arrayio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOdometer_FullShapeEnumeratesElements(t *testing.T) {
	shape := []int{3, 4, 5}
	space, err := ShapeSpace(shape)
	require.NoError(t, err)

	odo, err := NewOdometer(space, shape)
	require.NoError(t, err)

	var want int64
	for !odo.Done() {
		require.Equal(t, want, odo.Element())
		odo.Incr()
		want++
	}
	require.Equal(t, space.TotalElements(), want)
}

func TestOdometer_SubsectionVisitsEveryCoordinate(t *testing.T) {
	space := mustSpace(t, []int{1, 2}, []int{2, 3})
	odo, err := NewOdometer(space, []int{4, 6})
	require.NoError(t, err)

	var coords [][]int
	var elems []int64
	for !odo.Done() {
		coords = append(coords, append([]int(nil), odo.Current()...))
		elems = append(elems, odo.Element())
		odo.Incr()
	}

	require.Equal(t, [][]int{
		{1, 2}, {1, 3}, {1, 4},
		{2, 2}, {2, 3}, {2, 4},
	}, coords)
	require.Equal(t, []int64{8, 9, 10, 14, 15, 16}, elems)

	seen := make(map[[2]int]bool)
	for _, c := range coords {
		require.True(t, space.Contains(c))
		seen[[2]int{c[0], c[1]}] = true
	}
	require.Len(t, seen, int(space.TotalElements()))
}

func TestOdometer_IncrFromSkipsFasterDigits(t *testing.T) {
	space := mustSpace(t, []int{0, 0, 0}, []int{2, 3, 4})
	odo, err := NewOdometer(space, []int{2, 3, 4})
	require.NoError(t, err)

	var elems []int64
	for !odo.Done() {
		elems = append(elems, odo.Element())
		odo.IncrFrom(1)
	}
	// Steps of one row of 4 elements.
	require.Equal(t, []int64{0, 4, 8, 12, 16, 20}, elems)
}

func TestOdometer_Coords(t *testing.T) {
	space := mustSpace(t, []int{5}, []int{3})
	odo, err := NewOdometer(space, []int{10})
	require.NoError(t, err)

	var got [][]int
	for c := range odo.Coords() {
		got = append(got, c)
	}
	require.Equal(t, [][]int{{5}, {6}, {7}}, got)
	require.True(t, odo.Done())
}

func TestOdometer_EmptyAndScalar(t *testing.T) {
	empty := mustSpace(t, []int{0, 0}, []int{3, 0})
	odo, err := NewOdometer(empty, []int{3, 5})
	require.NoError(t, err)
	require.True(t, odo.Done())

	scalar, err := NewOdometer(IndexSpace{}, nil)
	require.NoError(t, err)
	n := 0
	for range scalar.Coords() {
		n++
	}
	require.Equal(t, 1, n)
}

func TestOdometer_RankMismatch(t *testing.T) {
	_, err := NewOdometer(mustSpace(t, []int{0}, []int{3}), []int{3, 3})
	require.ErrorIs(t, err, ErrRankMismatch)

	_, err = NewOdometer(mustSpace(t, []int{0}, []int{3}), []int{-3})
	require.ErrorIs(t, err, ErrNegativeShape)
}
