package ragged

import (
	"testing"

	"github.com/go-sif/rat/errors"
	"github.com/stretchr/testify/require"
)

func TestFromListsRoundTrip(t *testing.T) {
	lists := [][]uint64{{2, 3, 1}, {5}, {}, {8, 0, 2}, {6, 7, 2}}
	l := FromLists(lists)
	require.Equal(t, 5, l.Len())
	require.Equal(t, []int64{0, 3, 4, 4, 7, 10}, l.Offsets())
	require.Equal(t, lists, l.Lists())
	require.Equal(t, 0, l.RowLen(2))
}

func TestNewRowsAreEmpty(t *testing.T) {
	l := New(4)
	require.Equal(t, 4, l.Len())
	for _, row := range l.Lists() {
		require.Len(t, row, 0)
	}
	l.Grow(3)
	require.Equal(t, 7, l.Len())
	require.Len(t, l.Row(6), 0)
}

func TestReplaceOverwritesAndGrows(t *testing.T) {
	l := FromLists([][]uint64{{1}, {2, 3}, {4}})
	l.Replace(1, [][]uint64{{9, 8, 7}})
	require.Equal(t, [][]uint64{{1}, {9, 8, 7}, {4}}, l.Lists())

	l.Replace(4, [][]uint64{{99, 87, 65, 27}, {44, 21, 98}})
	require.Equal(t, 6, l.Len())
	require.Len(t, l.Row(3), 0)
	require.Equal(t, []uint64{44, 21, 98}, l.Row(5))

	// packing must not change the logical contents
	before := l.Lists()
	l.Compact()
	require.Equal(t, before, l.Lists())
	require.Equal(t, int64(len(l.Values())), l.Offsets()[l.Len()])
}

func TestReplaceManySingleRows(t *testing.T) {
	l := New(100)
	for i := 99; i >= 0; i-- {
		l.Replace(i, [][]uint64{{uint64(i), uint64(i + 1)}})
	}
	for i := 0; i < 100; i++ {
		require.Equal(t, []uint64{uint64(i), uint64(i + 1)}, l.Row(i))
	}
}

func TestRowIsACopy(t *testing.T) {
	l := FromLists([][]uint64{{1, 2}})
	row := l.Row(0)
	row[0] = 42
	require.Equal(t, []uint64{1, 2}, l.Row(0))
}

func TestFromOffsetsValidation(t *testing.T) {
	_, err := FromOffsets([]int64{0, 2, 1}, []uint64{1})
	require.NotNil(t, err)
	_, err = FromOffsets([]int64{}, nil)
	require.NotNil(t, err)
	l, err := FromOffsets([]int64{0, 1, 1, 3}, []uint64{5, 6, 7})
	require.Nil(t, err)
	require.Equal(t, [][]uint64{{5}, {}, {6, 7}}, l.Lists())
}

func TestDenseEquivalence(t *testing.T) {
	lists := [][]uint64{{2, 3, 1}, {5}, {}, {8, 0, 2, 11}}
	d := ToDense(lists)
	require.Equal(t, 4, d.Rows)
	require.Equal(t, 4, d.Cols)
	require.Equal(t, []bool{false, false, false, true}, d.Mask[0:4])
	require.Equal(t, []bool{true, true, true, true}, d.Mask[8:12])

	back, err := FromDense(d)
	require.Nil(t, err)
	require.Equal(t, lists, back)
}

func TestDenseAllEmpty(t *testing.T) {
	d := ToDense([][]uint64{{}, {}})
	require.Equal(t, 0, d.Cols)
	back, err := FromDense(d)
	require.Nil(t, err)
	require.Equal(t, [][]uint64{{}, {}}, back)
}

func TestDenseMaskOrder(t *testing.T) {
	d := &Dense{
		Rows:   1,
		Cols:   3,
		Values: []uint64{1, 2, 3},
		Mask:   []bool{false, true, false},
	}
	_, err := FromDense(d)
	require.NotNil(t, err)
	mo, ok := err.(errors.MaskOrderError)
	require.True(t, ok)
	require.Equal(t, 2, mo.Col)
}
