package testing

import (
	"context"
	"testing"

	"github.com/go-sif/rat"
	"github.com/go-sif/rat/neighbours"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func quadrants() [][]int64 {
	rows := make([][]int64, 20)
	for y := range rows {
		rows[y] = make([]int64, 20)
		for x := range rows[y] {
			rows[y][x] = int64((y/10)*10 + x/10)
		}
	}
	return rows
}

func TestNewMemorySource(t *testing.T) {
	src, err := NewMemorySource(quadrants(), 90, 100)
	require.Nil(t, err)
	require.Equal(t, 100, src.Table.Size())
	field, err := src.Table.FieldByName(rat.HistogramFieldName)
	require.Nil(t, err)
	counts, err := src.Table.GetInts(field, 0, 12)
	require.Nil(t, err)
	require.Equal(t, []int64{100, 100, 0, 0, 0, 0, 0, 0, 0, 0, 100, 100}, counts)

	// the table grows to fit the largest segment ID
	src, err = NewMemorySource(quadrants(), 90, 0)
	require.Nil(t, err)
	require.Equal(t, 12, src.Table.Size())
}

func TestLocalBuild(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, workers := range []int{1, 4} {
		tbl, err := LocalBuild(context.Background(), quadrants(), 90, neighbours.BuildOptions{TileSize: 6, Workers: workers})
		require.Nil(t, err)
		lists, err := tbl.GetNeighbours(0, 12)
		require.Nil(t, err)
		require.ElementsMatch(t, []uint64{1, 10}, lists[0])
		require.ElementsMatch(t, []uint64{0, 11}, lists[1])
		require.ElementsMatch(t, []uint64{0, 11}, lists[10])
		require.ElementsMatch(t, []uint64{1, 10}, lists[11])
		require.Empty(t, lists[5])
	}
}
