package util

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
	"github.com/stretchr/testify/require"
)

type panickyAccumulator struct {
	value interface{}
	err   error
}

func (a *panickyAccumulator) AddArray(tile *rat.Tile) error {
	if a.value != nil {
		panic(a.value)
	}
	return a.err
}

func (a *panickyAccumulator) Merge(o rat.Accumulator) error { return nil }

func (a *panickyAccumulator) ToBytes() ([]byte, error) { return nil, nil }

func (a *panickyAccumulator) FromBytes(buf []byte) (rat.Accumulator, error) { return a, nil }

func TestSafeAddArray(t *testing.T) {
	tile := &rat.Tile{Width: 1, Height: 1, Margin: 1, Pix: make([]int64, 9)}
	require.Nil(t, SafeAddArray(&panickyAccumulator{}, tile, "tile 0"))

	err := SafeAddArray(&panickyAccumulator{value: "boom"}, tile, "tile 1")
	require.NotNil(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "Accumulator Panic: boom\nTile: tile 1\n"))

	cause := errors.SegmentRangeError{ID: 7, NumRows: 3}
	err = SafeAddArray(&panickyAccumulator{value: cause}, tile, "tile 2")
	var target errors.SegmentRangeError
	require.True(t, stderrors.As(err, &target))

	err = SafeAddArray(&panickyAccumulator{err: cause}, tile, "tile 3")
	require.Equal(t, fmt.Sprintf("tile 3: %s", cause.Error()), err.Error())
}

func TestFormatMultiError(t *testing.T) {
	msg := FormatMultiError([]error{fmt.Errorf("a"), fmt.Errorf("b")})
	require.Equal(t, "a\nb\n", msg)
}
