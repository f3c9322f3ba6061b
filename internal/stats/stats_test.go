package stats

import (
	"testing"
	"time"

	"github.com/go-sif/rat"
	"github.com/stretchr/testify/require"
)

var _ rat.BuildStatistics = &BuildStatistics{}

func TestBuildStatistics(t *testing.T) {
	rs := &BuildStatistics{}
	require.Equal(t, time.Duration(0), rs.GetRuntime())
	rs.Start()
	for i := 0; i < 7; i++ {
		rs.EndTile(time.Now().Add(-time.Millisecond), 100)
	}
	rs.Finish()
	require.Equal(t, int64(7), rs.GetNumTilesProcessed())
	require.Equal(t, int64(700), rs.GetNumPixelsProcessed())
	require.True(t, rs.GetCurrentTileProcessingTime() >= time.Millisecond)
	runtime := rs.GetRuntime()
	require.Equal(t, runtime, rs.GetRuntime())
	require.False(t, rs.GetStartTime().IsZero())
}
