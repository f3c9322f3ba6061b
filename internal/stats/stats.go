package stats

import (
	"sync"
	"time"
)

const statisticRollingWindows = 5

// BuildStatistics contains statistics about a running neighbour build. It is
// safe for use by multiple workers.
type BuildStatistics struct {
	lock                   sync.Mutex
	started                bool
	finished               bool
	startTime              time.Time
	totalRuntime           time.Duration
	tilesProcessed         int64
	pixelsProcessed        int64
	recentTileRuntimes     []time.Duration // for rolling average of recent tile processing times
	recentTileRuntimesHead int
}

// Start triggers statistics tracking, if it hasn't been started already
func (rs *BuildStatistics) Start() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started {
		rs.started = true
		rs.startTime = time.Now()
		rs.recentTileRuntimes = make([]time.Duration, 0, statisticRollingWindows)
	}
}

// Finish completes statistics tracking
func (rs *BuildStatistics) Finish() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.totalRuntime = time.Since(rs.startTime)
	rs.finished = true
}

// EndTile records the processing of a tile which began at tileStart
func (rs *BuildStatistics) EndTile(tileStart time.Time, numPixels int) {
	elapsed := time.Since(tileStart)
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if len(rs.recentTileRuntimes) < statisticRollingWindows {
		rs.recentTileRuntimes = append(rs.recentTileRuntimes, elapsed)
	} else {
		rs.recentTileRuntimes[rs.recentTileRuntimesHead] = elapsed
	}
	rs.recentTileRuntimesHead = (rs.recentTileRuntimesHead + 1) % statisticRollingWindows
	rs.tilesProcessed++
	rs.pixelsProcessed += int64(numPixels)
}

// GetStartTime returns the start time of the build
func (rs *BuildStatistics) GetStartTime() time.Time {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.startTime
}

// GetRuntime returns the running time of the build
func (rs *BuildStatistics) GetRuntime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if rs.finished {
		return rs.totalRuntime
	} else if !rs.started {
		return 0
	}
	return time.Since(rs.startTime)
}

// GetNumTilesProcessed returns the number of tiles which have been processed so far
func (rs *BuildStatistics) GetNumTilesProcessed() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.tilesProcessed
}

// GetNumPixelsProcessed returns the number of interior pixels which have been processed so far
func (rs *BuildStatistics) GetNumPixelsProcessed() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.pixelsProcessed
}

// GetCurrentTileProcessingTime returns a rolling average of tile processing time
func (rs *BuildStatistics) GetCurrentTileProcessingTime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if len(rs.recentTileRuntimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range rs.recentTileRuntimes {
		total += d
	}
	return total / time.Duration(len(rs.recentTileRuntimes))
}
