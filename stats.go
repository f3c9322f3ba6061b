package rat

import "time"

// BuildStatistics facilitates the retrieval of statistics about a running neighbour build
type BuildStatistics interface {
	// GetStartTime returns the start time of the build
	GetStartTime() time.Time
	// GetRuntime returns the running time of the build
	GetRuntime() time.Duration
	// GetNumTilesProcessed returns the number of Tiles which have been processed so far
	GetNumTilesProcessed() int64
	// GetNumPixelsProcessed returns the number of interior pixels which have been processed so far
	GetNumPixelsProcessed() int64
	// GetCurrentTileProcessingTime returns a rolling average of tile processing time
	GetCurrentTileProcessingTime() time.Duration
}
