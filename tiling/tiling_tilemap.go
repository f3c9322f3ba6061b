package tiling

import (
	"fmt"

	"github.com/go-sif/rat"
)

// DefaultTileSize is the width and height of a tile when none is configured
const DefaultTileSize = 2048

// DefaultMargin is the number of overlap pixels when none is configured
const DefaultMargin = 1

// Options configure how a band is divided into Tiles
type Options struct {
	TileSize int   // TileSize is the interior width and height of each Tile
	Margin   int   // Margin is the number of overlap pixels on each side of a Tile
	Fill     int64 // Fill is written to margin pixels which fall outside of the raster
}

// TileMap is an iterator producing the TileLoaders of a band, in row-major order
type TileMap struct {
	idx     int
	reader  WindowReader
	options Options
	numCols int
	numRows int
}

// NewTileMap divides the band read by reader into Tiles. Zero-valued
// TileSize and Margin are replaced with their defaults.
func NewTileMap(reader WindowReader, options Options) (*TileMap, error) {
	if reader == nil {
		return nil, fmt.Errorf("Window reader is nil")
	}
	if options.TileSize == 0 {
		options.TileSize = DefaultTileSize
	}
	if options.Margin == 0 {
		options.Margin = DefaultMargin
	}
	if options.TileSize < 0 {
		return nil, fmt.Errorf("Invalid tile size %d", options.TileSize)
	}
	if options.Margin < 0 {
		return nil, fmt.Errorf("Invalid margin %d", options.Margin)
	}
	width, height := reader.Size()
	return &TileMap{
		reader:  reader,
		options: options,
		numCols: (width + options.TileSize - 1) / options.TileSize,
		numRows: (height + options.TileSize - 1) / options.TileSize,
	}, nil
}

// HasNext returns true iff there is another TileLoader remaining
func (tm *TileMap) HasNext() bool {
	return tm.idx < tm.NumTiles()
}

// Next returns the next TileLoader
func (tm *TileMap) Next() rat.TileLoader {
	result := tm.Loader(tm.idx)
	tm.idx++
	return result
}

// NumTiles returns the total number of Tiles covering the band
func (tm *TileMap) NumTiles() int {
	return tm.numCols * tm.numRows
}

// Loader returns the TileLoader for the tile with the given row-major index
func (tm *TileMap) Loader(idx int) *TileLoader {
	width, height := tm.reader.Size()
	size := tm.options.TileSize
	x := (idx % tm.numCols) * size
	y := (idx / tm.numCols) * size
	w := size
	if x+w > width {
		w = width - x
	}
	h := size
	if y+h > height {
		h = height - y
	}
	return &TileLoader{idx: idx, x: x, y: y, w: w, h: h, tm: tm}
}
