package tiling

import (
	"fmt"

	"github.com/go-sif/rat"
)

// TileLoader loads one Tile, margin included, from a WindowReader
type TileLoader struct {
	idx int
	x   int
	y   int
	w   int
	h   int
	tm  *TileMap
}

// ToString returns a string representation of this TileLoader
func (tl *TileLoader) ToString() string {
	return fmt.Sprintf("Tile %d: %dx%d at (%d, %d)", tl.idx, tl.w, tl.h, tl.x, tl.y)
}

// Load reads the Tile's window and its margin. Margin pixels beyond the raster edge are set to the TileMap's Fill value.
func (tl *TileLoader) Load() (*rat.Tile, error) {
	m := tl.tm.options.Margin
	tile := rat.NewTile(tl.x, tl.y, tl.w, tl.h, m)
	tile.Fill(tl.tm.options.Fill)
	width, height := tl.tm.reader.Size()
	// padded window, clipped to the raster
	x0, y0 := max(tl.x-m, 0), max(tl.y-m, 0)
	x1, y1 := min(tl.x+tl.w+m, width), min(tl.y+tl.h+m, height)
	if x1 <= x0 || y1 <= y0 {
		return tile, nil
	}
	w, h := x1-x0, y1-y0
	buf := make([]int64, w*h)
	if err := tl.tm.reader.ReadWindow(x0, y0, w, h, buf); err != nil {
		return nil, fmt.Errorf("Unable to load %s: %w", tl.ToString(), err)
	}
	stride := tile.Stride()
	colOffset := x0 - (tl.x - m)
	for r := 0; r < h; r++ {
		row := (y0 - (tl.y - m) + r) * stride
		copy(tile.Pix[row+colOffset:row+colOffset+w], buf[r*w:(r+1)*w])
	}
	return tile, nil
}
