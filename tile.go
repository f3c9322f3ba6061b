package rat

// Tile is a rectangular window of segment IDs read from a label band, surrounded
// by Margin pixels on every side. Pix holds (Height+2*Margin) rows of
// (Width+2*Margin) pixels, in row-major order. Margin pixels which fall outside
// the raster hold the band's background (nodata) value.
type Tile struct {
	X      int     // X is the raster column of the first interior pixel
	Y      int     // Y is the raster row of the first interior pixel
	Width  int     // Width of the interior, in pixels
	Height int     // Height of the interior, in pixels
	Margin int     // Margin is the number of overlap pixels on each side
	Pix    []int64 // Pix holds the padded pixel values
}

// NewTile allocates a Tile with the given interior size and margin
func NewTile(x, y, width, height, margin int) *Tile {
	return &Tile{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
		Margin: margin,
		Pix:    make([]int64, (width+2*margin)*(height+2*margin)),
	}
}

// Stride returns the number of pixels in one padded row
func (t *Tile) Stride() int {
	return t.Width + 2*t.Margin
}

// Rows returns the number of padded rows
func (t *Tile) Rows() int {
	return t.Height + 2*t.Margin
}

// At returns the pixel at padded coordinates (row, col)
func (t *Tile) At(row, col int) int64 {
	return t.Pix[row*t.Stride()+col]
}

// Set modifies the pixel at padded coordinates (row, col)
func (t *Tile) Set(row, col int, v int64) {
	t.Pix[row*t.Stride()+col] = v
}

// Fill sets every pixel of the Tile, margin included, to v
func (t *Tile) Fill(v int64) {
	for i := range t.Pix {
		t.Pix[i] = v
	}
}

// TileFromRows builds a Tile from padded rows of pixels. The outermost margin
// rows and columns of rows are treated as the Tile's margin.
func TileFromRows(rows [][]int64, margin int) *Tile {
	height := len(rows) - 2*margin
	width := 0
	if len(rows) > 0 {
		width = len(rows[0]) - 2*margin
	}
	t := NewTile(0, 0, width, height, margin)
	for r, row := range rows {
		copy(t.Pix[r*t.Stride():(r+1)*t.Stride()], row)
	}
	return t
}

// TileLoader is a description of how to load one specific Tile of a band.
// TileMaps produce TileLoaders, which may be assigned round-robin to workers.
type TileLoader interface {
	ToString() string     // for logging
	Load() (*Tile, error) // how to actually read the Tile, margin included
}

// TileMap is an iterator over the TileLoaders which together cover a whole band
type TileMap interface {
	HasNext() bool
	Next() TileLoader
	NumTiles() int
}
