// Package tiling divides a raster band into fixed-size Tiles with an overlapping
// margin, so that consumers can examine the pixels surrounding each tile edge.
package tiling

import (
	"fmt"
)

// WindowReader provides row-major random access to a single band of a raster
type WindowReader interface {
	Size() (width int, height int)                // Size returns the raster extent in pixels
	ReadWindow(x, y, w, h int, buf []int64) error // ReadWindow fills buf with the w*h pixels whose top-left is (x, y)
}

// Memory is an in-memory raster band
type Memory struct {
	width  int
	height int
	pix    []int64
}

// NewMemory allocates a zeroed in-memory raster band
func NewMemory(width, height int) *Memory {
	return &Memory{width: width, height: height, pix: make([]int64, width*height)}
}

// MemoryFromRows builds an in-memory raster band from rows of pixels, which must all be the same length
func MemoryFromRows(rows [][]int64) (*Memory, error) {
	if len(rows) == 0 {
		return NewMemory(0, 0), nil
	}
	m := NewMemory(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != m.width {
			return nil, fmt.Errorf("Row %d has %d pixels, expected %d", y, len(row), m.width)
		}
		copy(m.pix[y*m.width:], row)
	}
	return m, nil
}

// Size returns the width and height of this raster band
func (m *Memory) Size() (int, int) {
	return m.width, m.height
}

// At returns the pixel at (x, y)
func (m *Memory) At(x, y int) int64 {
	return m.pix[y*m.width+x]
}

// Set modifies the pixel at (x, y)
func (m *Memory) Set(x, y int, v int64) {
	m.pix[y*m.width+x] = v
}

func checkWindow(width, height, x, y, w, h, bufLen int) error {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > width || y+h > height {
		return fmt.Errorf("Window %dx%d at (%d, %d) is outside of a %dx%d raster", w, h, x, y, width, height)
	}
	if bufLen < w*h {
		return fmt.Errorf("Buffer of %d pixels is too small for a %dx%d window", bufLen, w, h)
	}
	return nil
}

// ReadWindow copies a window of pixels into buf
func (m *Memory) ReadWindow(x, y, w, h int, buf []int64) error {
	if err := checkWindow(m.width, m.height, x, y, w, h, len(buf)); err != nil {
		return err
	}
	for r := 0; r < h; r++ {
		start := (y+r)*m.width + x
		copy(buf[r*w:(r+1)*w], m.pix[start:start+w])
	}
	return nil
}

// WriteWindow copies buf into a window of pixels
func (m *Memory) WriteWindow(x, y, w, h int, buf []int64) error {
	if err := checkWindow(m.width, m.height, x, y, w, h, len(buf)); err != nil {
		return err
	}
	for r := 0; r < h; r++ {
		start := (y+r)*m.width + x
		copy(m.pix[start:start+w], buf[r*w:(r+1)*w])
	}
	return nil
}
