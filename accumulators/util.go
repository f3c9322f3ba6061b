package accumulators

import (
	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
)

func forEachInterior(tile *rat.Tile, fn func(v int64) error) error {
	if tile == nil || len(tile.Pix) != tile.Stride()*tile.Rows() {
		return errors.TileShapeError{Reason: "pixel buffer does not match the tile shape"}
	}
	m := tile.Margin
	for y := m; y < m+tile.Height; y++ {
		row := tile.Pix[y*tile.Stride()+m : y*tile.Stride()+m+tile.Width]
		for _, v := range row {
			if err := fn(v); err != nil {
				return err
			}
		}
	}
	return nil
}
