package util

import (
	"fmt"

	"github.com/go-sif/rat"
)

// SafeAddArray adds a Tile to an Accumulator such that panics are recovered and
// nice error messages are constructed. desc identifies the Tile.
func SafeAddArray(acc rat.Accumulator, tile *rat.Tile, desc string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("Accumulator Panic: %w\nTile: %s\n%s", anErr, desc, GetTrace())
			} else {
				err = fmt.Errorf("Accumulator Panic: %v\nTile: %s\n%s", r, desc, GetTrace())
			}
		} else if err != nil {
			err = fmt.Errorf("%s: %w", desc, err)
		}
	}()
	err = acc.AddArray(tile)
	return
}
