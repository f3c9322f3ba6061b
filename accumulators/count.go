package accumulators

import (
	"encoding/binary"
	"fmt"

	"github.com/go-sif/rat"
)

// Counter returns a new Count Accumulator, which ignores pixels equal to background
func Counter(background int64) func() rat.Accumulator {
	return func() rat.Accumulator {
		return &Count{background: background}
	}
}

// Count counts the non-background interior pixels of Tiles
type Count struct {
	background int64
	count      uint64
}

// GetCount returns the pixel count from this Accumulator
func (a *Count) GetCount() uint64 {
	return a.count
}

// AddArray adds the interior pixels of a Tile to this Accumulator
func (a *Count) AddArray(tile *rat.Tile) error {
	return forEachInterior(tile, func(v int64) error {
		if v != a.background {
			a.count++
		}
		return nil
	})
}

// Merge merges another Accumulator into this one
func (a *Count) Merge(o rat.Accumulator) error {
	ca, ok := o.(*Count)
	if !ok {
		return fmt.Errorf("Incoming accumulator is not a Count Accumulator")
	}
	a.count += ca.count
	return nil
}

// ToBytes serializes this Accumulator
func (a *Count) ToBytes() ([]byte, error) {
	buff := make([]byte, 16)
	binary.LittleEndian.PutUint64(buff, uint64(a.background))
	binary.LittleEndian.PutUint64(buff[8:], a.count)
	return buff, nil
}

// FromBytes produce a new Accumulator from serialized data
func (a *Count) FromBytes(buff []byte) (rat.Accumulator, error) {
	if len(buff) != 16 {
		return nil, fmt.Errorf("Serialized Count Accumulator must be 16 bytes, not %d", len(buff))
	}
	return &Count{
		background: int64(binary.LittleEndian.Uint64(buff)),
		count:      binary.LittleEndian.Uint64(buff[8:]),
	}, nil
}
