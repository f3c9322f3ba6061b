package rat

// An Accumulator siphons data from a stream of Tiles into a custom data structure.
// Tiles may arrive in any order. Independent Accumulators may consume disjoint
// sets of Tiles in parallel, after which their partial results are merged.
type Accumulator interface {
	AddArray(tile *Tile) error                 // AddArray adds a Tile to this Accumulator
	Merge(o Accumulator) error                 // Merge merges another Accumulator into this one
	ToBytes() ([]byte, error)                  // ToBytes serializes this Accumulator
	FromBytes(buf []byte) (Accumulator, error) // FromBytes produce a new Accumulator from serialized data
}
