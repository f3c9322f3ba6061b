package accumulators

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/go-sif/rat"
)

// Compose returns a factory for Composed Accumulators, which run several
// Accumulators over the same Tiles
func Compose(faccs ...func() rat.Accumulator) func() rat.Accumulator {
	return func() rat.Accumulator {
		accs := make([]rat.Accumulator, len(faccs))
		for i, f := range faccs {
			accs[i] = f()
		}
		return &Composed{accs: accs}
	}
}

// Composed composes other Accumulators
type Composed struct {
	accs []rat.Accumulator
}

// GetResults returns the contained Accumulators, so that their results may be accessed
func (c *Composed) GetResults() []rat.Accumulator {
	return c.accs
}

// AddArray adds a Tile to all contained Accumulators
func (c *Composed) AddArray(tile *rat.Tile) error {
	for _, a := range c.accs {
		err := a.AddArray(tile)
		if err != nil {
			return err
		}
	}
	return nil
}

// Merge merges another Composed Accumulator into this one, merging all contained Accumulators
func (c *Composed) Merge(o rat.Accumulator) error {
	compa, ok := o.(*Composed)
	if !ok {
		return fmt.Errorf("Incoming accumulator is not a Composed Accumulator")
	}
	if len(compa.accs) != len(c.accs) {
		return fmt.Errorf("Incoming Composed Accumulator contains %d Accumulators, expected %d", len(compa.accs), len(c.accs))
	}
	for i, a := range c.accs {
		err := a.Merge(compa.accs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// ToBytes serializes this Accumulator
func (c *Composed) ToBytes() ([]byte, error) {
	result := make([][]byte, len(c.accs))
	for i, a := range c.accs {
		buff, err := a.ToBytes()
		if err != nil {
			return nil, err
		}
		result[i] = buff
	}
	buff := new(bytes.Buffer)
	e := gob.NewEncoder(buff)
	err := e.Encode(result)
	if err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// FromBytes produce a new Accumulator from serialized data
func (c *Composed) FromBytes(buff []byte) (rat.Accumulator, error) {
	var deser [][]byte
	d := gob.NewDecoder(bytes.NewBuffer(buff))
	err := d.Decode(&deser)
	if err != nil {
		return nil, err
	}
	if len(deser) != len(c.accs) {
		return nil, fmt.Errorf("Serialized Composed Accumulator contains %d Accumulators, expected %d", len(deser), len(c.accs))
	}
	newAcs := make([]rat.Accumulator, len(c.accs))
	for i, b := range deser {
		a, err := c.accs[i].FromBytes(b)
		if err != nil {
			return nil, err
		}
		newAcs[i] = a
	}
	return &Composed{accs: newAcs}, nil
}
