package ragged

import (
	"fmt"

	"github.com/go-sif/rat/errors"
)

// Dense is a rectangular representation of ragged lists. Each row holds Cols
// entries; Mask marks entries which are padding. Within a row, every valid
// entry must precede every masked entry, so a row's length is its count of
// unmasked entries.
type Dense struct {
	Rows   int
	Cols   int
	Values []uint64 // Rows*Cols values, row-major
	Mask   []bool   // true where the corresponding value is padding
}

// ToDense pads lists into a Dense of width equal to the longest list
func ToDense(lists [][]uint64) *Dense {
	cols := 0
	for _, row := range lists {
		if len(row) > cols {
			cols = len(row)
		}
	}
	d := &Dense{
		Rows:   len(lists),
		Cols:   cols,
		Values: make([]uint64, len(lists)*cols),
		Mask:   make([]bool, len(lists)*cols),
	}
	for r, row := range lists {
		base := r * cols
		copy(d.Values[base:base+len(row)], row)
		for c := len(row); c < cols; c++ {
			d.Mask[base+c] = true
		}
	}
	return d
}

// FromDense recovers the ragged lists from a Dense
func FromDense(d *Dense) ([][]uint64, error) {
	if len(d.Values) != d.Rows*d.Cols || len(d.Mask) != d.Rows*d.Cols {
		return nil, fmt.Errorf("Dense values (%d) and mask (%d) must both hold %d entries", len(d.Values), len(d.Mask), d.Rows*d.Cols)
	}
	lists := make([][]uint64, d.Rows)
	for r := 0; r < d.Rows; r++ {
		base := r * d.Cols
		n := 0
		for n < d.Cols && !d.Mask[base+n] {
			n++
		}
		for c := n; c < d.Cols; c++ {
			if !d.Mask[base+c] {
				return nil, errors.MaskOrderError{Row: r, Col: c}
			}
		}
		lists[r] = append(make([]uint64, 0, n), d.Values[base:base+n]...)
	}
	return lists, nil
}
