package accumulators

import (
	"encoding/binary"
	"fmt"

	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
)

// Histogrammer returns a new Histogram Accumulator, which ignores pixels equal to background
func Histogrammer(background int64) func() rat.Accumulator {
	return func() rat.Accumulator {
		return &Histogram{background: background}
	}
}

// Histogram counts the interior pixels of Tiles per segment ID, growing
// to fit the largest ID it has seen
type Histogram struct {
	background int64
	counts     []uint64
}

// GetCounts returns the pixel count for each segment ID
func (a *Histogram) GetCounts() []uint64 {
	return a.counts
}

func (a *Histogram) grow(n int) {
	if n > len(a.counts) {
		a.counts = append(a.counts, make([]uint64, n-len(a.counts))...)
	}
}

// AddArray adds the interior pixels of a Tile to this Accumulator. Negative
// segment IDs other than the background are rejected.
func (a *Histogram) AddArray(tile *rat.Tile) error {
	return forEachInterior(tile, func(v int64) error {
		if v == a.background {
			return nil
		} else if v < 0 {
			return errors.SegmentRangeError{ID: v, NumRows: len(a.counts)}
		}
		a.grow(int(v) + 1)
		a.counts[v]++
		return nil
	})
}

// Merge merges another Histogram into this one
func (a *Histogram) Merge(o rat.Accumulator) error {
	ha, ok := o.(*Histogram)
	if !ok {
		return fmt.Errorf("Incoming accumulator is not a Histogram Accumulator")
	}
	a.grow(len(ha.counts))
	for i, c := range ha.counts {
		a.counts[i] += c
	}
	return nil
}

// WriteTo stores this Histogram in the "Histogram" column of a table,
// creating the column and adding rows where necessary
func (a *Histogram) WriteTo(tbl rat.Table) error {
	field, err := tbl.FieldByName(rat.HistogramFieldName)
	if _, ok := err.(errors.MissingFieldError); ok {
		field, err = tbl.AddField(rat.HistogramFieldName, rat.HistogramUsage, rat.IntValue(0))
	}
	if err != nil {
		return err
	}
	if len(a.counts) > tbl.Size() {
		if err := tbl.AddRows(len(a.counts) - tbl.Size()); err != nil {
			return err
		}
	}
	counts := make([]int64, tbl.Size())
	for i, c := range a.counts {
		counts[i] = int64(c)
	}
	return tbl.SetInts(field, 0, counts)
}

// ToBytes serializes this Accumulator
func (a *Histogram) ToBytes() ([]byte, error) {
	buff := make([]byte, 8*(len(a.counts)+1))
	binary.LittleEndian.PutUint64(buff, uint64(a.background))
	for i, c := range a.counts {
		binary.LittleEndian.PutUint64(buff[8*(i+1):], c)
	}
	return buff, nil
}

// FromBytes produce a new Accumulator from serialized data
func (a *Histogram) FromBytes(buff []byte) (rat.Accumulator, error) {
	if len(buff) < 8 || len(buff)%8 != 0 {
		return nil, fmt.Errorf("Serialized Histogram Accumulator has invalid length %d", len(buff))
	}
	res := &Histogram{
		background: int64(binary.LittleEndian.Uint64(buff)),
		counts:     make([]uint64, len(buff)/8-1),
	}
	for i := range res.counts {
		res.counts[i] = binary.LittleEndian.Uint64(buff[8*(i+1):])
	}
	return res, nil
}
