// Package neighbours finds, for every segment of a labelled raster, the set of
// other segments which touch it, and stores those sets in an attribute table.
package neighbours

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
	"github.com/go-sif/rat/logging"
)

// maxCoverageWarnings limits how many incompletely visited segments are logged individually
const maxCoverageWarnings = 10

// flushBatchRows is the number of rows written to the store at once by Flush
const flushBatchRows = 4096

// Accumulator discovers pairs of touching segments in a stream of margined
// Tiles and maintains a deduplicated, symmetric adjacency set per segment.
// Each unordered pair of touching pixels is examined from exactly one of the
// two pixels: its right and lower neighbours, plus the two lower diagonals
// when 8-connected. Tiles may therefore arrive in any order, provided they
// cover the raster exactly once and carry a margin of real (or background)
// pixels.
type Accumulator struct {
	histogram     []uint64
	visits        []uint64
	store         rat.NeighbourStore
	band          int
	background    int64
	fourConnected bool
	neighbours    map[uint64]*roaring64.Bitmap
}

// NewAccumulator creates an Accumulator for segment IDs in [0, len(hist)). hist is
// copied, so the caller is free to modify or discard it. Pixels equal to background
// are never considered neighbours. store receives the adjacency sets on Flush.
func NewAccumulator(hist []uint64, store rat.NeighbourStore, band int, background int64, fourConnected bool) *Accumulator {
	histogram := make([]uint64, len(hist))
	copy(histogram, hist)
	return &Accumulator{
		histogram:     histogram,
		visits:        make([]uint64, len(hist)),
		store:         store,
		band:          band,
		background:    background,
		fourConnected: fourConnected,
		neighbours:    make(map[uint64]*roaring64.Bitmap),
	}
}

// Histogram returns a copy of the histogram this Accumulator was seeded with
func (a *Accumulator) Histogram() []uint64 {
	return append(make([]uint64, 0, len(a.histogram)), a.histogram...)
}

// FourConnected returns true iff only horizontal and vertical neighbours are considered
func (a *Accumulator) FourConnected() bool {
	return a.fourConnected
}

// NumSegments returns the number of segments which have at least one neighbour
func (a *Accumulator) NumSegments() int {
	return len(a.neighbours)
}

// Neighbours returns the sorted neighbours found so far for segment id
func (a *Accumulator) Neighbours(id uint64) []uint64 {
	bm, ok := a.neighbours[id]
	if !ok {
		return []uint64{}
	}
	return bm.ToArray()
}

func (a *Accumulator) checkTile(tile *rat.Tile) error {
	if tile == nil {
		return errors.TileShapeError{Reason: "tile is nil"}
	}
	if tile.Margin < 1 {
		return errors.TileShapeError{Reason: fmt.Sprintf("margin of %d pixels, at least 1 is required", tile.Margin)}
	}
	if tile.Width < 0 || tile.Height < 0 {
		return errors.TileShapeError{Reason: fmt.Sprintf("negative size %dx%d", tile.Width, tile.Height)}
	}
	if len(tile.Pix) != tile.Stride()*tile.Rows() {
		return errors.TileShapeError{Reason: fmt.Sprintf("%d pixels for a padded shape of %dx%d", len(tile.Pix), tile.Stride(), tile.Rows())}
	}
	numRows := int64(len(a.histogram))
	for _, v := range tile.Pix {
		if v != a.background && (v < 0 || v >= numRows) {
			return errors.SegmentRangeError{ID: v, NumRows: len(a.histogram)}
		}
	}
	return nil
}

func (a *Accumulator) pair(val int64, other int64) {
	if other == val || other == a.background {
		return
	}
	a.add(uint64(val), uint64(other))
	a.add(uint64(other), uint64(val))
}

func (a *Accumulator) add(id uint64, neighbour uint64) {
	bm, ok := a.neighbours[id]
	if !ok {
		bm = roaring64.New()
		a.neighbours[id] = bm
	}
	bm.Add(neighbour)
}

// AddArray finds all neighbours amongst the interior pixels of tile. The
// Accumulator is left unchanged if the tile is malformed or contains a
// segment ID outside of the histogram.
func (a *Accumulator) AddArray(tile *rat.Tile) error {
	if err := a.checkTile(tile); err != nil {
		return err
	}
	m := tile.Margin
	stride := tile.Stride()
	pix := tile.Pix
	for y := m; y < m+tile.Height; y++ {
		row := y * stride
		below := row + stride
		for x := m; x < m+tile.Width; x++ {
			val := pix[row+x]
			if val == a.background {
				continue
			}
			a.visits[val]++
			a.pair(val, pix[row+x+1])
			a.pair(val, pix[below+x])
			if !a.fourConnected {
				a.pair(val, pix[below+x+1])
				a.pair(val, pix[below+x-1])
			}
		}
	}
	return nil
}

// Merge merges another Accumulator, which has consumed a disjoint set of
// Tiles of the same raster, into this one
func (a *Accumulator) Merge(o rat.Accumulator) error {
	other, ok := o.(*Accumulator)
	if !ok {
		return errors.IncompatibleAccumulatorError{Reason: "not a neighbours Accumulator"}
	}
	if len(other.histogram) != len(a.histogram) {
		return errors.IncompatibleAccumulatorError{Reason: fmt.Sprintf("histogram of %d rows, expected %d", len(other.histogram), len(a.histogram))}
	}
	if other.background != a.background || other.fourConnected != a.fourConnected {
		return errors.IncompatibleAccumulatorError{Reason: "background or connectivity differs"}
	}
	for i, v := range other.visits {
		a.visits[i] += v
	}
	for id, bm := range other.neighbours {
		if mine, ok := a.neighbours[id]; ok {
			mine.Or(bm)
		} else {
			a.neighbours[id] = bm.Clone()
		}
	}
	return nil
}

// Flush writes the adjacency set of every segment in [0, len(hist)) to the
// store, in batches of consecutive rows. Segments without neighbours, and the
// background, are written as empty lists so that lists left by an earlier
// build are overwritten. Segments which were not visited as often as the
// histogram says they should have been are logged, as this indicates an
// incomplete sweep.
func (a *Accumulator) Flush() error {
	for start := 0; start < len(a.histogram); start += flushBatchRows {
		lists := make([][]uint64, 0, flushBatchRows)
		for id := start; id < start+flushBatchRows && id < len(a.histogram); id++ {
			if bm, ok := a.neighbours[uint64(id)]; ok && int64(id) != a.background {
				lists = append(lists, bm.ToArray())
			} else {
				lists = append(lists, []uint64{})
			}
		}
		if err := a.store.SetNeighbours(start, lists); err != nil {
			return fmt.Errorf("writing neighbours of segments %d to %d: %w", start, start+len(lists)-1, err)
		}
	}
	incomplete := a.IncompleteSegments()
	for i, id := range incomplete {
		if i == maxCoverageWarnings {
			logging.Warnf("... and %d more segments", len(incomplete)-maxCoverageWarnings)
			break
		}
		logging.Warnf("Band %d: segment %d visited %d times, histogram has %d pixels", a.band, id, a.visits[id], a.histogram[id])
	}
	logging.Debugf("Band %d: wrote neighbours for %d segments, %d with neighbours", a.band, len(a.histogram), len(a.neighbours))
	return nil
}

// IncompleteSegments returns the IDs of segments whose visit count does not match the histogram
func (a *Accumulator) IncompleteSegments() []uint64 {
	out := make([]uint64, 0)
	for id, count := range a.histogram {
		if a.visits[id] != count && uint64(id) != uint64(a.background) {
			out = append(out, uint64(id))
		}
	}
	return out
}

type serializedAccumulator struct {
	Histogram     []uint64
	Visits        []uint64
	Band          int
	Background    int64
	FourConnected bool
	IDs           []uint64
	Sets          [][]byte
}

// ToBytes serializes this Accumulator
func (a *Accumulator) ToBytes() ([]byte, error) {
	ser := serializedAccumulator{
		Histogram:     a.histogram,
		Visits:        a.visits,
		Band:          a.band,
		Background:    a.background,
		FourConnected: a.fourConnected,
		IDs:           make([]uint64, 0, len(a.neighbours)),
		Sets:          make([][]byte, 0, len(a.neighbours)),
	}
	for id, bm := range a.neighbours {
		buf, err := bm.MarshalBinary()
		if err != nil {
			return nil, err
		}
		ser.IDs = append(ser.IDs, id)
		ser.Sets = append(ser.Sets, buf)
	}
	buff := new(bytes.Buffer)
	e := gob.NewEncoder(buff)
	if err := e.Encode(ser); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// FromBytes produce a new Accumulator from serialized data. The new
// Accumulator flushes to the same store as this one.
func (a *Accumulator) FromBytes(buf []byte) (rat.Accumulator, error) {
	var ser serializedAccumulator
	d := gob.NewDecoder(bytes.NewBuffer(buf))
	if err := d.Decode(&ser); err != nil {
		return nil, err
	}
	if len(ser.Visits) != len(ser.Histogram) || len(ser.IDs) != len(ser.Sets) {
		return nil, fmt.Errorf("Serialized accumulator is inconsistent")
	}
	res := NewAccumulator(ser.Histogram, a.store, ser.Band, ser.Background, ser.FourConnected)
	copy(res.visits, ser.Visits)
	for i, id := range ser.IDs {
		bm := roaring64.New()
		if err := bm.UnmarshalBinary(ser.Sets[i]); err != nil {
			return nil, err
		}
		res.neighbours[id] = bm
	}
	return res, nil
}
