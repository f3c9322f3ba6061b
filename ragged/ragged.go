// Package ragged stores variable-length lists of unsigned integers, one list per
// row, without fixed-width padding. Lists are packed as an offsets array plus a
// flat array of values; row i occupies values[offsets[i]:offsets[i+1]].
package ragged

import (
	"fmt"
	"sort"
)

// compactFraction controls how many rows may be held as pending overwrites
// before they are folded back into the packed arrays
const compactFraction = 8

// Lists is a ragged collection of uint64 lists, addressed by row
type Lists struct {
	offsets []int64
	values  []uint64
	pending map[int][]uint64 // overwritten rows not yet packed
}

// New creates Lists containing n empty rows
func New(n int) *Lists {
	return &Lists{
		offsets: make([]int64, n+1),
		values:  make([]uint64, 0),
		pending: make(map[int][]uint64),
	}
}

// FromLists packs a list of lists
func FromLists(lists [][]uint64) *Lists {
	l := New(0)
	l.offsets = make([]int64, 1, len(lists)+1)
	for _, row := range lists {
		l.values = append(l.values, row...)
		l.offsets = append(l.offsets, int64(len(l.values)))
	}
	return l
}

// FromOffsets builds Lists from an offsets array of length rows+1 and a flat values array
func FromOffsets(offsets []int64, values []uint64) (*Lists, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("Offsets must contain at least one entry")
	}
	if offsets[0] != 0 || offsets[len(offsets)-1] != int64(len(values)) {
		return nil, fmt.Errorf("Offsets span [%d, %d], but there are %d values", offsets[0], offsets[len(offsets)-1], len(values))
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("Offsets decrease at row %d", i-1)
		}
	}
	l := New(0)
	l.offsets = append(make([]int64, 0, len(offsets)), offsets...)
	l.values = append(make([]uint64, 0, len(values)), values...)
	return l, nil
}

// Len returns the number of rows
func (l *Lists) Len() int {
	return len(l.offsets) - 1
}

// Grow appends n empty rows
func (l *Lists) Grow(n int) {
	end := l.offsets[len(l.offsets)-1]
	for i := 0; i < n; i++ {
		l.offsets = append(l.offsets, end)
	}
}

// RowLen returns the number of values in row i
func (l *Lists) RowLen(i int) int {
	if p, ok := l.pending[i]; ok {
		return len(p)
	}
	return int(l.offsets[i+1] - l.offsets[i])
}

// Row returns a copy of the values in row i
func (l *Lists) Row(i int) []uint64 {
	if p, ok := l.pending[i]; ok {
		return append(make([]uint64, 0, len(p)), p...)
	}
	packed := l.values[l.offsets[i]:l.offsets[i+1]]
	return append(make([]uint64, 0, len(packed)), packed...)
}

// Slice returns copies of rows [start, start+n)
func (l *Lists) Slice(start int, n int) [][]uint64 {
	out := make([][]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = l.Row(start + i)
	}
	return out
}

// Lists returns copies of every row
func (l *Lists) Lists() [][]uint64 {
	return l.Slice(0, l.Len())
}

// Replace overwrites rows [start, start+len(lists)), growing the Lists if required
func (l *Lists) Replace(start int, lists [][]uint64) {
	if end := start + len(lists); end > l.Len() {
		l.Grow(end - l.Len())
	}
	for i, row := range lists {
		l.pending[start+i] = append(make([]uint64, 0, len(row)), row...)
	}
	if len(l.pending) > 0 && len(l.pending)*compactFraction > l.Len() {
		l.Compact()
	}
}

// Compact folds any overwritten rows back into the packed offsets and values
func (l *Lists) Compact() {
	if len(l.pending) == 0 {
		return
	}
	rows := make([]int, 0, len(l.pending))
	for r := range l.pending {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	values := make([]uint64, 0, len(l.values))
	offsets := make([]int64, 1, len(l.offsets))
	next := 0
	for i := 0; i < l.Len(); i++ {
		if next < len(rows) && rows[next] == i {
			values = append(values, l.pending[i]...)
			next++
		} else {
			values = append(values, l.values[l.offsets[i]:l.offsets[i+1]]...)
		}
		offsets = append(offsets, int64(len(values)))
	}
	l.offsets = offsets
	l.values = values
	l.pending = make(map[int][]uint64)
}

// Offsets returns the packed offsets array, of length Len()+1
func (l *Lists) Offsets() []int64 {
	l.Compact()
	return l.offsets
}

// Values returns the packed values array
func (l *Lists) Values() []uint64 {
	l.Compact()
	return l.values
}
