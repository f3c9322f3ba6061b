package rat

// HistogramFieldName is the name of the Int field which holds per-segment pixel counts
const HistogramFieldName = "Histogram"

// HistogramUsage is the usage hint recorded for the Histogram field
const HistogramUsage = "PixelCount"

// NeighbourStore persists, for each row of a Table, a ragged list of neighbouring
// segment IDs. The order of the IDs within a row is not significant.
type NeighbourStore interface {
	// GetNeighbours returns n lists, in row order, starting at row start.
	// Rows which were never written are returned as empty lists.
	GetNeighbours(start int, n int) ([][]uint64, error)
	// SetNeighbours overwrites the lists for rows [start, start+len(lists)),
	// growing the Table if needed
	SetNeighbours(start int, lists [][]uint64) error
}

// Table is a raster attribute table: a set of named, typed columns keyed by row
// index, where the row index is the segment ID. Every column always has Size() rows.
type Table interface {
	NeighbourStore
	// Size returns the number of rows in the Table
	Size() int
	// AddRows appends n rows, filled with each column's default value
	AddRows(n int) error
	// NumFields returns the number of scalar columns
	NumFields() int
	// Fields returns all scalar columns, in ColNum order
	Fields() []Field
	// AddField creates a new column of def's type, with every row initialised to def
	AddField(name string, usage string, def Value) (Field, error)
	// FieldByName looks up a column by name
	FieldByName(name string) (Field, error)
	// FieldByIndex looks up a column by its global ColNum
	FieldByIndex(colNum int) (Field, error)
	GetBools(field Field, start int, n int) ([]bool, error)
	GetInts(field Field, start int, n int) ([]int64, error)
	GetFloats(field Field, start int, n int) ([]float64, error)
	GetStrings(field Field, start int, n int) ([]string, error)
	SetBools(field Field, start int, values []bool) error
	SetInts(field Field, start int, values []int64) error
	SetFloats(field Field, start int, values []float64) error
	SetStrings(field Field, start int, values []string) error
	// GetValues reads a range of any column as tagged Values
	GetValues(field Field, start int, n int) ([]Value, error)
}
