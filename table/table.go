// Package table provides an in-memory raster attribute table: typed scalar
// columns plus a ragged neighbours column, all sharing one row count.
package table

import (
	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
	"github.com/go-sif/rat/ragged"
	"github.com/go-sif/rat/schema"
)

// column holds the values of a single scalar field. Only the slice which
// matches field.Type is populated.
type column struct {
	field   rat.Field
	def     rat.Value
	bools   []bool
	ints    []int64
	floats  []float64
	strings []string
}

func (c *column) grow(n int) {
	switch c.field.Type {
	case rat.FieldBool:
		for i := 0; i < n; i++ {
			c.bools = append(c.bools, c.def.Bool)
		}
	case rat.FieldInt:
		for i := 0; i < n; i++ {
			c.ints = append(c.ints, c.def.Int)
		}
	case rat.FieldFloat:
		for i := 0; i < n; i++ {
			c.floats = append(c.floats, c.def.Float)
		}
	case rat.FieldString:
		for i := 0; i < n; i++ {
			c.strings = append(c.strings, c.def.String)
		}
	}
}

// Table is an in-memory rat.Table
type Table struct {
	schema     *schema.Schema
	columns    []*column
	neighbours *ragged.Lists
	numRows    int
}

// New creates an empty Table with numRows rows and no fields
func New(numRows int) *Table {
	return &Table{
		schema:     schema.CreateSchema(),
		columns:    make([]*column, 0),
		neighbours: ragged.New(numRows),
		numRows:    numRows,
	}
}

// Schema returns a copy of this Table's Schema
func (t *Table) Schema() *schema.Schema {
	return t.schema.Clone()
}

// Size returns the number of rows in the Table
func (t *Table) Size() int {
	return t.numRows
}

// AddRows appends n rows, filled with each column's default value
func (t *Table) AddRows(n int) error {
	if n < 0 {
		return errors.RowRangeError{Start: t.numRows, Count: n, Size: t.numRows}
	}
	for _, c := range t.columns {
		c.grow(n)
	}
	t.neighbours.Grow(n)
	t.numRows += n
	return nil
}

// NumFields returns the number of scalar columns
func (t *Table) NumFields() int {
	return t.schema.NumFields()
}

// Fields returns all scalar columns, in ColNum order
func (t *Table) Fields() []rat.Field {
	return t.schema.Fields()
}

// AddField creates a new column of def's type, with every row initialised to def
func (t *Table) AddField(name string, usage string, def rat.Value) (rat.Field, error) {
	f, err := t.schema.CreateField(name, def.Type, usage)
	if err != nil {
		return rat.Field{}, err
	}
	c := &column{field: f, def: def}
	c.grow(t.numRows)
	t.columns = append(t.columns, c)
	return f, nil
}

// FieldByName looks up a column by name
func (t *Table) FieldByName(name string) (rat.Field, error) {
	return t.schema.GetField(name)
}

// FieldByIndex looks up a column by its global ColNum
func (t *Table) FieldByIndex(colNum int) (rat.Field, error) {
	return t.schema.FieldByColNum(colNum)
}

// DefaultValue returns the value new rows of a column are filled with
func (t *Table) DefaultValue(field rat.Field) (rat.Value, error) {
	c, err := t.lookup(field, field.Type)
	if err != nil {
		return rat.Value{}, err
	}
	return c.def, nil
}

func (t *Table) lookup(field rat.Field, expected rat.FieldType) (*column, error) {
	f, err := t.schema.GetField(field.Name)
	if err != nil {
		return nil, err
	}
	if f.Type != expected {
		return nil, errors.FieldTypeError{Name: f.Name, Expected: expected.String(), Actual: f.Type.String()}
	}
	return t.columns[f.ColNum], nil
}

func (t *Table) checkRange(start int, n int) error {
	if start < 0 || n < 0 || start+n > t.numRows {
		return errors.RowRangeError{Start: start, Count: n, Size: t.numRows}
	}
	return nil
}

// GetBools reads a range of a Bool column
func (t *Table) GetBools(field rat.Field, start int, n int) ([]bool, error) {
	c, err := t.lookup(field, rat.FieldBool)
	if err != nil {
		return nil, err
	}
	if err := t.checkRange(start, n); err != nil {
		return nil, err
	}
	return append(make([]bool, 0, n), c.bools[start:start+n]...), nil
}

// GetInts reads a range of an Int column
func (t *Table) GetInts(field rat.Field, start int, n int) ([]int64, error) {
	c, err := t.lookup(field, rat.FieldInt)
	if err != nil {
		return nil, err
	}
	if err := t.checkRange(start, n); err != nil {
		return nil, err
	}
	return append(make([]int64, 0, n), c.ints[start:start+n]...), nil
}

// GetFloats reads a range of a Float column
func (t *Table) GetFloats(field rat.Field, start int, n int) ([]float64, error) {
	c, err := t.lookup(field, rat.FieldFloat)
	if err != nil {
		return nil, err
	}
	if err := t.checkRange(start, n); err != nil {
		return nil, err
	}
	return append(make([]float64, 0, n), c.floats[start:start+n]...), nil
}

// GetStrings reads a range of a String column
func (t *Table) GetStrings(field rat.Field, start int, n int) ([]string, error) {
	c, err := t.lookup(field, rat.FieldString)
	if err != nil {
		return nil, err
	}
	if err := t.checkRange(start, n); err != nil {
		return nil, err
	}
	return append(make([]string, 0, n), c.strings[start:start+n]...), nil
}

// SetBools overwrites a range of a Bool column
func (t *Table) SetBools(field rat.Field, start int, values []bool) error {
	c, err := t.lookup(field, rat.FieldBool)
	if err != nil {
		return err
	}
	if err := t.checkRange(start, len(values)); err != nil {
		return err
	}
	copy(c.bools[start:], values)
	return nil
}

// SetInts overwrites a range of an Int column
func (t *Table) SetInts(field rat.Field, start int, values []int64) error {
	c, err := t.lookup(field, rat.FieldInt)
	if err != nil {
		return err
	}
	if err := t.checkRange(start, len(values)); err != nil {
		return err
	}
	copy(c.ints[start:], values)
	return nil
}

// SetFloats overwrites a range of a Float column
func (t *Table) SetFloats(field rat.Field, start int, values []float64) error {
	c, err := t.lookup(field, rat.FieldFloat)
	if err != nil {
		return err
	}
	if err := t.checkRange(start, len(values)); err != nil {
		return err
	}
	copy(c.floats[start:], values)
	return nil
}

// SetStrings overwrites a range of a String column
func (t *Table) SetStrings(field rat.Field, start int, values []string) error {
	c, err := t.lookup(field, rat.FieldString)
	if err != nil {
		return err
	}
	if err := t.checkRange(start, len(values)); err != nil {
		return err
	}
	copy(c.strings[start:], values)
	return nil
}

// GetValues reads a range of any column as tagged Values
func (t *Table) GetValues(field rat.Field, start int, n int) ([]rat.Value, error) {
	if err := t.checkRange(start, n); err != nil {
		return nil, err
	}
	c, err := t.lookup(field, field.Type)
	if err != nil {
		return nil, err
	}
	out := make([]rat.Value, n)
	for i := range out {
		row := start + i
		switch c.field.Type {
		case rat.FieldBool:
			out[i] = rat.BoolValue(c.bools[row])
		case rat.FieldInt:
			out[i] = rat.IntValue(c.ints[row])
		case rat.FieldFloat:
			out[i] = rat.FloatValue(c.floats[row])
		case rat.FieldString:
			out[i] = rat.StringValue(c.strings[row])
		}
	}
	return out, nil
}

// SetValues overwrites a range of any column from tagged Values, which must all match the column's type
func (t *Table) SetValues(field rat.Field, start int, values []rat.Value) error {
	c, err := t.lookup(field, field.Type)
	if err != nil {
		return err
	}
	if err := t.checkRange(start, len(values)); err != nil {
		return err
	}
	for i, v := range values {
		if v.Type != c.field.Type {
			return errors.FieldTypeError{Name: c.field.Name, Expected: c.field.Type.String(), Actual: v.Type.String()}
		}
		row := start + i
		switch v.Type {
		case rat.FieldBool:
			c.bools[row] = v.Bool
		case rat.FieldInt:
			c.ints[row] = v.Int
		case rat.FieldFloat:
			c.floats[row] = v.Float
		case rat.FieldString:
			c.strings[row] = v.String
		}
	}
	return nil
}

// GetNeighbours returns n neighbour lists, in row order, starting at row start
func (t *Table) GetNeighbours(start int, n int) ([][]uint64, error) {
	if err := t.checkRange(start, n); err != nil {
		return nil, err
	}
	return t.neighbours.Slice(start, n), nil
}

// SetNeighbours overwrites the neighbour lists for rows [start, start+len(lists)),
// growing the Table (and so every column) if they extend past its end
func (t *Table) SetNeighbours(start int, lists [][]uint64) error {
	if start < 0 {
		return errors.RowRangeError{Start: start, Count: len(lists), Size: t.numRows}
	}
	if end := start + len(lists); end > t.numRows {
		if err := t.AddRows(end - t.numRows); err != nil {
			return err
		}
	}
	t.neighbours.Replace(start, lists)
	return nil
}

// Neighbours exposes the packed neighbours column, for persistence
func (t *Table) Neighbours() *ragged.Lists {
	return t.neighbours
}

// SetNeighbourLists replaces the whole neighbours column. lists must have Size() rows.
func (t *Table) SetNeighbourLists(lists *ragged.Lists) error {
	if lists.Len() != t.numRows {
		return errors.RowRangeError{Start: 0, Count: lists.Len(), Size: t.numRows}
	}
	t.neighbours = lists
	return nil
}
