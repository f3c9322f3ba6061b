package errors

import (
	"fmt"
)

// MissingFieldError occurs when a Table does not contain a requested column
type MissingFieldError struct {
	Name   string
	ColNum int
}

// Error returns a textual representation of this MissingFieldError
func (e MissingFieldError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("Table does not contain a field with index %d", e.ColNum)
	}
	return fmt.Sprintf("Table does not contain a field named %s", e.Name)
}

// FieldExistsError occurs when a column is created with the name of an existing column
type FieldExistsError struct{ Name string }

// Error returns a textual representation of this FieldExistsError
func (e FieldExistsError) Error() string {
	return fmt.Sprintf("Table already contains a field named %s", e.Name)
}

// FieldTypeError occurs when a column is accessed as a type it does not store
type FieldTypeError struct {
	Name     string
	Expected string
	Actual   string
}

// Error returns a textual representation of this FieldTypeError
func (e FieldTypeError) Error() string {
	return fmt.Sprintf("Field %s is of type %s, not %s", e.Name, e.Actual, e.Expected)
}

// RowRangeError occurs when a range of rows extends beyond the end of a Table
type RowRangeError struct {
	Start int
	Count int
	Size  int
}

// Error returns a textual representation of this RowRangeError
func (e RowRangeError) Error() string {
	return fmt.Sprintf("Requested rows [%d, %d) are not within the table of %d rows", e.Start, e.Start+e.Count, e.Size)
}

// SegmentRangeError occurs when a Tile contains a segment ID outside of the histogram
type SegmentRangeError struct {
	ID      int64
	NumRows int
}

// Error returns a textual representation of this SegmentRangeError
func (e SegmentRangeError) Error() string {
	return fmt.Sprintf("Segment ID %d is outside of the histogram of %d rows", e.ID, e.NumRows)
}

// NoDataValueError occurs when a label band has no declared nodata (background) value
type NoDataValueError struct{ Band int }

// Error returns a textual representation of this NoDataValueError
func (e NoDataValueError) Error() string {
	return fmt.Sprintf("Band %d does not have a nodata value", e.Band)
}

// TileShapeError occurs when a Tile's pixel buffer or margin is inconsistent with its shape
type TileShapeError struct{ Reason string }

// Error returns a textual representation of this TileShapeError
func (e TileShapeError) Error() string {
	return fmt.Sprintf("Tile is malformed: %s", e.Reason)
}

// MaskOrderError occurs when a valid entry follows a masked entry in a dense row
type MaskOrderError struct {
	Row int
	Col int
}

// Error returns a textual representation of this MaskOrderError
func (e MaskOrderError) Error() string {
	return fmt.Sprintf("Row %d has a valid entry at column %d following a masked entry", e.Row, e.Col)
}

// IncompatibleAccumulatorError occurs when Accumulators of different kinds or shapes are merged
type IncompatibleAccumulatorError struct{ Reason string }

// Error returns a textual representation of this IncompatibleAccumulatorError
func (e IncompatibleAccumulatorError) Error() string {
	return fmt.Sprintf("Incoming accumulator is not compatible: %s", e.Reason)
}

// ChecksumError occurs when stored block data does not match its recorded checksum
type ChecksumError struct {
	Band   int
	BlockX int
	BlockY int
}

// Error returns a textual representation of this ChecksumError
func (e ChecksumError) Error() string {
	return fmt.Sprintf("Checksum mismatch for block (%d, %d) of band %d", e.BlockX, e.BlockY, e.Band)
}

// NoSuchBandError occurs when a band number outside of [1, NumBands] is requested
type NoSuchBandError struct {
	Band     int
	NumBands int
}

// Error returns a textual representation of this NoSuchBandError
func (e NoSuchBandError) Error() string {
	return fmt.Sprintf("Band %d does not exist, dataset has %d bands", e.Band, e.NumBands)
}

// ReadOnlyError occurs when a dataset opened read-only is modified
type ReadOnlyError struct{ Path string }

// Error returns a textual representation of this ReadOnlyError
func (e ReadOnlyError) Error() string {
	return fmt.Sprintf("%s was opened read-only", e.Path)
}
