package dataset

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/go-sif/rat"
	"github.com/go-sif/rat/ragged"
	"github.com/go-sif/rat/table"
)

// Arrow field metadata keys
const (
	roleKey    = "rat.role"
	usageKey   = "rat.usage"
	defaultKey = "rat.default"
)

const (
	roleField      = "field"
	roleNeighbours = "neighbours"
)

const neighboursColumn = "neighbours"

func metadataValue(md arrow.Metadata, key string) (string, bool) {
	idx := md.FindKey(key)
	if idx < 0 {
		return "", false
	}
	return md.Values()[idx], true
}

// defaultString formats a default value so that rat.ParseValue reverses it
func defaultString(def rat.Value) string {
	if def.Type == rat.FieldString {
		return def.String
	}
	return def.ToString()
}

func fieldArrowType(ft rat.FieldType) arrow.DataType {
	switch ft {
	case rat.FieldBool:
		return arrow.FixedWidthTypes.Boolean
	case rat.FieldInt:
		return arrow.PrimitiveTypes.Int64
	case rat.FieldFloat:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func arrowFieldType(dt arrow.DataType) (rat.FieldType, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return rat.FieldBool, nil
	case arrow.INT64:
		return rat.FieldInt, nil
	case arrow.FLOAT64:
		return rat.FieldFloat, nil
	case arrow.STRING:
		return rat.FieldString, nil
	default:
		return 0, fmt.Errorf("Unsupported attribute column type %s", dt)
	}
}

// buildColumn copies one scalar column of tbl into an Arrow array
func buildColumn(pool memory.Allocator, tbl *table.Table, f rat.Field) (arrow.Array, error) {
	n := tbl.Size()
	switch f.Type {
	case rat.FieldBool:
		vals, err := tbl.GetBools(f, 0, n)
		if err != nil {
			return nil, err
		}
		b := array.NewBooleanBuilder(pool)
		defer b.Release()
		b.AppendValues(vals, nil)
		return b.NewArray(), nil
	case rat.FieldInt:
		vals, err := tbl.GetInts(f, 0, n)
		if err != nil {
			return nil, err
		}
		b := array.NewInt64Builder(pool)
		defer b.Release()
		b.AppendValues(vals, nil)
		return b.NewArray(), nil
	case rat.FieldFloat:
		vals, err := tbl.GetFloats(f, 0, n)
		if err != nil {
			return nil, err
		}
		b := array.NewFloat64Builder(pool)
		defer b.Release()
		b.AppendValues(vals, nil)
		return b.NewArray(), nil
	default:
		vals, err := tbl.GetStrings(f, 0, n)
		if err != nil {
			return nil, err
		}
		b := array.NewStringBuilder(pool)
		defer b.Release()
		b.AppendValues(vals, nil)
		return b.NewArray(), nil
	}
}

func buildNeighbours(pool memory.Allocator, lists *ragged.Lists) arrow.Array {
	lb := array.NewListBuilder(pool, arrow.PrimitiveTypes.Uint64)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Uint64Builder)
	for i := 0; i < lists.Len(); i++ {
		lb.Append(true)
		vb.AppendValues(lists.Row(i), nil)
	}
	return lb.NewArray()
}

// writeTable stores tbl as an Arrow IPC stream, replacing path atomically
func writeTable(path string, tbl *table.Table) error {
	pool := memory.NewGoAllocator()
	fields := tbl.Fields()
	arrowFields := make([]arrow.Field, 0, len(fields)+1)
	cols := make([]arrow.Array, 0, len(fields)+1)
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	for _, f := range fields {
		def, err := tbl.DefaultValue(f)
		if err != nil {
			return err
		}
		col, err := buildColumn(pool, tbl, f)
		if err != nil {
			return err
		}
		cols = append(cols, col)
		arrowFields = append(arrowFields, arrow.Field{
			Name:     f.Name,
			Type:     fieldArrowType(f.Type),
			Metadata: arrow.NewMetadata([]string{roleKey, usageKey, defaultKey}, []string{roleField, f.Usage, defaultString(def)}),
		})
	}
	cols = append(cols, buildNeighbours(pool, tbl.Neighbours()))
	arrowFields = append(arrowFields, arrow.Field{
		Name:     neighboursColumn,
		Type:     arrow.ListOf(arrow.PrimitiveTypes.Uint64),
		Metadata: arrow.NewMetadata([]string{roleKey}, []string{roleNeighbours}),
	})
	schema := arrow.NewSchema(arrowFields, nil)
	record := array.NewRecord(schema, cols, int64(tbl.Size()))
	defer record.Release()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := ipc.NewWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err := w.Write(record); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("Unable to write attribute table %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// readTable loads a table written by writeTable
func readTable(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pool := memory.NewGoAllocator()
	rdr, err := ipc.NewReader(f, ipc.WithAllocator(pool))
	if err != nil {
		return nil, fmt.Errorf("Unable to read attribute table %s: %w", path, err)
	}
	defer rdr.Release()

	tbl := table.New(0)
	schema := rdr.Schema()
	fields := make([]rat.Field, schema.NumFields())
	neighbourCol := -1
	for i, af := range schema.Fields() {
		if role, _ := metadataValue(af.Metadata, roleKey); role == roleNeighbours {
			neighbourCol = i
			continue
		}
		ft, err := arrowFieldType(af.Type)
		if err != nil {
			return nil, err
		}
		def := rat.Value{Type: ft}
		if s, ok := metadataValue(af.Metadata, defaultKey); ok {
			if def, err = rat.ParseValue(ft, s); err != nil {
				return nil, err
			}
		}
		usage, _ := metadataValue(af.Metadata, usageKey)
		if fields[i], err = tbl.AddField(af.Name, usage, def); err != nil {
			return nil, err
		}
	}

	offsets := []int64{0}
	values := make([]uint64, 0)
	for rdr.Next() {
		rec := rdr.Record()
		start := tbl.Size()
		n := int(rec.NumRows())
		if err := tbl.AddRows(n); err != nil {
			return nil, err
		}
		for i := range fields {
			var err error
			switch col := rec.Column(i).(type) {
			case *array.Boolean:
				vals := make([]bool, n)
				for j := range vals {
					vals[j] = col.Value(j)
				}
				err = tbl.SetBools(fields[i], start, vals)
			case *array.Int64:
				err = tbl.SetInts(fields[i], start, append([]int64(nil), col.Int64Values()...))
			case *array.Float64:
				err = tbl.SetFloats(fields[i], start, append([]float64(nil), col.Float64Values()...))
			case *array.String:
				vals := make([]string, n)
				for j := range vals {
					vals[j] = col.Value(j)
				}
				err = tbl.SetStrings(fields[i], start, vals)
			case *array.List:
				if i != neighbourCol {
					err = fmt.Errorf("Unexpected list column %s", schema.Field(i).Name)
					break
				}
				elems, ok := col.ListValues().(*array.Uint64)
				if !ok {
					err = fmt.Errorf("Neighbours column must hold uint64 values")
					break
				}
				all := elems.Uint64Values()
				for j := 0; j < n; j++ {
					s, e := col.ValueOffsets(j)
					values = append(values, all[s:e]...)
					offsets = append(offsets, int64(len(values)))
				}
			default:
				err = fmt.Errorf("Unsupported attribute column %s", schema.Field(i).Name)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("Unable to read attribute table %s: %w", path, err)
	}
	if neighbourCol >= 0 {
		lists, err := ragged.FromOffsets(offsets, values)
		if err != nil {
			return nil, err
		}
		if err := tbl.SetNeighbourLists(lists); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
