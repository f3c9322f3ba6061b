package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-sif/rat"
	"github.com/tidwall/gjson"
)

// ParseNeighbours reads a list of segment IDs from path within a line
func ParseNeighbours(line Line, path string) ([]uint64, error) {
	val := line.JSON.Get(path)
	if !val.Exists() {
		return []uint64{}, nil
	} else if !val.IsArray() {
		return nil, fmt.Errorf("Row %d: %s was not an array. Was: %s", line.Row, path, val.Raw)
	}
	elems := val.Array()
	result := make([]uint64, len(elems))
	for i, e := range elems {
		if e.Type != gjson.Number {
			return nil, fmt.Errorf("Row %d: %s contains a non-numeric neighbour. Was: %s", line.Row, path, e.Raw)
		}
		// parse the raw text, so that IDs beyond 2^53 survive
		id, err := strconv.ParseUint(e.Raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Row %d: %s is not a segment ID. Was: %s", line.Row, path, e.Raw)
		}
		result[i] = id
	}
	return result, nil
}

// ParseValue reads a value of field's type from path within a line
func ParseValue(line Line, path string, field rat.Field) (rat.Value, error) {
	val := line.JSON.Get(path)
	if !val.Exists() {
		return rat.Value{}, fmt.Errorf("Row %d: %s is missing", line.Row, path)
	}
	// parse type
	switch field.Type {
	case rat.FieldBool:
		if val.Type != gjson.True && val.Type != gjson.False {
			return rat.Value{}, fmt.Errorf("Field %s was not a boolean. Was: %s", field.Name, val.Raw)
		}
		return rat.BoolValue(val.Bool()), nil
	case rat.FieldInt:
		if val.Type != gjson.Number {
			return rat.Value{}, fmt.Errorf("Field %s was not a number. Was: %s", field.Name, val.Raw)
		}
		// parse the raw text, so that fractions are rejected rather than truncated
		i, err := strconv.ParseInt(val.Raw, 10, 64)
		if err != nil {
			return rat.Value{}, fmt.Errorf("Field %s was not an integer. Was: %s", field.Name, val.Raw)
		}
		return rat.IntValue(i), nil
	case rat.FieldFloat:
		if val.Type == gjson.String {
			// non-finite values are written as strings
			f, err := strconv.ParseFloat(val.Str, 64)
			if err != nil || !(math.IsNaN(f) || math.IsInf(f, 0)) {
				return rat.Value{}, fmt.Errorf("Field %s was not a number. Was: %s", field.Name, val.Raw)
			}
			return rat.FloatValue(f), nil
		} else if val.Type != gjson.Number {
			return rat.Value{}, fmt.Errorf("Field %s was not a number. Was: %s", field.Name, val.Raw)
		}
		return rat.FloatValue(val.Float()), nil
	case rat.FieldString:
		if val.Type != gjson.String {
			return rat.Value{}, fmt.Errorf("Field %s was not a string. Was: %s", field.Name, val.Raw)
		}
		return rat.StringValue(val.String()), nil
	default:
		return rat.Value{}, fmt.Errorf("JSONL parsing does not support field type %s", field.Type)
	}
}

// WriteNeighbours writes one line per neighbour list, of the form {"row":5,"neighbours":[1,2]}
func WriteNeighbours(w io.Writer, start int, lists [][]uint64) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)
	for i, l := range lists {
		buf = append(buf[:0], `{"row":`...)
		buf = strconv.AppendInt(buf, int64(start+i), 10)
		buf = append(buf, `,"neighbours":[`...)
		for j, id := range l {
			if j > 0 {
				buf = append(buf, ',')
			}
			buf = strconv.AppendUint(buf, id, 10)
		}
		buf = append(buf, "]}\n"...)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteValues writes one line per value, of the form {"row":5,"value":"x"}.
// Non-finite floats are written as the strings "NaN", "+Inf" and "-Inf".
func WriteValues(w io.Writer, start int, values []rat.Value) error {
	bw := bufio.NewWriter(w)
	for i, v := range values {
		encoded := v.ToString()
		if v.Type == rat.FieldString {
			quoted, err := json.Marshal(v.String)
			if err != nil {
				return err
			}
			encoded = string(quoted)
		} else if v.Type == rat.FieldFloat && (math.IsNaN(v.Float) || math.IsInf(v.Float, 0)) {
			// JSON has no literal for these, so they are written as "NaN", "+Inf" or "-Inf"
			encoded = strconv.Quote(strconv.FormatFloat(v.Float, 'g', -1, 64))
		}
		if _, err := fmt.Fprintf(bw, "{\"row\":%d,\"value\":%s}\n", start+i, encoded); err != nil {
			return err
		}
	}
	return bw.Flush()
}
