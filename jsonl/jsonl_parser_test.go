package jsonl

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/go-sif/rat"
	"github.com/stretchr/testify/require"
)

func TestJSONLNeighbours(t *testing.T) {
	data := "# segment neighbours\n" +
		"{\"row\": 5, \"neighbours\": [99, 87, 65, 27]}\n" +
		"{\"neighbours\": [44, 21, 98]}\n" +
		"\n" +
		"{\"row\": 9, \"neighbours\": []}\n" +
		"{\"row\": 1, \"neighbours\": [18446744073709551615]}\n"
	parser := CreateParser(&ParserConf{BatchSize: 3, Comment: '#'})
	it, err := parser.Parse(strings.NewReader(data), 0)
	require.Nil(t, err)

	rows := make([]int, 0)
	lists := make([][]uint64, 0)
	for it.HasNextBatch() {
		batch, err := it.NextBatch()
		require.Nil(t, err)
		require.True(t, len(batch) <= 3)
		for _, line := range batch {
			l, err := ParseNeighbours(line, "neighbours")
			require.Nil(t, err)
			rows = append(rows, line.Row)
			lists = append(lists, l)
		}
	}
	require.Equal(t, []int{5, 6, 9, 1}, rows)
	require.Equal(t, [][]uint64{{99, 87, 65, 27}, {44, 21, 98}, {}, {18446744073709551615}}, lists)
}

func TestJSONLErrors(t *testing.T) {
	parser := CreateParser(&ParserConf{})
	it, err := parser.Parse(strings.NewReader("{\"row\": -1}\n"), 0)
	require.Nil(t, err)
	_, err = it.NextBatch()
	require.NotNil(t, err)

	it, err = parser.Parse(strings.NewReader("{not json\n"), 0)
	require.Nil(t, err)
	_, err = it.NextBatch()
	require.NotNil(t, err)

	it, err = parser.Parse(strings.NewReader("{\"neighbours\": [1, \"two\"]}\n{\"neighbours\": 3}\n"), 7)
	require.Nil(t, err)
	batch, err := it.NextBatch()
	require.Nil(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, 7, batch[0].Row)
	_, err = ParseNeighbours(batch[0], "neighbours")
	require.NotNil(t, err)
	_, err = ParseNeighbours(batch[1], "neighbours")
	require.NotNil(t, err)
}

func TestJSONLValues(t *testing.T) {
	data := "{\"row\": 0, \"meta\": {\"flag\": true, \"count\": 22, \"score\": 3.14, \"name\": \"hello\"}}\n"
	it, err := CreateParser(&ParserConf{HeaderLines: 0}).Parse(strings.NewReader(data), 0)
	require.Nil(t, err)
	batch, err := it.NextBatch()
	require.Nil(t, err)
	require.Len(t, batch, 1)
	line := batch[0]

	v, err := ParseValue(line, "meta.flag", rat.Field{Name: "BoolField", Type: rat.FieldBool})
	require.Nil(t, err)
	require.Equal(t, rat.BoolValue(true), v)
	v, err = ParseValue(line, "meta.count", rat.Field{Name: "IntField", Type: rat.FieldInt})
	require.Nil(t, err)
	require.Equal(t, rat.IntValue(22), v)
	v, err = ParseValue(line, "meta.score", rat.Field{Name: "FloatField", Type: rat.FieldFloat})
	require.Nil(t, err)
	require.Equal(t, rat.FloatValue(3.14), v)
	v, err = ParseValue(line, "meta.name", rat.Field{Name: "StringField", Type: rat.FieldString})
	require.Nil(t, err)
	require.Equal(t, rat.StringValue("hello"), v)

	_, err = ParseValue(line, "meta.name", rat.Field{Name: "IntField", Type: rat.FieldInt})
	require.NotNil(t, err)
	_, err = ParseValue(line, "meta.missing", rat.Field{Name: "IntField", Type: rat.FieldInt})
	require.NotNil(t, err)
}

func TestJSONLWriteAndReadBack(t *testing.T) {
	var buf bytes.Buffer
	require.Nil(t, WriteNeighbours(&buf, 4, [][]uint64{{}, {99, 87}}))
	require.Equal(t, "{\"row\":4,\"neighbours\":[]}\n{\"row\":5,\"neighbours\":[99,87]}\n", buf.String())

	it, err := CreateParser(&ParserConf{}).Parse(&buf, 0)
	require.Nil(t, err)
	batch, err := it.NextBatch()
	require.Nil(t, err)
	require.Len(t, batch, 2)
	l, err := ParseNeighbours(batch[1], "neighbours")
	require.Nil(t, err)
	require.Equal(t, 5, batch[1].Row)
	require.Equal(t, []uint64{99, 87}, l)

	buf.Reset()
	require.Nil(t, WriteValues(&buf, 80, []rat.Value{rat.StringValue("say \"hi\""), rat.StringValue("x")}))
	it, err = CreateParser(&ParserConf{}).Parse(&buf, 0)
	require.Nil(t, err)
	batch, err = it.NextBatch()
	require.Nil(t, err)
	require.Len(t, batch, 2)
	v, err := ParseValue(batch[0], "value", rat.Field{Name: "StringField", Type: rat.FieldString})
	require.Nil(t, err)
	require.Equal(t, 80, batch[0].Row)
	require.Equal(t, rat.StringValue("say \"hi\""), v)
}

func TestJSONLIntegersAreExact(t *testing.T) {
	it, err := CreateParser(&ParserConf{}).Parse(strings.NewReader(`{"value":3.5}
{"value":9007199254740993}
{"value":1e3}
`), 0)
	require.Nil(t, err)
	batch, err := it.NextBatch()
	require.Nil(t, err)
	require.Len(t, batch, 3)
	field := rat.Field{Name: "IntField", Type: rat.FieldInt}
	_, err = ParseValue(batch[0], "value", field)
	require.NotNil(t, err)
	v, err := ParseValue(batch[1], "value", field)
	require.Nil(t, err)
	require.Equal(t, rat.IntValue(9007199254740993), v)
	_, err = ParseValue(batch[2], "value", field)
	require.NotNil(t, err)
}

func TestJSONLNonFiniteFloats(t *testing.T) {
	var buf bytes.Buffer
	values := []rat.Value{rat.FloatValue(math.NaN()), rat.FloatValue(math.Inf(1)), rat.FloatValue(math.Inf(-1)), rat.FloatValue(2.5)}
	require.Nil(t, WriteValues(&buf, 0, values))
	require.Equal(t, "{\"row\":0,\"value\":\"NaN\"}\n{\"row\":1,\"value\":\"+Inf\"}\n{\"row\":2,\"value\":\"-Inf\"}\n{\"row\":3,\"value\":2.5}\n", buf.String())

	it, err := CreateParser(&ParserConf{}).Parse(&buf, 0)
	require.Nil(t, err)
	batch, err := it.NextBatch()
	require.Nil(t, err)
	require.Len(t, batch, 4)
	field := rat.Field{Name: "FloatField", Type: rat.FieldFloat}
	v, err := ParseValue(batch[0], "value", field)
	require.Nil(t, err)
	require.True(t, math.IsNaN(v.Float))
	v, err = ParseValue(batch[1], "value", field)
	require.Nil(t, err)
	require.True(t, math.IsInf(v.Float, 1))
	v, err = ParseValue(batch[2], "value", field)
	require.Nil(t, err)
	require.True(t, math.IsInf(v.Float, -1))
	v, err = ParseValue(batch[3], "value", field)
	require.Nil(t, err)
	require.Equal(t, rat.FloatValue(2.5), v)

	// only non-finite values may be written as strings
	it, err = CreateParser(&ParserConf{}).Parse(strings.NewReader(`{"value":"2.5"}`), 0)
	require.Nil(t, err)
	batch, err = it.NextBatch()
	require.Nil(t, err)
	_, err = ParseValue(batch[0], "value", field)
	require.NotNil(t, err)
}
