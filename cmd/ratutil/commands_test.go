package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sif/rat/dataset"
	"github.com/go-sif/rat/internal/config"
	"github.com/go-sif/rat/neighbours"
	"github.com/stretchr/testify/require"
)

func makeTest(t *testing.T) (*config.Config, string) {
	c := config.Default()
	path := filepath.Join(t.TempDir(), "testseg")
	require.Nil(t, makeTestCommand(c, path, nil, &bytes.Buffer{}))
	return c, path
}

func run(t *testing.T, c *config.Config, cmd command, path string, args ...string) string {
	var out bytes.Buffer
	require.Nil(t, cmd(c, path, args, &out))
	return out.String()
}

func TestMakeTestHistogram(t *testing.T) {
	c, path := makeTest(t)
	out := run(t, c, getFieldCommand, path, "--name", "Histogram", "--start", "10", "--count", "3")
	require.Equal(t, "{\"row\":10,\"value\":100}\n{\"row\":11,\"value\":100}\n{\"row\":12,\"value\":0}\n", out)

	out = run(t, c, getFieldCommand, path, "--name", "Histogram")
	require.Equal(t, 100, strings.Count(out, "\n"))

	ds, err := dataset.Open(path, true)
	require.Nil(t, err)
	defer ds.Close()
	nodata, ok, err := ds.NoData(1)
	require.Nil(t, err)
	require.True(t, ok)
	require.EqualValues(t, 90, nodata)
	lt, err := ds.LayerType(1)
	require.Nil(t, err)
	require.Equal(t, dataset.LayerThematic, lt)
}

func TestInfo(t *testing.T) {
	c, path := makeTest(t)
	out := run(t, c, infoCommand, path)
	require.Contains(t, out, "20 x 20")
	require.Contains(t, out, "uint8, thematic, nodata 90")
	require.Contains(t, out, "Histogram")
	require.Contains(t, out, "PixelCount")
	require.Regexp(t, `Blocks written:\s+1 of 1`, out)
}

func TestNeighboursRoundTrip(t *testing.T) {
	c, path := makeTest(t)
	ds, err := dataset.Open(path, false)
	require.Nil(t, err)
	_, err = neighbours.Build(context.Background(), ds, neighbours.BuildOptions{Band: 1, TileSize: 7, FourConnected: true})
	require.Nil(t, err)
	require.Nil(t, ds.Close())

	out := run(t, c, getNeighboursCommand, path, "--start", "0", "--count", "12")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 12)
	require.Equal(t, `{"row":0,"neighbours":[1,10]}`, lines[0])
	require.Equal(t, `{"row":1,"neighbours":[0,11]}`, lines[1])
	require.Equal(t, `{"row":2,"neighbours":[]}`, lines[2])
	require.Equal(t, `{"row":10,"neighbours":[0,11]}`, lines[10])
	require.Equal(t, `{"row":11,"neighbours":[1,10]}`, lines[11])

	// rewrite two rows from a JSON lines file, one of them by position
	input := filepath.Join(t.TempDir(), "neighbours.jsonl")
	require.Nil(t, os.WriteFile(input, []byte("{\"row\":2,\"neighbours\":[3]}\n{\"neighbours\":[2,4]}\n"), 0644))
	run(t, c, setNeighboursCommand, path, "--jsonl", input)
	out = run(t, c, getNeighboursCommand, path, "--start", "2", "--count", "2")
	require.Equal(t, "{\"row\":2,\"neighbours\":[3]}\n{\"row\":3,\"neighbours\":[2,4]}\n", out)
}

func TestFieldCommands(t *testing.T) {
	c, path := makeTest(t)
	run(t, c, addFieldCommand, path, "--name", "Class", "--type", "string", "--default", "none")
	run(t, c, addFieldCommand, path, "--name", "Area", "--type", "float")
	run(t, c, setFieldCommand, path, "--name", "Class", "--start", "10", "water", "forest")
	out := run(t, c, getFieldCommand, path, "--name", "Class", "--start", "9", "--count", "3")
	require.Equal(t, "{\"row\":9,\"value\":\"none\"}\n{\"row\":10,\"value\":\"water\"}\n{\"row\":11,\"value\":\"forest\"}\n", out)

	input := filepath.Join(t.TempDir(), "area.jsonl")
	require.Nil(t, os.WriteFile(input, []byte("{\"row\":1,\"value\":2.5}\n"), 0644))
	run(t, c, setFieldCommand, path, "--name", "Area", "--jsonl", input)
	out = run(t, c, getFieldCommand, path, "--name", "Area", "--start", "0", "--count", "2")
	require.Equal(t, "{\"row\":0,\"value\":0}\n{\"row\":1,\"value\":2.5}\n", out)

	out = run(t, c, addRowsCommand, path, "--n", "5")
	require.Equal(t, "105\n", out)
	out = run(t, c, getFieldCommand, path, "--name", "Class", "--start", "104")
	require.Equal(t, "{\"row\":104,\"value\":\"none\"}\n", out)
}

func TestFieldCommandErrors(t *testing.T) {
	c, path := makeTest(t)
	var out bytes.Buffer
	require.NotNil(t, addFieldCommand(c, path, []string{"--name", "X", "--type", "complex"}, &out))
	require.NotNil(t, getFieldCommand(c, path, []string{"--name", "Missing"}, &out))
	require.NotNil(t, setFieldCommand(c, path, []string{"--name", "Histogram", "--start", "0", "abc"}, &out))
	require.NotNil(t, getFieldCommand(c, path, []string{"--name", "Histogram", "--start", "99", "--count", "2"}, &out))
}

func TestCalcHistogramRecounts(t *testing.T) {
	c, path := makeTest(t)
	run(t, c, setFieldCommand, path, "--name", "Histogram", "--start", "0", "7", "7")
	run(t, c, calcHistogramCommand, path, "--tilesize", "3")
	out := run(t, c, getFieldCommand, path, "--name", "Histogram", "--start", "0", "--count", "2")
	require.Equal(t, "{\"row\":0,\"value\":100}\n{\"row\":1,\"value\":100}\n", out)
}
