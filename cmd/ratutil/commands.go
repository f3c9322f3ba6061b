package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/go-sif/rat"
	"github.com/go-sif/rat/accumulators"
	"github.com/go-sif/rat/dataset"
	"github.com/go-sif/rat/internal/config"
	iutil "github.com/go-sif/rat/internal/util"
	"github.com/go-sif/rat/jsonl"
	"github.com/go-sif/rat/logging"
)

// tableFlags are shared by the commands which work on one band's attribute table
type tableFlags struct {
	fs    *flag.FlagSet
	band  *int
	start *int
	count *int
}

func newTableFlags(name string) *tableFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &tableFlags{
		fs:    fs,
		band:  fs.Int("band", 1, "band whose attribute table is used"),
		start: fs.Int("start", 0, "first row"),
		count: fs.Int("count", -1, "number of rows, -1 for every row from start"),
	}
}

// rows resolves --start and --count against a table of size rows
func (tf *tableFlags) rows(size int) (int, int) {
	n := *tf.count
	if n < 0 {
		n = size - *tf.start
		if n < 0 {
			n = 0
		}
	}
	return *tf.start, n
}

// openDataset opens a dataset with the configured block cache size
func openDataset(c *config.Config, path string, readOnly bool) (*dataset.Dataset, error) {
	ds, err := dataset.Open(path, readOnly)
	if err != nil {
		return nil, err
	}
	if n := c.Dataset.CacheBlocks; n > 0 {
		if err := ds.SetCacheBlocks(n); err != nil {
			ds.Close()
			return nil, err
		}
	}
	return ds, nil
}

// withTable opens a dataset, passes a band's attribute table to fn and closes the
// dataset, which writes the table if the dataset is not readOnly
func withTable(c *config.Config, path string, band int, readOnly bool, fn func(ds *dataset.Dataset, tbl rat.Table) error) (err error) {
	ds, err := openDataset(c, path, readOnly)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ds.Close(); err == nil {
			err = cerr
		}
	}()
	tbl, err := ds.AttributeTable(band)
	if err != nil {
		return err
	}
	return fn(ds, tbl)
}

func openJSONL(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

func dirSize(path string) uint64 {
	var size uint64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += uint64(info.Size())
		}
		return nil
	})
	return size
}

func infoCommand(c *config.Config, path string, args []string, out io.Writer) error {
	ds, err := openDataset(c, path, true)
	if err != nil {
		return err
	}
	defer ds.Close()
	info := ds.SpatialInfo()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", ds.ID())
	fmt.Fprintf(w, "Size:\t%d x %d (%s on disk)\n", info.XSize, info.YSize, humanize.Bytes(dirSize(path)))
	fmt.Fprintf(w, "Blocks:\t%d x %d, %s\n", ds.BlockSize(), ds.BlockSize(), ds.Codec())
	fmt.Fprintf(w, "Top left:\t%g, %g\n", info.TLX, info.TLY)
	fmt.Fprintf(w, "Resolution:\t%g, %g\n", info.XRes, info.YRes)
	fmt.Fprintf(w, "Rotation:\t%g, %g\n", info.XRot, info.YRot)
	fmt.Fprintf(w, "WKT:\t%s\n", info.WKT)
	fmt.Fprintf(w, "Bands:\t%d\n", ds.NumBands())
	for b := 1; b <= ds.NumBands(); b++ {
		dt, _ := ds.BandDataType(b)
		lt, _ := ds.LayerType(b)
		desc, _ := ds.Description(b)
		nodata := "none"
		if v, ok, _ := ds.NoData(b); ok {
			nodata = fmt.Sprint(v)
		}
		fmt.Fprintf(w, "Band %d:\t%s, %s, nodata %s\t%s\n", b, dt, lt, nodata, desc)
		written, total, err := ds.BlocksWritten(b)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  Blocks written:\t%d of %d\n", written, total)
		tbl, err := ds.AttributeTable(b)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  Rows:\t%s\n", humanize.Comma(int64(tbl.Size())))
		for _, f := range tbl.Fields() {
			fmt.Fprintf(w, "  Field %d:\t%s\t%s\t%s\n", f.ColNum, f.Name, f.Type, f.Usage)
		}
	}
	return w.Flush()
}

func addFieldCommand(c *config.Config, path string, args []string, out io.Writer) error {
	tf := newTableFlags("add-field")
	name := tf.fs.String("name", "", "field name")
	typeName := tf.fs.String("type", "", "bool, int, float or string")
	usage := tf.fs.String("usage", "Generic", "field usage")
	def := tf.fs.String("default", "", "value of existing and new rows")
	if err := tf.fs.Parse(args); err != nil {
		return err
	}
	ft, err := rat.ParseFieldType(*typeName)
	if err != nil {
		return err
	}
	var value rat.Value
	if *def == "" {
		value = rat.Value{Type: ft}
	} else if value, err = rat.ParseValue(ft, *def); err != nil {
		return err
	}
	return withTable(c, path, *tf.band, false, func(ds *dataset.Dataset, tbl rat.Table) error {
		f, err := tbl.AddField(*name, *usage, value)
		if err != nil {
			return err
		}
		logging.Infof("Added %s field %s as column %d", f.Type, f.Name, f.ColNum)
		return nil
	})
}

func addRowsCommand(c *config.Config, path string, args []string, out io.Writer) error {
	tf := newTableFlags("add-rows")
	n := tf.fs.Int("n", 0, "number of rows to add")
	if err := tf.fs.Parse(args); err != nil {
		return err
	}
	return withTable(c, path, *tf.band, false, func(ds *dataset.Dataset, tbl rat.Table) error {
		if err := tbl.AddRows(*n); err != nil {
			return err
		}
		fmt.Fprintln(out, tbl.Size())
		return nil
	})
}

func getFieldCommand(c *config.Config, path string, args []string, out io.Writer) error {
	tf := newTableFlags("get-field")
	name := tf.fs.String("name", "", "field name")
	if err := tf.fs.Parse(args); err != nil {
		return err
	}
	return withTable(c, path, *tf.band, true, func(ds *dataset.Dataset, tbl rat.Table) error {
		f, err := tbl.FieldByName(*name)
		if err != nil {
			return err
		}
		start, n := tf.rows(tbl.Size())
		values, err := tbl.GetValues(f, start, n)
		if err != nil {
			return err
		}
		return jsonl.WriteValues(out, start, values)
	})
}

func setFieldCommand(c *config.Config, path string, args []string, out io.Writer) error {
	tf := newTableFlags("set-field")
	name := tf.fs.String("name", "", "field name")
	input := tf.fs.String("jsonl", "", "JSON lines of {\"row\":R,\"value\":V}")
	if err := tf.fs.Parse(args); err != nil {
		return err
	}
	return withTable(c, path, *tf.band, false, func(ds *dataset.Dataset, tbl rat.Table) error {
		f, err := tbl.FieldByName(*name)
		if err != nil {
			return err
		}
		if *input == "" {
			values := make([]rat.Value, tf.fs.NArg())
			for i, s := range tf.fs.Args() {
				if values[i], err = rat.ParseValue(f.Type, s); err != nil {
					return err
				}
			}
			return setValues(tbl, f, *tf.start, values)
		}
		r, err := openJSONL(*input)
		if err != nil {
			return err
		}
		defer r.Close()
		it, err := jsonl.CreateParser(&jsonl.ParserConf{}).Parse(r, *tf.start)
		if err != nil {
			return err
		}
		for it.HasNextBatch() {
			batch, err := it.NextBatch()
			if err != nil {
				return err
			}
			for _, line := range batch {
				v, err := jsonl.ParseValue(line, "value", f)
				if err != nil {
					return err
				}
				if err := setValues(tbl, f, line.Row, []rat.Value{v}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// setValues writes values of any type through the typed setters of a Table
func setValues(tbl rat.Table, f rat.Field, start int, values []rat.Value) error {
	switch f.Type {
	case rat.FieldBool:
		vals := make([]bool, len(values))
		for i, v := range values {
			vals[i] = v.Bool
		}
		return tbl.SetBools(f, start, vals)
	case rat.FieldInt:
		vals := make([]int64, len(values))
		for i, v := range values {
			vals[i] = v.Int
		}
		return tbl.SetInts(f, start, vals)
	case rat.FieldFloat:
		vals := make([]float64, len(values))
		for i, v := range values {
			vals[i] = v.Float
		}
		return tbl.SetFloats(f, start, vals)
	default:
		vals := make([]string, len(values))
		for i, v := range values {
			vals[i] = v.String
		}
		return tbl.SetStrings(f, start, vals)
	}
}

func getNeighboursCommand(c *config.Config, path string, args []string, out io.Writer) error {
	tf := newTableFlags("get-neighbours")
	if err := tf.fs.Parse(args); err != nil {
		return err
	}
	return withTable(c, path, *tf.band, true, func(ds *dataset.Dataset, tbl rat.Table) error {
		start, n := tf.rows(tbl.Size())
		lists, err := tbl.GetNeighbours(start, n)
		if err != nil {
			return err
		}
		return jsonl.WriteNeighbours(out, start, lists)
	})
}

func setNeighboursCommand(c *config.Config, path string, args []string, out io.Writer) error {
	tf := newTableFlags("set-neighbours")
	input := tf.fs.String("jsonl", "-", "JSON lines of {\"row\":R,\"neighbours\":[...]}")
	if err := tf.fs.Parse(args); err != nil {
		return err
	}
	r, err := openJSONL(*input)
	if err != nil {
		return err
	}
	defer r.Close()
	return withTable(c, path, *tf.band, false, func(ds *dataset.Dataset, tbl rat.Table) error {
		it, err := jsonl.CreateParser(&jsonl.ParserConf{}).Parse(r, *tf.start)
		if err != nil {
			return err
		}
		written := 0
		for it.HasNextBatch() {
			batch, err := it.NextBatch()
			if err != nil {
				return err
			}
			for _, line := range batch {
				l, err := jsonl.ParseNeighbours(line, "neighbours")
				if err != nil {
					return err
				}
				if err := tbl.SetNeighbours(line.Row, [][]uint64{l}); err != nil {
					return err
				}
				written++
			}
		}
		logging.Infof("Wrote %s neighbour lists", humanize.Comma(int64(written)))
		return nil
	})
}

// calcHistogram counts the pixels of each segment in a band and stores the
// counts in the "Histogram" column of its attribute table
func calcHistogram(ds *dataset.Dataset, tbl rat.Table, band int, tileSize int) error {
	background, ok, err := ds.NoData(band)
	if err != nil {
		return err
	} else if !ok {
		// no pixel can hold this value in any supported type
		background = math.MinInt64
	}
	tm, err := ds.TileMap(band, tileSize, background)
	if err != nil {
		return err
	}
	acc := accumulators.Compose(accumulators.Histogrammer(background), accumulators.Counter(background))()
	for tm.HasNext() {
		loader := tm.Next()
		tile, err := loader.Load()
		if err != nil {
			return err
		}
		if err := iutil.SafeAddArray(acc, tile, loader.ToString()); err != nil {
			return err
		}
	}
	results := acc.(*accumulators.Composed).GetResults()
	hist := results[0].(*accumulators.Histogram)
	if err := hist.WriteTo(tbl); err != nil {
		return err
	}
	logging.Infof("Band %d: counted %s pixels in %s rows", band,
		humanize.Comma(int64(results[1].(*accumulators.Count).GetCount())), humanize.Comma(int64(len(hist.GetCounts()))))
	return nil
}

func calcHistogramCommand(c *config.Config, path string, args []string, out io.Writer) error {
	tf := newTableFlags("calc-histogram")
	tileSize := tf.fs.Int("tilesize", c.Build.TileSize, "width and height of tiles")
	if err := tf.fs.Parse(args); err != nil {
		return err
	}
	return withTable(c, path, *tf.band, false, func(ds *dataset.Dataset, tbl rat.Table) error {
		return calcHistogram(ds, tbl, *tf.band, *tileSize)
	})
}

// makeTestCommand creates a 20x20 dataset of four 10x10 segments, 0, 1, 10
// and 11, with nodata 90 and a 100-row Histogram
func makeTestCommand(c *config.Config, path string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("make-test", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ds, err := dataset.Create(path, dataset.Options{
		Width:       20,
		Height:      20,
		NumBands:    1,
		DataType:    dataset.Uint8,
		LayerType:   dataset.LayerThematic,
		BlockSize:   c.Dataset.BlockSize,
		Codec:       c.Dataset.Codec,
		CacheBlocks: c.Dataset.CacheBlocks,
	})
	if err != nil {
		return err
	}
	err = fillTestDataset(ds)
	if cerr := ds.Close(); err == nil {
		err = cerr
	}
	return err
}

func fillTestDataset(ds *dataset.Dataset) error {
	pixels := make([]int64, 20*20)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			pixels[y*20+x] = int64((y/10)*10 + x/10)
		}
	}
	if err := ds.WriteWindow(1, 0, 0, 20, 20, pixels); err != nil {
		return err
	}
	if err := ds.SetNoData(1, 90); err != nil {
		return err
	}
	tbl, err := ds.AttributeTable(1)
	if err != nil {
		return err
	}
	if err := tbl.AddRows(100); err != nil {
		return err
	}
	return calcHistogram(ds, tbl, 1, 20)
}
