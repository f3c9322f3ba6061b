package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
	"github.com/go-sif/rat/neighbours"
	"github.com/stretchr/testify/require"
)

func createTestDataset(t *testing.T, codec string) (*Dataset, string) {
	dir := filepath.Join(t.TempDir(), "test.rat")
	ds, err := Create(dir, Options{
		Width:     20,
		Height:    20,
		NumBands:  1,
		DataType:  Uint8,
		BlockSize: 8,
		Codec:     codec,
	})
	require.Nil(t, err)
	buf := make([]int64, 400)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			buf[y*20+x] = int64((y/10)*10 + x/10)
		}
	}
	require.Nil(t, ds.WriteWindow(1, 0, 0, 20, 20, buf))
	require.Nil(t, ds.SetNoData(1, 90))
	return ds, dir
}

func TestBlocksRoundTrip(t *testing.T) {
	for _, codec := range []string{CodecLZ4, CodecZstd} {
		ds, dir := createTestDataset(t, codec)
		require.Nil(t, ds.WriteWindow(1, 6, 6, 3, 2, []int64{7, 7, 7, 8, 8, 8}))
		require.Nil(t, ds.Close())

		ds, err := Open(dir, true)
		require.Nil(t, err)
		require.Equal(t, codec, ds.Codec())
		buf := make([]int64, 16)
		require.Nil(t, ds.ReadWindow(1, 5, 5, 4, 4, buf))
		require.Equal(t, []int64{
			0, 0, 0, 0,
			0, 7, 7, 7,
			0, 8, 8, 8,
			0, 0, 0, 0,
		}, buf)
		require.Nil(t, ds.ReadWindow(1, 9, 9, 2, 2, buf))
		require.Equal(t, []int64{0, 1, 10, 11}, buf[:4])

		_, ok := ds.WriteWindow(1, 0, 0, 1, 1, []int64{1}).(errors.ReadOnlyError)
		require.True(t, ok)
		require.Nil(t, ds.Close())
	}
}

func TestReopenForUpdate(t *testing.T) {
	ds, dir := createTestDataset(t, CodecLZ4)
	require.Nil(t, ds.Close())

	ds, err := Open(dir, false)
	require.Nil(t, err)
	require.Nil(t, ds.WriteWindow(1, 19, 19, 1, 1, []int64{5}))
	require.Nil(t, ds.Close())

	ds, err = Open(dir, true)
	require.Nil(t, err)
	defer ds.Close()
	buf := make([]int64, 4)
	require.Nil(t, ds.ReadWindow(1, 18, 18, 2, 2, buf))
	require.Equal(t, []int64{11, 11, 11, 5}, buf)
}

func TestUnwrittenBlocksReadAsNoData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "empty.rat")
	ds, err := Create(dir, Options{Width: 10, Height: 10, NumBands: 2, DataType: Int16, BlockSize: 4})
	require.Nil(t, err)
	defer ds.Close()
	buf := make([]int64, 4)
	require.Nil(t, ds.ReadWindow(2, 3, 3, 2, 2, buf))
	require.Equal(t, []int64{0, 0, 0, 0}, buf)
	require.Nil(t, ds.SetNoData(2, -1))
	require.Nil(t, ds.ReadWindow(2, 3, 3, 2, 2, buf))
	require.Equal(t, []int64{-1, -1, -1, -1}, buf)
	require.Nil(t, ds.ReadWindow(1, 3, 3, 2, 2, buf))
	require.Equal(t, []int64{0, 0, 0, 0}, buf)
}

func TestWindowValidation(t *testing.T) {
	ds, _ := createTestDataset(t, CodecLZ4)
	defer ds.Close()
	buf := make([]int64, 4)
	require.NotNil(t, ds.ReadWindow(1, 19, 19, 2, 2, buf))
	require.NotNil(t, ds.ReadWindow(1, 0, 0, 3, 3, buf))
	require.NotNil(t, ds.WriteWindow(1, 0, 0, 1, 1, []int64{256}))
	_, ok := ds.ReadWindow(2, 0, 0, 1, 1, buf).(errors.NoSuchBandError)
	require.True(t, ok)
}

func TestMetadata(t *testing.T) {
	ds, dir := createTestDataset(t, CodecLZ4)
	id := ds.ID()
	info := DefaultSpatialInfo()
	info.WKT = "LOCAL_CS[\"test\"]"
	info.TLX = 100
	info.TLY = 200
	require.Nil(t, ds.SetSpatialInfo(info))
	require.Nil(t, ds.SetLayerType(1, LayerContinuous))
	require.NotNil(t, ds.SetLayerType(1, "other"))
	require.Nil(t, ds.SetDescription(1, "segments"))
	require.NotNil(t, ds.SetNoData(1, 300))
	require.Nil(t, ds.Close())

	_, err := Create(dir, Options{Width: 1, Height: 1, NumBands: 1, DataType: Uint8})
	require.NotNil(t, err)

	ds, err = Open(dir, true)
	require.Nil(t, err)
	defer ds.Close()
	require.Equal(t, id, ds.ID())
	require.Equal(t, 1, ds.NumBands())
	got := ds.SpatialInfo()
	require.Equal(t, "LOCAL_CS[\"test\"]", got.WKT)
	require.Equal(t, 100.0, got.TLX)
	require.Equal(t, 200.0, got.TLY)
	require.Equal(t, 1.0, got.XRes)
	require.Equal(t, -1.0, got.YRes)
	require.Equal(t, 20, got.XSize)
	require.Equal(t, 20, got.YSize)
	dt, err := ds.BandDataType(1)
	require.Nil(t, err)
	require.Equal(t, Uint8, dt)
	nodata, ok, err := ds.NoData(1)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, int64(90), nodata)
	lt, err := ds.LayerType(1)
	require.Nil(t, err)
	require.Equal(t, LayerContinuous, lt)
	desc, err := ds.Description(1)
	require.Nil(t, err)
	require.Equal(t, "segments", desc)
	_, ok = ds.SetNoData(1, 1).(errors.ReadOnlyError)
	require.True(t, ok)
}

func TestClearNoData(t *testing.T) {
	ds, dir := createTestDataset(t, CodecLZ4)
	require.Nil(t, ds.ClearNoData(1))
	require.Nil(t, ds.Close())
	ds, err := Open(dir, true)
	require.Nil(t, err)
	defer ds.Close()
	_, ok, err := ds.NoData(1)
	require.Nil(t, err)
	require.False(t, ok)
}

func TestFailedMetadataUpdateChangesNothing(t *testing.T) {
	ds, dir := createTestDataset(t, CodecLZ4)
	require.Nil(t, ds.SetDescription(1, "segments"))
	// meta.toml.tmp cannot be created while a directory of that name exists
	require.Nil(t, os.MkdirAll(filepath.Join(dir, metadataFile+".tmp", "blocker"), 0755))

	require.NotNil(t, ds.SetNoData(1, 5))
	require.NotNil(t, ds.ClearNoData(1))
	require.NotNil(t, ds.SetDescription(1, "other"))
	require.NotNil(t, ds.SetLayerType(1, LayerContinuous))
	info := DefaultSpatialInfo()
	info.TLX = 50
	require.NotNil(t, ds.SetSpatialInfo(info))

	nodata, ok, err := ds.NoData(1)
	require.Nil(t, err)
	require.True(t, ok)
	require.EqualValues(t, 90, nodata)
	desc, err := ds.Description(1)
	require.Nil(t, err)
	require.Equal(t, "segments", desc)
	lt, err := ds.LayerType(1)
	require.Nil(t, err)
	require.Equal(t, LayerThematic, lt)
	require.EqualValues(t, 0, ds.SpatialInfo().TLX)

	require.Nil(t, os.RemoveAll(filepath.Join(dir, metadataFile+".tmp")))
	require.Nil(t, ds.Close())
	ds, err = Open(dir, true)
	require.Nil(t, err)
	defer ds.Close()
	nodata, ok, err = ds.NoData(1)
	require.Nil(t, err)
	require.True(t, ok)
	require.EqualValues(t, 90, nodata)
}

func TestNoDataChangeEvictsOnlyUnwrittenBlocks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sparse.rat")
	ds, err := Create(dir, Options{Width: 20, Height: 20, NumBands: 1, DataType: Uint8, BlockSize: 8})
	require.Nil(t, err)
	defer ds.Close()
	require.Nil(t, ds.SetNoData(1, 90))
	require.Nil(t, ds.WriteWindow(1, 0, 0, 1, 1, []int64{3}))

	written, total, err := ds.BlocksWritten(1)
	require.Nil(t, err)
	require.Equal(t, 1, written)
	require.Equal(t, 9, total)

	buf := make([]int64, 2)
	require.Nil(t, ds.ReadWindow(1, 19, 19, 1, 1, buf))
	require.EqualValues(t, 90, buf[0])
	require.Equal(t, 2, ds.CachedBlocks())

	require.Nil(t, ds.SetNoData(1, 5))
	require.Equal(t, 1, ds.CachedBlocks())
	require.Nil(t, ds.ReadWindow(1, 19, 19, 1, 1, buf))
	require.EqualValues(t, 5, buf[0])
	// the written block keeps the nodata value it was written with
	require.Nil(t, ds.ReadWindow(1, 0, 0, 2, 1, buf))
	require.Equal(t, []int64{3, 90}, buf)

	require.Nil(t, ds.ClearNoData(1))
	require.Nil(t, ds.ReadWindow(1, 19, 19, 1, 1, buf))
	require.EqualValues(t, 0, buf[0])
}

func TestCacheBlocks(t *testing.T) {
	ds, _ := createTestDataset(t, CodecZstd)
	defer ds.Close()
	written, total, err := ds.BlocksWritten(1)
	require.Nil(t, err)
	require.Equal(t, 9, written)
	require.Equal(t, 9, total)
	_, _, err = ds.BlocksWritten(2)
	require.NotNil(t, err)

	buf := make([]int64, 400)
	require.Nil(t, ds.ReadWindow(1, 0, 0, 20, 20, buf))
	require.Equal(t, 9, ds.CachedBlocks())
	require.Nil(t, ds.SetCacheBlocks(2))
	require.Equal(t, 2, ds.CachedBlocks())
	require.NotNil(t, ds.SetCacheBlocks(0))
	require.Nil(t, ds.ReadWindow(1, 0, 0, 20, 20, buf))
	require.EqualValues(t, 11, buf[399])
	require.Equal(t, 2, ds.CachedBlocks())
}

func TestAttributeTableRoundTrip(t *testing.T) {
	ds, dir := createTestDataset(t, CodecLZ4)
	tbl, err := ds.AttributeTable(1)
	require.Nil(t, err)
	require.Equal(t, 0, tbl.Size())
	require.Nil(t, tbl.AddRows(100))
	hist, err := tbl.AddField(rat.HistogramFieldName, rat.HistogramUsage, rat.IntValue(0))
	require.Nil(t, err)
	flag, err := tbl.AddField("BoolField", "Generic", rat.BoolValue(false))
	require.Nil(t, err)
	score, err := tbl.AddField("FloatField", "Generic", rat.FloatValue(3.14))
	require.Nil(t, err)
	name, err := tbl.AddField("StringField", "Name", rat.StringValue("hello"))
	require.Nil(t, err)
	require.Nil(t, tbl.SetInts(hist, 0, []int64{100, 100}))
	require.Nil(t, tbl.SetBools(flag, 80, []bool{true}))
	require.Nil(t, tbl.SetStrings(name, 99, []string{"last"}))
	require.Nil(t, tbl.SetNeighbours(5, [][]uint64{{99, 87, 65, 27}, {44, 21, 98}}))
	require.Nil(t, ds.Close())
	_, err = os.Stat(filepath.Join(dir, "band_1.rat.arrow"))
	require.Nil(t, err)

	ds, err = Open(dir, true)
	require.Nil(t, err)
	defer ds.Close()
	tbl, err = ds.AttributeTable(1)
	require.Nil(t, err)
	require.Equal(t, 100, tbl.Size())
	require.Equal(t, 4, tbl.NumFields())

	hist, err = tbl.FieldByName(rat.HistogramFieldName)
	require.Nil(t, err)
	require.Equal(t, rat.HistogramUsage, hist.Usage)
	counts, err := tbl.GetInts(hist, 0, 3)
	require.Nil(t, err)
	require.Equal(t, []int64{100, 100, 0}, counts)

	flag, err = tbl.FieldByName("BoolField")
	require.Nil(t, err)
	flags, err := tbl.GetBools(flag, 79, 2)
	require.Nil(t, err)
	require.Equal(t, []bool{false, true}, flags)

	score, err = tbl.FieldByName("FloatField")
	require.Nil(t, err)
	require.Equal(t, rat.FieldFloat, score.Type)
	scores, err := tbl.GetFloats(score, 0, 1)
	require.Nil(t, err)
	require.Equal(t, []float64{3.14}, scores)

	name, err = tbl.FieldByName("StringField")
	require.Nil(t, err)
	names, err := tbl.GetStrings(name, 98, 2)
	require.Nil(t, err)
	require.Equal(t, []string{"hello", "last"}, names)

	lists, err := tbl.GetNeighbours(4, 3)
	require.Nil(t, err)
	require.Equal(t, [][]uint64{{}, {99, 87, 65, 27}, {44, 21, 98}}, lists)

	// new rows keep using the stored defaults
	require.Nil(t, tbl.AddRows(1))
	names, err = tbl.GetStrings(name, 100, 1)
	require.Nil(t, err)
	require.Equal(t, []string{"hello"}, names)
}

func TestBuildNeighboursFromDataset(t *testing.T) {
	ds, dir := createTestDataset(t, CodecZstd)
	tbl, err := ds.AttributeTable(1)
	require.Nil(t, err)
	require.Nil(t, tbl.AddRows(100))
	hist, err := tbl.AddField(rat.HistogramFieldName, rat.HistogramUsage, rat.IntValue(0))
	require.Nil(t, err)
	counts := make([]int64, 100)
	counts[0], counts[1], counts[10], counts[11] = 100, 100, 100, 100
	require.Nil(t, tbl.SetInts(hist, 0, counts))

	st, err := neighbours.Build(context.Background(), ds, neighbours.BuildOptions{Band: 1, TileSize: 6, FourConnected: true, Workers: 2})
	require.Nil(t, err)
	require.Equal(t, int64(16), st.GetNumTilesProcessed())
	require.Nil(t, ds.Close())

	ds, err = Open(dir, true)
	require.Nil(t, err)
	defer ds.Close()
	tbl, err = ds.AttributeTable(1)
	require.Nil(t, err)
	lists, err := tbl.GetNeighbours(0, 100)
	require.Nil(t, err)
	for id, l := range lists {
		sort.Slice(l, func(i, j int) bool { return l[i] < l[j] })
		switch id {
		case 0:
			require.Equal(t, []uint64{1, 10}, l)
		case 1, 10:
			require.Equal(t, []uint64{0, 11}, l)
		case 11:
			require.Equal(t, []uint64{1, 10}, l)
		default:
			require.Len(t, l, 0)
		}
	}
}

func TestCorruptBlockIsDetected(t *testing.T) {
	ds, dir := createTestDataset(t, CodecLZ4)
	require.Nil(t, ds.Close())

	// flip a byte of the first block, just after the file magic
	f, err := os.OpenFile(filepath.Join(dir, "band_1.blk"), os.O_RDWR, 0)
	require.Nil(t, err)
	b := make([]byte, 1)
	_, err = f.ReadAt(b, int64(len(fileMagic)+4))
	require.Nil(t, err)
	b[0] ^= 0xff
	_, err = f.WriteAt(b, int64(len(fileMagic)+4))
	require.Nil(t, err)
	require.Nil(t, f.Close())

	ds, err = Open(dir, true)
	require.Nil(t, err)
	defer ds.Close()
	buf := make([]int64, 400)
	err = ds.ReadWindow(1, 0, 0, 20, 20, buf)
	require.NotNil(t, err)
	_, ok := err.(errors.ChecksumError)
	require.True(t, ok)
}

func TestUncleanBlockFile(t *testing.T) {
	dir := t.TempDir()
	bf, err := createBlockFile(filepath.Join(dir, "band_1.blk"), 1)
	require.Nil(t, err)
	require.Nil(t, bf.write(blockKey{X: 0, Y: 0}, []byte("data")))
	// skip writing the index
	require.Nil(t, bf.f.Close())
	_, err = openBlockFile(filepath.Join(dir, "band_1.blk"), 1, true)
	require.NotNil(t, err)
}

func TestDataTypes(t *testing.T) {
	for _, dt := range []DataType{Uint8, Uint16, Uint32, Uint64, Int16, Int32, Int64} {
		parsed, err := ParseDataType(string(dt))
		require.Nil(t, err)
		require.Equal(t, dt, parsed)
		pixels := []int64{0, 1, 127}
		if dt == Int16 || dt == Int32 || dt == Int64 {
			pixels = append(pixels, -1, -128)
		}
		buf := make([]byte, len(pixels)*dt.Size())
		dt.encode(buf, pixels)
		decoded := make([]int64, len(pixels))
		dt.decode(decoded, buf)
		require.Equal(t, pixels, decoded, "data type %s", dt)
	}
	_, err := ParseDataType("float32")
	require.NotNil(t, err)
	require.False(t, Uint16.Contains(-1))
	require.False(t, Int16.Contains(40000))
	require.True(t, Uint32.Contains(4000000000))
}
