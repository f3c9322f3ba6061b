package testing

import (
	"context"

	"github.com/go-sif/rat"
	"github.com/go-sif/rat/accumulators"
	"github.com/go-sif/rat/neighbours"
	"github.com/go-sif/rat/table"
	"github.com/go-sif/rat/tiling"
)

// MemorySource is a single-band, in-memory neighbours.Source
type MemorySource struct {
	Raster    *tiling.Memory
	Table     *table.Table
	NoDataVal int64
	HasNoData bool
}

// AttributeTable returns the source's table, whatever the band
func (s *MemorySource) AttributeTable(band int) (rat.Table, error) {
	return s.Table, nil
}

// NoData returns the source's nodata value
func (s *MemorySource) NoData(band int) (int64, bool, error) {
	return s.NoDataVal, s.HasNoData, nil
}

// TileMap divides the raster into Tiles
func (s *MemorySource) TileMap(band int, tileSize int, fill int64) (rat.TileMap, error) {
	return tiling.NewTileMap(s.Raster, tiling.Options{TileSize: tileSize, Fill: fill})
}

// FlushAttributeTable does nothing, since the table is never persisted
func (s *MemorySource) FlushAttributeTable(band int) error {
	return nil
}

// NewMemorySource creates a MemorySource from row-major segment IDs, with
// nodata as background. The table has numRows rows, or enough rows for the
// largest segment ID if numRows is too small, and a computed Histogram.
func NewMemorySource(rows [][]int64, nodata int64, numRows int) (*MemorySource, error) {
	raster, err := tiling.MemoryFromRows(rows)
	if err != nil {
		return nil, err
	}
	tm, err := tiling.NewTileMap(raster, tiling.Options{Fill: nodata})
	if err != nil {
		return nil, err
	}
	hist := accumulators.Histogrammer(nodata)().(*accumulators.Histogram)
	for tm.HasNext() {
		tile, err := tm.Next().Load()
		if err != nil {
			return nil, err
		}
		if err := hist.AddArray(tile); err != nil {
			return nil, err
		}
	}
	tbl := table.New(numRows)
	if err := hist.WriteTo(tbl); err != nil {
		return nil, err
	}
	return &MemorySource{Raster: raster, Table: tbl, NoDataVal: nodata, HasNoData: true}, nil
}

// LocalBuild finds the neighbours of the segments in an in-memory raster,
// returning the resulting table
func LocalBuild(ctx context.Context, rows [][]int64, nodata int64, opts neighbours.BuildOptions) (result *table.Table, err error) {
	// handle panics
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = anErr
			} else {
				panic(r)
			}
		}
	}()

	src, err := NewMemorySource(rows, nodata, 0)
	if err != nil {
		return nil, err
	}
	if _, err := neighbours.Build(ctx, src, opts); err != nil {
		return nil, err
	}
	return src.Table, nil
}
