package neighbours

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
	"github.com/go-sif/rat/internal/stats"
	iutil "github.com/go-sif/rat/internal/util"
	"github.com/go-sif/rat/logging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// progressInterval is the number of tiles between progress messages
const progressInterval = 100

// Source is a labelled raster whose bands carry attribute tables
type Source interface {
	AttributeTable(band int) (rat.Table, error)                      // AttributeTable returns the attribute table of a band
	NoData(band int) (int64, bool, error)                            // NoData returns the band's nodata value, and whether one is set
	TileMap(band int, tileSize int, fill int64) (rat.TileMap, error) // TileMap divides a band into Tiles with a 1-pixel margin of fill
	FlushAttributeTable(band int) error                              // FlushAttributeTable persists changes to the band's attribute table
}

// BuildOptions configure a neighbour build
type BuildOptions struct {
	Band          int  // Band is the 1-based index of the label band
	TileSize      int  // TileSize is the width and height of each Tile, 0 for the default
	FourConnected bool // FourConnected ignores diagonal neighbours
	Workers       int  // Workers is the number of tiles processed concurrently
	Shard         int  // Shard selects the tiles whose index modulo NumShards equals Shard
	NumShards     int  // NumShards divides the tiles between separate Accumulate calls, 0 or 1 for all tiles
}

func (opts *BuildOptions) shards() (int, int, error) {
	if opts.NumShards <= 1 {
		if opts.Shard != 0 {
			return 0, 0, fmt.Errorf("Shard %d requested of a build which is not sharded", opts.Shard)
		}
		return 0, 1, nil
	}
	if opts.Shard < 0 || opts.Shard >= opts.NumShards {
		return 0, 0, fmt.Errorf("Shard %d is outside of [0, %d)", opts.Shard, opts.NumShards)
	}
	return opts.Shard, opts.NumShards, nil
}

// ReadHistogram reads the "Histogram" column of a table as pixel counts
func ReadHistogram(tbl rat.Table) ([]uint64, error) {
	field, err := tbl.FieldByName(rat.HistogramFieldName)
	if err != nil {
		return nil, err
	}
	counts, err := tbl.GetInts(field, 0, tbl.Size())
	if err != nil {
		return nil, err
	}
	hist := make([]uint64, len(counts))
	for i, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("Histogram has negative count %d for segment %d", c, i)
		}
		hist[i] = uint64(c)
	}
	return hist, nil
}

// Build computes the neighbours of every segment in a label band and stores
// them in the band's attribute table. The table must already have a
// "Histogram" column, and the band must have a nodata value, which is
// treated as background.
func Build(ctx context.Context, src Source, opts BuildOptions) (rat.BuildStatistics, error) {
	if opts.NumShards > 1 {
		return nil, fmt.Errorf("Build processes every tile, so it cannot process shard %d of %d", opts.Shard, opts.NumShards)
	}
	acc, st, err := accumulate(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	if err := acc.Flush(); err != nil {
		return nil, err
	}
	if err := src.FlushAttributeTable(opts.Band); err != nil {
		return nil, err
	}
	st.Finish()
	logging.Infof("Band %d: processed %d tiles in %s", opts.Band, st.GetNumTilesProcessed(), st.GetRuntime())
	return st, nil
}

// Accumulate finds the neighbours in one shard of a label band, without
// storing them. The returned Accumulator can be serialized with ToBytes, and
// the serialized Accumulators of every shard combined with FlushPartials.
func Accumulate(ctx context.Context, src Source, opts BuildOptions) (*Accumulator, rat.BuildStatistics, error) {
	acc, st, err := accumulate(ctx, src, opts)
	if err != nil {
		return nil, nil, err
	}
	st.Finish()
	logging.Infof("Band %d: shard %d of %d processed %d tiles in %s", opts.Band, opts.Shard, opts.NumShards, st.GetNumTilesProcessed(), st.GetRuntime())
	return acc, st, nil
}

// FlushPartials merges Accumulators serialized by Accumulate and stores the
// combined neighbours in a band's attribute table
func FlushPartials(src Source, band int, partials [][]byte) error {
	if len(partials) == 0 {
		return fmt.Errorf("No partial results to merge for band %d", band)
	}
	tbl, err := src.AttributeTable(band)
	if err != nil {
		return err
	}
	template := NewAccumulator(nil, tbl, band, 0, false)
	var acc *Accumulator
	for i, buf := range partials {
		res, err := template.FromBytes(buf)
		if err != nil {
			return fmt.Errorf("Partial result %d: %w", i, err)
		}
		if acc == nil {
			acc = res.(*Accumulator)
		} else if err := acc.Merge(res); err != nil {
			return fmt.Errorf("Partial result %d: %w", i, err)
		}
	}
	if acc.band != band {
		return errors.IncompatibleAccumulatorError{Reason: fmt.Sprintf("partial results are for band %d, not %d", acc.band, band)}
	}
	if err := acc.Flush(); err != nil {
		return err
	}
	return src.FlushAttributeTable(band)
}

func accumulate(ctx context.Context, src Source, opts BuildOptions) (*Accumulator, *stats.BuildStatistics, error) {
	shard, numShards, err := opts.shards()
	if err != nil {
		return nil, nil, err
	}
	tbl, err := src.AttributeTable(opts.Band)
	if err != nil {
		return nil, nil, err
	}
	hist, err := ReadHistogram(tbl)
	if err != nil {
		return nil, nil, err
	}
	background, ok, err := src.NoData(opts.Band)
	if err != nil {
		return nil, nil, err
	} else if !ok {
		return nil, nil, errors.NoDataValueError{Band: opts.Band}
	}
	tm, err := src.TileMap(opts.Band, opts.TileSize, background)
	if err != nil {
		return nil, nil, err
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logging.Infof("Band %d: finding neighbours of %d segments in %d tiles (%d workers)", opts.Band, len(hist), tm.NumTiles(), workers)

	st := &stats.BuildStatistics{}
	st.Start()
	accs := make([]*Accumulator, workers)
	for i := range accs {
		accs[i] = NewAccumulator(hist, tbl, opts.Band, background, opts.FourConnected)
	}
	tiles := &shardedTiles{tm: tm, shard: shard, numShards: numShards}
	if workers == 1 {
		err = buildSerial(ctx, tiles, accs[0], st)
	} else {
		err = buildParallel(ctx, tiles, accs, st)
	}
	if err != nil {
		return nil, nil, err
	}
	for _, acc := range accs[1:] {
		if err := accs[0].Merge(acc); err != nil {
			return nil, nil, err
		}
	}
	return accs[0], st, nil
}

// shardedTiles yields the TileLoaders of one shard of a TileMap
type shardedTiles struct {
	tm        rat.TileMap
	shard     int
	numShards int
	index     int
}

// next returns the next TileLoader of this shard, or nil when there are none left
func (s *shardedTiles) next() rat.TileLoader {
	for s.tm.HasNext() {
		loader := s.tm.Next()
		idx := s.index
		s.index++
		if idx%s.numShards == s.shard {
			return loader
		}
	}
	return nil
}

func processTile(loader rat.TileLoader, acc *Accumulator, st *stats.BuildStatistics) error {
	start := time.Now()
	tile, err := loader.Load()
	if err != nil {
		return err
	}
	if err := iutil.SafeAddArray(acc, tile, loader.ToString()); err != nil {
		return err
	}
	st.EndTile(start, tile.Width*tile.Height)
	logging.Tracef("Processed %s", loader.ToString())
	if n := st.GetNumTilesProcessed(); n%progressInterval == 0 {
		logging.Debugf("Processed %d tiles, %s per tile recently", n, st.GetCurrentTileProcessingTime())
	}
	return nil
}

func buildSerial(ctx context.Context, tiles *shardedTiles, acc *Accumulator, st *stats.BuildStatistics) error {
	for loader := tiles.next(); loader != nil; loader = tiles.next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := processTile(loader, acc, st); err != nil {
			return err
		}
	}
	return nil
}

// buildParallel processes tiles on up to len(accs) goroutines. Each goroutine
// borrows an Accumulator from a pool for the duration of one tile.
func buildParallel(ctx context.Context, tiles *shardedTiles, accs []*Accumulator, st *stats.BuildStatistics) error {
	pool := make(chan *Accumulator, len(accs))
	for _, acc := range accs {
		pool <- acc
	}
	sem := semaphore.NewWeighted(int64(len(accs)))
	g, gctx := errgroup.WithContext(ctx)
	for loader := tiles.next(); loader != nil; loader = tiles.next() {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		loader := loader
		g.Go(func() error {
			defer sem.Release(1)
			acc := <-pool
			defer func() { pool <- acc }()
			return processTile(loader, acc, st)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
