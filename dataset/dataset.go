// Package dataset stores labelled rasters on disk. A dataset is a directory
// holding a meta.toml description, one compressed block file per band and,
// for bands which have one, an attribute table in Arrow IPC format.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
	"github.com/go-sif/rat/internal/bcache"
	iutil "github.com/go-sif/rat/internal/util"
	"github.com/go-sif/rat/logging"
	"github.com/go-sif/rat/table"
	"github.com/go-sif/rat/tiling"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
)

// DefaultBlockSize is the width and height of stored blocks when none is configured
const DefaultBlockSize = 256

// DefaultCacheBlocks is the number of decoded blocks held in memory when none is configured
const DefaultCacheBlocks = 64

// Options configure the creation of a dataset
type Options struct {
	Width       int
	Height      int
	NumBands    int
	DataType    DataType
	LayerType   string // LayerType defaults to thematic
	BlockSize   int    // BlockSize defaults to DefaultBlockSize
	Codec       string // Codec is "lz4" (the default) or "zstd"
	CacheBlocks int    // CacheBlocks defaults to DefaultCacheBlocks
	Spatial     *SpatialInfo
}

type band struct {
	num       int
	info      *BandInfo
	blocks    *blockFile
	writeLock sync.Mutex
	ratPath   string
	ratLock   sync.Mutex
	rat       *table.Table
	ratDirty  bool
}

// Dataset is an open dataset directory. Reads may be issued concurrently.
type Dataset struct {
	path     string
	readOnly bool
	metaLock sync.RWMutex
	meta     *Metadata
	codec    rat.BlockCodec
	cache    bcache.BlockCache
	bands    []*band
	closed   bool
}

func blockPath(dir string, num int) string {
	return filepath.Join(dir, fmt.Sprintf("band_%d.blk", num))
}

func ratPath(dir string, num int) string {
	return filepath.Join(dir, fmt.Sprintf("band_%d.rat.arrow", num))
}

// Create makes a new dataset in the directory path, which may already exist
// but must not contain a dataset
func Create(path string, opts Options) (*Dataset, error) {
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.LayerType == "" {
		opts.LayerType = LayerThematic
	}
	if opts.Codec == "" {
		opts.Codec = CodecLZ4
	}
	if opts.NumBands < 1 {
		return nil, fmt.Errorf("A dataset needs at least one band, not %d", opts.NumBands)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	meta := &Metadata{
		ID:        id,
		Width:     opts.Width,
		Height:    opts.Height,
		BlockSize: opts.BlockSize,
		Codec:     opts.Codec,
		Spatial:   DefaultSpatialInfo(),
		Bands:     make([]BandInfo, opts.NumBands),
	}
	if opts.Spatial != nil {
		meta.Spatial = *opts.Spatial
	}
	for i := range meta.Bands {
		meta.Bands[i] = BandInfo{DataType: opts.DataType, LayerType: opts.LayerType}
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(path, metadataFile)); err == nil {
		return nil, fmt.Errorf("%s already contains a dataset", path)
	}
	codec, err := NewCodec(meta.Codec)
	if err != nil {
		return nil, err
	}
	ds := newDataset(path, false, meta, codec, opts.CacheBlocks)
	for i := range meta.Bands {
		bf, err := createBlockFile(blockPath(path, i+1), i+1)
		if err != nil {
			ds.Close()
			return nil, err
		}
		ds.bands[i].blocks = bf
	}
	if err := writeMetadata(path, meta); err != nil {
		ds.Close()
		return nil, err
	}
	logging.Debugf("Created dataset %s (%s): %dx%d, %d bands of %s", path, id, opts.Width, opts.Height, opts.NumBands, opts.DataType)
	return ds, nil
}

// Open opens an existing dataset
func Open(path string, readOnly bool) (*Dataset, error) {
	meta, err := readMetadata(path)
	if err != nil {
		return nil, err
	}
	codec, err := NewCodec(meta.Codec)
	if err != nil {
		return nil, err
	}
	ds := newDataset(path, readOnly, meta, codec, 0)
	for i := range meta.Bands {
		bf, err := openBlockFile(blockPath(path, i+1), i+1, readOnly)
		if err != nil {
			ds.Close()
			return nil, err
		}
		ds.bands[i].blocks = bf
	}
	return ds, nil
}

func newDataset(path string, readOnly bool, meta *Metadata, codec rat.BlockCodec, cacheBlocks int) *Dataset {
	if cacheBlocks <= 0 {
		cacheBlocks = DefaultCacheBlocks
	}
	ds := &Dataset{
		path:     path,
		readOnly: readOnly,
		meta:     meta,
		codec:    codec,
		cache:    bcache.NewLRU(&bcache.LRUConfig{InitialSize: cacheBlocks}),
		bands:    make([]*band, len(meta.Bands)),
	}
	for i := range ds.bands {
		ds.bands[i] = &band{num: i + 1, info: &meta.Bands[i], ratPath: ratPath(path, i+1)}
	}
	return ds
}

// Close writes any modified attribute tables and block indexes, and closes the dataset's files
func (ds *Dataset) Close() error {
	if ds.closed {
		return nil
	}
	ds.closed = true
	var result error
	for _, b := range ds.bands {
		if !ds.readOnly {
			if err := ds.flushTable(b); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if b.blocks != nil {
			if err := b.blocks.close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if err := closeCodec(ds.codec); err != nil {
		result = multierror.Append(result, err)
	}
	ds.cache.Destroy()
	if merr, ok := result.(*multierror.Error); ok {
		merr.ErrorFormat = iutil.FormatMultiError
	}
	return result
}

// ID returns the unique identifier assigned to the dataset on creation
func (ds *Dataset) ID() uuid.UUID {
	return ds.meta.ID
}

// Path returns the dataset's directory
func (ds *Dataset) Path() string {
	return ds.path
}

// NumBands returns the number of bands
func (ds *Dataset) NumBands() int {
	return len(ds.bands)
}

// Size returns the width and height of the dataset, in pixels
func (ds *Dataset) Size() (int, int) {
	return ds.meta.Width, ds.meta.Height
}

// BlockSize returns the width and height of stored blocks
func (ds *Dataset) BlockSize() int {
	return ds.meta.BlockSize
}

// Codec returns the name of the block compression codec
func (ds *Dataset) Codec() string {
	return ds.codec.Name()
}

// SpatialInfo returns the dataset's georeferencing
func (ds *Dataset) SpatialInfo() SpatialInfo {
	ds.metaLock.RLock()
	defer ds.metaLock.RUnlock()
	info := ds.meta.Spatial
	info.XSize = ds.meta.Width
	info.YSize = ds.meta.Height
	return info
}

// SetSpatialInfo replaces the dataset's georeferencing. XSize and YSize are ignored.
func (ds *Dataset) SetSpatialInfo(info SpatialInfo) error {
	return ds.updateMetadata(func(m *Metadata) error {
		m.Spatial = info
		m.Spatial.XSize, m.Spatial.YSize = 0, 0
		return nil
	})
}

func (ds *Dataset) band(num int) (*band, error) {
	if num < 1 || num > len(ds.bands) {
		return nil, errors.NoSuchBandError{Band: num, NumBands: len(ds.bands)}
	}
	return ds.bands[num-1], nil
}

// updateMetadata applies fn to a copy of the metadata and, once the copy has
// been written, makes it current. A failed update changes nothing.
func (ds *Dataset) updateMetadata(fn func(m *Metadata) error) error {
	if ds.readOnly {
		return errors.ReadOnlyError{Path: ds.path}
	}
	ds.metaLock.Lock()
	defer ds.metaLock.Unlock()
	updated := *ds.meta
	updated.Bands = append([]BandInfo(nil), ds.meta.Bands...)
	if err := fn(&updated); err != nil {
		return err
	}
	if err := writeMetadata(ds.path, &updated); err != nil {
		return err
	}
	// bands point into ds.meta.Bands, so it is updated in place
	bands := ds.meta.Bands
	copy(bands, updated.Bands)
	updated.Bands = bands
	*ds.meta = updated
	return nil
}

// BandDataType returns the storage type of a band's pixels
func (ds *Dataset) BandDataType(num int) (DataType, error) {
	b, err := ds.band(num)
	if err != nil {
		return "", err
	}
	return b.info.DataType, nil
}

// NoData returns a band's nodata value, and whether it has one
func (ds *Dataset) NoData(num int) (int64, bool, error) {
	b, err := ds.band(num)
	if err != nil {
		return 0, false, err
	}
	ds.metaLock.RLock()
	defer ds.metaLock.RUnlock()
	if b.info.NoData == nil {
		return 0, false, nil
	}
	return *b.info.NoData, true, nil
}

// SetNoData sets a band's nodata value. Blocks which have never been written read as nodata.
func (ds *Dataset) SetNoData(num int, v int64) error {
	b, err := ds.band(num)
	if err != nil {
		return err
	}
	if !b.info.DataType.Contains(v) {
		return fmt.Errorf("Nodata value %d does not fit in %s", v, b.info.DataType)
	}
	err = ds.updateMetadata(func(m *Metadata) error {
		m.Bands[num-1].NoData = &v
		return nil
	})
	if err != nil {
		return err
	}
	ds.evictUnwritten(b)
	return nil
}

// ClearNoData removes a band's nodata value
func (ds *Dataset) ClearNoData(num int) error {
	b, err := ds.band(num)
	if err != nil {
		return err
	}
	err = ds.updateMetadata(func(m *Metadata) error {
		m.Bands[num-1].NoData = nil
		return nil
	})
	if err != nil {
		return err
	}
	ds.evictUnwritten(b)
	return nil
}

// evictUnwritten removes a band's unwritten blocks from the cache, as they
// hold the previous nodata value
func (ds *Dataset) evictUnwritten(b *band) {
	bx, by := ds.blocksAcross()
	for y := 0; y < by; y++ {
		for x := 0; x < bx; x++ {
			if key := (blockKey{X: x, Y: y}); !b.blocks.has(key) {
				ds.cache.Remove(cacheKey(b.num, key))
			}
		}
	}
}

// blocksAcross returns the number of block columns and rows
func (ds *Dataset) blocksAcross() (int, int) {
	bs := ds.meta.BlockSize
	return (ds.meta.Width + bs - 1) / bs, (ds.meta.Height + bs - 1) / bs
}

// BlocksWritten returns the number of blocks of a band which have been
// written, and the number of blocks in the band
func (ds *Dataset) BlocksWritten(num int) (int, int, error) {
	b, err := ds.band(num)
	if err != nil {
		return 0, 0, err
	}
	bx, by := ds.blocksAcross()
	return b.blocks.numBlocks(), bx * by, nil
}

// SetCacheBlocks changes the number of decoded blocks held in memory
func (ds *Dataset) SetCacheBlocks(n int) error {
	if !ds.cache.Resize(n) {
		return fmt.Errorf("Block cache size must be positive, not %d", n)
	}
	return nil
}

// CachedBlocks returns the number of decoded blocks currently held in memory
func (ds *Dataset) CachedBlocks() int {
	return ds.cache.CurrentSize()
}

// LayerType returns "thematic" or "continuous"
func (ds *Dataset) LayerType(num int) (string, error) {
	b, err := ds.band(num)
	if err != nil {
		return "", err
	}
	ds.metaLock.RLock()
	defer ds.metaLock.RUnlock()
	return b.info.LayerType, nil
}

// SetLayerType marks a band as thematic or continuous
func (ds *Dataset) SetLayerType(num int, layerType string) error {
	b, err := ds.band(num)
	if err != nil {
		return err
	}
	if layerType != LayerThematic && layerType != LayerContinuous {
		return fmt.Errorf("Unknown layer type %q", layerType)
	}
	return ds.updateMetadata(func(m *Metadata) error {
		m.Bands[b.num-1].LayerType = layerType
		return nil
	})
}

// Description returns a band's description
func (ds *Dataset) Description(num int) (string, error) {
	b, err := ds.band(num)
	if err != nil {
		return "", err
	}
	ds.metaLock.RLock()
	defer ds.metaLock.RUnlock()
	return b.info.Description, nil
}

// SetDescription replaces a band's description
func (ds *Dataset) SetDescription(num int, description string) error {
	b, err := ds.band(num)
	if err != nil {
		return err
	}
	return ds.updateMetadata(func(m *Metadata) error {
		m.Bands[b.num-1].Description = description
		return nil
	})
}

// AttributeTable returns a band's attribute table, loading it on first
// access. A band without a stored table has an empty one. Changes are
// persisted by FlushAttributeTable or Close.
func (ds *Dataset) AttributeTable(num int) (rat.Table, error) {
	b, err := ds.band(num)
	if err != nil {
		return nil, err
	}
	b.ratLock.Lock()
	defer b.ratLock.Unlock()
	if b.rat == nil {
		tbl, err := readTable(b.ratPath)
		if os.IsNotExist(err) {
			tbl = table.New(0)
		} else if err != nil {
			return nil, err
		}
		b.rat = tbl
	}
	// the caller may modify the table
	b.ratDirty = true
	return b.rat, nil
}

// FlushAttributeTable writes a band's attribute table to disk, if it has been loaded
func (ds *Dataset) FlushAttributeTable(num int) error {
	b, err := ds.band(num)
	if err != nil {
		return err
	}
	if ds.readOnly {
		return errors.ReadOnlyError{Path: ds.path}
	}
	return ds.flushTable(b)
}

func (ds *Dataset) flushTable(b *band) error {
	b.ratLock.Lock()
	defer b.ratLock.Unlock()
	if b.rat == nil || !b.ratDirty {
		return nil
	}
	if err := writeTable(b.ratPath, b.rat); err != nil {
		return err
	}
	b.ratDirty = false
	logging.Debugf("Wrote attribute table of band %d (%d rows, %d fields)", b.num, b.rat.Size(), b.rat.NumFields())
	return nil
}

// Band returns a WindowReader over one band
func (ds *Dataset) Band(num int) (*BandReader, error) {
	if _, err := ds.band(num); err != nil {
		return nil, err
	}
	return &BandReader{ds: ds, num: num}, nil
}

// TileMap divides a band into Tiles with a 1-pixel margin. Margin pixels
// outside of the dataset are set to fill.
func (ds *Dataset) TileMap(num int, tileSize int, fill int64) (rat.TileMap, error) {
	br, err := ds.Band(num)
	if err != nil {
		return nil, err
	}
	return tiling.NewTileMap(br, tiling.Options{TileSize: tileSize, Margin: 1, Fill: fill})
}

// BandReader reads windows of a single band
type BandReader struct {
	ds  *Dataset
	num int
}

// Size returns the width and height of the band
func (br *BandReader) Size() (int, int) {
	return br.ds.Size()
}

// ReadWindow fills buf with a window of the band
func (br *BandReader) ReadWindow(x, y, w, h int, buf []int64) error {
	return br.ds.ReadWindow(br.num, x, y, w, h, buf)
}
