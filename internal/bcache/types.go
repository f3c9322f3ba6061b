package bcache

// BlockCache is a cache for decoded raster blocks
type BlockCache interface {
	Destroy()
	Add(key string, value []int64)
	Get(key string) (value []int64, ok bool)                                  // returns the block, if present, marking it as recently used
	Load(key string, load func() ([]int64, error)) (value []int64, err error) // returns the cached block, or loads and caches it. Concurrent loads of one key call load once.
	Remove(key string)
	CurrentSize() int
	Resize(maxSize int) bool // changes the maximum number of blocks held, evicting as needed. Sizes below 1 are refused.
}
