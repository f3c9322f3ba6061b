package bcache

import (
	"container/list"
	"sync"

	"github.com/docker/docker/pkg/locker"
	"github.com/go-sif/rat/logging"
)

// lru is an LRU cache for decoded blocks
type lru struct {
	config     *LRUConfig
	klocks     *locker.Locker
	lock       sync.Mutex
	bmap       map[string]*list.Element
	recentList *list.List // back is oldest, front is newest
	maxSize    int
}

type cachedBlock struct {
	key   string
	value []int64
}

// LRUConfig configures an LRU BlockCache
type LRUConfig struct {
	InitialSize int // InitialSize is the maximum number of blocks held
}

// NewLRU produces an LRU BlockCache
func NewLRU(config *LRUConfig) BlockCache {
	maxSize := config.InitialSize
	if maxSize < 1 {
		maxSize = 1
	}
	return &lru{
		config:     config,
		klocks:     locker.New(),
		bmap:       make(map[string]*list.Element),
		recentList: list.New(),
		maxSize:    maxSize,
	}
}

func (c *lru) Destroy() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.bmap = make(map[string]*list.Element)
	c.recentList.Init()
}

func (c *lru) Add(key string, value []int64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if e, ok := c.bmap[key]; ok {
		e.Value.(*cachedBlock).value = value
		c.recentList.MoveToFront(e)
		return
	}
	c.bmap[key] = c.recentList.PushFront(&cachedBlock{key: key, value: value})
	c.evict()
}

// evict removes the least recently used blocks until the cache fits. Callers hold c.lock.
func (c *lru) evict() {
	for c.recentList.Len() > c.maxSize {
		toRemove := c.recentList.Back()
		c.recentList.Remove(toRemove)
		delete(c.bmap, toRemove.Value.(*cachedBlock).key)
	}
}

func (c *lru) Get(key string) ([]int64, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	e, ok := c.bmap[key]
	if !ok {
		return nil, false
	}
	c.recentList.MoveToFront(e)
	return e.Value.(*cachedBlock).value, true
}

func (c *lru) Load(key string, load func() ([]int64, error)) ([]int64, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	c.klocks.Lock(key)
	defer c.klocks.Unlock(key)
	// another caller may have loaded the block while we waited
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	value, err := load()
	if err != nil {
		return nil, err
	}
	c.Add(key, value)
	return value, nil
}

func (c *lru) Remove(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if e, ok := c.bmap[key]; ok {
		c.recentList.Remove(e)
		delete(c.bmap, key)
	}
}

func (c *lru) CurrentSize() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.recentList.Len()
}

func (c *lru) Resize(newSize int) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if newSize < 1 {
		return false
	}
	logging.Debugf("Resizing block cache from %d to %d blocks", c.maxSize, newSize)
	c.maxSize = newSize
	c.evict()
	return true
}
