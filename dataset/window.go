package dataset

import (
	"fmt"

	"github.com/go-sif/rat/errors"
)

func (ds *Dataset) checkWindow(x, y, w, h, bufLen int) error {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > ds.meta.Width || y+h > ds.meta.Height {
		return fmt.Errorf("Window %dx%d at (%d, %d) is outside of the %dx%d dataset", w, h, x, y, ds.meta.Width, ds.meta.Height)
	}
	if bufLen < w*h {
		return fmt.Errorf("Buffer of %d pixels is too small for a %dx%d window", bufLen, w, h)
	}
	return nil
}

func cacheKey(num int, key blockKey) string {
	return fmt.Sprintf("%d/%d/%d", num, key.X, key.Y)
}

// readBlock returns the decoded pixels of a block. The result is shared with
// the block cache and must not be modified.
func (ds *Dataset) readBlock(b *band, key blockKey) ([]int64, error) {
	return ds.cache.Load(cacheKey(b.num, key), func() ([]int64, error) {
		bs := ds.meta.BlockSize
		pixels := make([]int64, bs*bs)
		data, ok, err := b.blocks.read(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			if nodata, has, _ := ds.NoData(b.num); has && nodata != 0 {
				for i := range pixels {
					pixels[i] = nodata
				}
			}
			return pixels, nil
		}
		raw, err := ds.codec.Decompress(nil, data)
		if err != nil {
			return nil, err
		}
		if len(raw) != len(pixels)*b.info.DataType.Size() {
			return nil, fmt.Errorf("Block (%d, %d) of band %d holds %d bytes, expected %d", key.X, key.Y, b.num, len(raw), len(pixels)*b.info.DataType.Size())
		}
		b.info.DataType.decode(pixels, raw)
		return pixels, nil
	})
}

func (ds *Dataset) writeBlock(b *band, key blockKey, pixels []int64) error {
	raw := make([]byte, len(pixels)*b.info.DataType.Size())
	b.info.DataType.encode(raw, pixels)
	data, err := ds.codec.Compress(nil, raw)
	if err != nil {
		return err
	}
	if err := b.blocks.write(key, data); err != nil {
		return err
	}
	ds.cache.Add(cacheKey(b.num, key), pixels)
	return nil
}

// forEachBlock calls fn for every block intersecting a window, with the
// intersection in block coordinates (bx0, by0, and size bw x bh) and the
// position of the intersection within the window (wx, wy)
func (ds *Dataset) forEachBlock(x, y, w, h int, fn func(key blockKey, bx0, by0, bw, bh, wx, wy int) error) error {
	bs := ds.meta.BlockSize
	if w == 0 || h == 0 {
		return nil
	}
	for by := y / bs; by <= (y+h-1)/bs; by++ {
		for bx := x / bs; bx <= (x+w-1)/bs; bx++ {
			x0, y0 := max(x, bx*bs), max(y, by*bs)
			x1, y1 := min(x+w, (bx+1)*bs), min(y+h, (by+1)*bs)
			err := fn(blockKey{X: bx, Y: by}, x0-bx*bs, y0-by*bs, x1-x0, y1-y0, x0-x, y0-y)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadWindow fills buf with the w*h pixels of a band whose top-left is (x, y)
func (ds *Dataset) ReadWindow(num int, x, y, w, h int, buf []int64) error {
	b, err := ds.band(num)
	if err != nil {
		return err
	}
	if err := ds.checkWindow(x, y, w, h, len(buf)); err != nil {
		return err
	}
	bs := ds.meta.BlockSize
	return ds.forEachBlock(x, y, w, h, func(key blockKey, bx0, by0, bw, bh, wx, wy int) error {
		pixels, err := ds.readBlock(b, key)
		if err != nil {
			return err
		}
		for r := 0; r < bh; r++ {
			src := (by0+r)*bs + bx0
			dst := (wy+r)*w + wx
			copy(buf[dst:dst+bw], pixels[src:src+bw])
		}
		return nil
	})
}

// WriteWindow stores the w*h pixels of buf in a band, with the top-left at (x, y)
func (ds *Dataset) WriteWindow(num int, x, y, w, h int, buf []int64) error {
	if ds.readOnly {
		return errors.ReadOnlyError{Path: ds.path}
	}
	b, err := ds.band(num)
	if err != nil {
		return err
	}
	if err := ds.checkWindow(x, y, w, h, len(buf)); err != nil {
		return err
	}
	for _, v := range buf[:w*h] {
		if !b.info.DataType.Contains(v) {
			return fmt.Errorf("Value %d does not fit in band %d of type %s", v, num, b.info.DataType)
		}
	}
	bs := ds.meta.BlockSize
	// serialize read-modify-write cycles on this band
	b.writeLock.Lock()
	defer b.writeLock.Unlock()
	return ds.forEachBlock(x, y, w, h, func(key blockKey, bx0, by0, bw, bh, wx, wy int) error {
		cached, err := ds.readBlock(b, key)
		if err != nil {
			return err
		}
		pixels := append(make([]int64, 0, len(cached)), cached...)
		for r := 0; r < bh; r++ {
			dst := (by0+r)*bs + bx0
			src := (wy+r)*w + wx
			copy(pixels[dst:dst+bw], buf[src:src+bw])
		}
		return ds.writeBlock(b, key, pixels)
	})
}
