package dataset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sif/rat/errors"
)

// A block file starts with fileMagic, followed by compressed blocks in the
// order they were written. Close appends the index of the latest copy of
// each block, the offset of that index and trailerMagic.
const (
	fileMagic    = "RATBLK01"
	trailerMagic = "RATIDX01"
	entrySize    = 4 + 4 + 8 + 4 + 8
	trailerSize  = 8 + len(trailerMagic)
)

type blockKey struct {
	X int
	Y int
}

type blockEntry struct {
	offset   int64
	length   uint32
	checksum uint64
}

// blockFile is an append-only store of compressed blocks for one band
type blockFile struct {
	lock     sync.RWMutex
	band     int
	f        *os.File
	index    map[blockKey]blockEntry
	end      int64
	dirty    bool
	readOnly bool
}

func createBlockFile(path string, band int) (*blockFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	if _, err := f.WriteAt([]byte(fileMagic), 0); err != nil {
		f.Close()
		return nil, err
	}
	return &blockFile{
		band:  band,
		f:     f,
		index: make(map[blockKey]blockEntry),
		end:   int64(len(fileMagic)),
		dirty: true,
	}, nil
}

func openBlockFile(path string, band int, readOnly bool) (*blockFile, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	bf := &blockFile{band: band, f: f, readOnly: readOnly}
	if err := bf.readIndex(); err != nil {
		f.Close()
		return nil, fmt.Errorf("Unable to open block file %s: %w", path, err)
	}
	return bf, nil
}

func (bf *blockFile) readIndex() error {
	info, err := bf.f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size < int64(len(fileMagic)+trailerSize) {
		return fmt.Errorf("File is truncated")
	}
	magic := make([]byte, len(fileMagic))
	if _, err := bf.f.ReadAt(magic, 0); err != nil {
		return err
	}
	if string(magic) != fileMagic {
		return fmt.Errorf("Not a block file")
	}
	trailer := make([]byte, trailerSize)
	if _, err := bf.f.ReadAt(trailer, size-int64(trailerSize)); err != nil {
		return err
	}
	if string(trailer[8:]) != trailerMagic {
		return fmt.Errorf("Block index is missing, the file was not closed cleanly")
	}
	indexOffset := int64(binary.LittleEndian.Uint64(trailer))
	indexLen := size - int64(trailerSize) - indexOffset
	if indexOffset < int64(len(fileMagic)) || indexLen < 0 || indexLen%entrySize != 0 {
		return fmt.Errorf("Block index is corrupt")
	}
	buf := make([]byte, indexLen)
	if _, err := bf.f.ReadAt(buf, indexOffset); err != nil {
		return err
	}
	bf.index = make(map[blockKey]blockEntry, indexLen/entrySize)
	for p := 0; p < len(buf); p += entrySize {
		key := blockKey{
			X: int(binary.LittleEndian.Uint32(buf[p:])),
			Y: int(binary.LittleEndian.Uint32(buf[p+4:])),
		}
		bf.index[key] = blockEntry{
			offset:   int64(binary.LittleEndian.Uint64(buf[p+8:])),
			length:   binary.LittleEndian.Uint32(buf[p+16:]),
			checksum: binary.LittleEndian.Uint64(buf[p+20:]),
		}
	}
	// new blocks overwrite the index, which is rewritten on close
	bf.end = indexOffset
	return nil
}

// read returns the compressed bytes of a block, or false if it was never written
func (bf *blockFile) read(key blockKey) ([]byte, bool, error) {
	bf.lock.RLock()
	entry, ok := bf.index[key]
	bf.lock.RUnlock()
	if !ok {
		return nil, false, nil
	}
	buf := make([]byte, entry.length)
	if _, err := bf.f.ReadAt(buf, entry.offset); err != nil && err != io.EOF {
		return nil, false, err
	}
	if xxhash.Sum64(buf) != entry.checksum {
		return nil, false, errors.ChecksumError{Band: bf.band, BlockX: key.X, BlockY: key.Y}
	}
	return buf, true, nil
}

// write appends a new copy of a block
func (bf *blockFile) write(key blockKey, data []byte) error {
	if bf.readOnly {
		return errors.ReadOnlyError{Path: bf.f.Name()}
	}
	bf.lock.Lock()
	defer bf.lock.Unlock()
	if _, err := bf.f.WriteAt(data, bf.end); err != nil {
		return err
	}
	bf.index[key] = blockEntry{offset: bf.end, length: uint32(len(data)), checksum: xxhash.Sum64(data)}
	bf.end += int64(len(data))
	bf.dirty = true
	return nil
}

func (bf *blockFile) has(key blockKey) bool {
	bf.lock.RLock()
	defer bf.lock.RUnlock()
	_, ok := bf.index[key]
	return ok
}

func (bf *blockFile) numBlocks() int {
	bf.lock.RLock()
	defer bf.lock.RUnlock()
	return len(bf.index)
}

// close writes the block index, if anything has changed, and closes the file
func (bf *blockFile) close() error {
	bf.lock.Lock()
	defer bf.lock.Unlock()
	if bf.dirty && !bf.readOnly {
		buf := new(bytes.Buffer)
		entry := make([]byte, entrySize)
		for key, e := range bf.index {
			binary.LittleEndian.PutUint32(entry, uint32(key.X))
			binary.LittleEndian.PutUint32(entry[4:], uint32(key.Y))
			binary.LittleEndian.PutUint64(entry[8:], uint64(e.offset))
			binary.LittleEndian.PutUint32(entry[16:], e.length)
			binary.LittleEndian.PutUint64(entry[20:], e.checksum)
			buf.Write(entry)
		}
		trailer := make([]byte, 8, trailerSize)
		binary.LittleEndian.PutUint64(trailer, uint64(bf.end))
		buf.Write(append(trailer, trailerMagic...))
		if _, err := bf.f.WriteAt(buf.Bytes(), bf.end); err != nil {
			bf.f.Close()
			return err
		}
		if err := bf.f.Truncate(bf.end + int64(buf.Len())); err != nil {
			bf.f.Close()
			return err
		}
		bf.dirty = false
	}
	return bf.f.Close()
}
