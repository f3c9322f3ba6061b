package dataset

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/go-sif/rat"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// CodecLZ4 names the lz4 BlockCodec
const CodecLZ4 = "lz4"

// CodecZstd names the zstd BlockCodec
const CodecZstd = "zstd"

// NewCodec instantiates the BlockCodec with the given name
func NewCodec(name string) (rat.BlockCodec, error) {
	switch name {
	case CodecLZ4, "":
		return NewLZ4Codec(), nil
	case CodecZstd:
		return NewZstdCodec()
	default:
		return nil, fmt.Errorf("Unknown block codec %s", name)
	}
}

// LZ4Codec is a block compressor which uses the lz4 compression algorithm
type LZ4Codec struct {
	lock               sync.Mutex
	compressor         *lz4.Writer
	decompressor       *lz4.Reader
	reusableReadBuffer *bytes.Buffer
}

// NewLZ4Codec instantiates a new LZ4Codec
func NewLZ4Codec() *LZ4Codec {
	compressor := lz4.NewWriter(new(bytes.Buffer))
	decompressor := lz4.NewReader(new(bytes.Buffer))
	return &LZ4Codec{
		compressor:         compressor,
		decompressor:       decompressor,
		reusableReadBuffer: new(bytes.Buffer),
	}
}

// Name returns "lz4"
func (c *LZ4Codec) Name() string {
	return CodecLZ4
}

// Compress appends the compressed form of src to dst
func (c *LZ4Codec) Compress(dst, src []byte) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := bytes.NewBuffer(dst)
	c.compressor.Reset(out)
	if _, err := c.compressor.Write(src); err != nil {
		return nil, err
	}
	if err := c.compressor.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Decompress appends the decompressed form of src to dst
func (c *LZ4Codec) Decompress(dst, src []byte) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.decompressor.Reset(bytes.NewReader(src))
	c.reusableReadBuffer.Reset()
	if _, err := c.reusableReadBuffer.ReadFrom(c.decompressor); err != nil {
		return nil, fmt.Errorf("Unable to decompress block data: %w", err)
	}
	return append(dst, c.reusableReadBuffer.Bytes()...), nil
}

// ZstdCodec is a block compressor which uses the zstd compression algorithm
type ZstdCodec struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// NewZstdCodec instantiates a new ZstdCodec
func NewZstdCodec() (*ZstdCodec, error) {
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("Unable to initialize compressor: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("Unable to initialize decompressor: %w", err)
	}
	return &ZstdCodec{compressor: compressor, decompressor: decompressor}, nil
}

// Name returns "zstd"
func (c *ZstdCodec) Name() string {
	return CodecZstd
}

// Compress appends the compressed form of src to dst
func (c *ZstdCodec) Compress(dst, src []byte) ([]byte, error) {
	return c.compressor.EncodeAll(src, dst), nil
}

// Decompress appends the decompressed form of src to dst
func (c *ZstdCodec) Decompress(dst, src []byte) ([]byte, error) {
	out, err := c.decompressor.DecodeAll(src, dst)
	if err != nil {
		return nil, fmt.Errorf("Unable to decompress block data: %w", err)
	}
	return out, nil
}

// Close releases the resources held by the zstd encoder and decoder
func (c *ZstdCodec) Close() error {
	c.decompressor.Close()
	return c.compressor.Close()
}

func closeCodec(codec rat.BlockCodec) error {
	if closer, ok := codec.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
