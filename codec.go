package rat

// A BlockCodec compresses and decompresses the raw pixel data of a single raster block
type BlockCodec interface {
	Name() string                                      // Name identifies the codec within dataset metadata
	Compress(dst []byte, src []byte) ([]byte, error)   // Compress appends the compressed form of src to dst
	Decompress(dst []byte, src []byte) ([]byte, error) // Decompress appends the decompressed form of src to dst
}
