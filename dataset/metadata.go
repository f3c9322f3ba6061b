package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/uuid"
)

const metadataFile = "meta.toml"

// LayerThematic marks a band whose pixels are categorical labels
const LayerThematic = "thematic"

// LayerContinuous marks a band whose pixels are measurements
const LayerContinuous = "continuous"

// SpatialInfo describes how a dataset's pixels map onto the earth
type SpatialInfo struct {
	WKT   string  `toml:"wkt"`
	TLX   float64 `toml:"tl_x"`
	TLY   float64 `toml:"tl_y"`
	XRes  float64 `toml:"x_res"`
	YRes  float64 `toml:"y_res"`
	XRot  float64 `toml:"x_rot"`
	YRot  float64 `toml:"y_rot"`
	XSize int     `toml:"-"`
	YSize int     `toml:"-"`
}

// DefaultSpatialInfo returns a SpatialInfo with unit pixels and no projection
func DefaultSpatialInfo() SpatialInfo {
	return SpatialInfo{XRes: 1, YRes: -1}
}

// BandInfo describes one band of a dataset
type BandInfo struct {
	DataType    DataType `toml:"data_type"`
	NoData      *int64   `toml:"nodata,omitempty"`
	LayerType   string   `toml:"layer_type"`
	Description string   `toml:"description"`
}

// Metadata is the content of a dataset's meta.toml
type Metadata struct {
	ID        uuid.UUID   `toml:"id"`
	Width     int         `toml:"width"`
	Height    int         `toml:"height"`
	BlockSize int         `toml:"block_size"`
	Codec     string      `toml:"codec"`
	Spatial   SpatialInfo `toml:"spatial"`
	Bands     []BandInfo  `toml:"band"`
}

func (m *Metadata) validate() error {
	if m.Width < 0 || m.Height < 0 {
		return fmt.Errorf("Invalid dataset size %dx%d", m.Width, m.Height)
	}
	if m.BlockSize < 1 {
		return fmt.Errorf("Invalid block size %d", m.BlockSize)
	}
	for i, b := range m.Bands {
		if _, err := ParseDataType(string(b.DataType)); err != nil {
			return fmt.Errorf("Band %d: %w", i+1, err)
		}
		if b.NoData != nil && !b.DataType.Contains(*b.NoData) {
			return fmt.Errorf("Band %d: nodata value %d does not fit in %s", i+1, *b.NoData, b.DataType)
		}
		if b.LayerType != LayerThematic && b.LayerType != LayerContinuous {
			return fmt.Errorf("Band %d: unknown layer type %q", i+1, b.LayerType)
		}
	}
	return nil
}

func readMetadata(dir string) (*Metadata, error) {
	var m Metadata
	if _, err := toml.DecodeFile(filepath.Join(dir, metadataFile), &m); err != nil {
		return nil, fmt.Errorf("Unable to read dataset metadata: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// writeMetadata replaces meta.toml atomically
func writeMetadata(dir string, m *Metadata) error {
	tmp := filepath.Join(dir, metadataFile+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, metadataFile))
}
