// Package config loads the TOML configuration shared by the command line tools
package config

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-sif/rat/logging"
	"github.com/go-sif/rat/tiling"
)

// Config is the content of a configuration file
type Config struct {
	Build   BuildConfig
	Dataset DatasetConfig
	Logging logging.Config
}

// BuildConfig configures neighbour builds
type BuildConfig struct {
	TileSize int  `toml:"tilesize"`
	Workers  int  `toml:"workers"`
	EightWay bool `toml:"eightway"`
}

// DatasetConfig configures datasets created by the tools
type DatasetConfig struct {
	BlockSize   int    `toml:"block_size"`
	Codec       string `toml:"codec"`
	CacheBlocks int    `toml:"cache_blocks"` // decoded blocks held in memory, 0 for the default
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			TileSize: tiling.DefaultTileSize,
			Workers:  1,
		},
		Logging: logging.Config{
			Level:   "info",
			MaxSize: 100,
			MaxAge:  30,
		},
	}
}

// Load reads a configuration file, filling unset values with defaults. Relative
// log file paths are resolved against the directory of the configuration file.
func Load(filename string) (*Config, error) {
	c := Default()
	if filename == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("Could not decode TOML config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.Logging.Logfile != "" && !filepath.IsAbs(c.Logging.Logfile) {
		abs, err := filepath.Abs(filepath.Join(filepath.Dir(filename), c.Logging.Logfile))
		if err != nil {
			return nil, fmt.Errorf("Error converting logfile setting to absolute path: %w", err)
		}
		c.Logging.Logfile = abs
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Build.TileSize < 1 {
		return fmt.Errorf("[build].tilesize must be positive, not %d", c.Build.TileSize)
	}
	if c.Build.Workers < 1 {
		return fmt.Errorf("[build].workers must be positive, not %d", c.Build.Workers)
	}
	if c.Dataset.BlockSize < 0 {
		return fmt.Errorf("[dataset].block_size must not be negative")
	}
	if c.Dataset.CacheBlocks < 0 {
		return fmt.Errorf("[dataset].cache_blocks must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}
