// Command buildneighbours finds the neighbours of every segment in a label
// band and stores them in the band's attribute table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/go-sif/rat"
	"github.com/go-sif/rat/dataset"
	"github.com/go-sif/rat/internal/config"
	"github.com/go-sif/rat/logging"
	"github.com/go-sif/rat/neighbours"
)

const helpMessage = `
buildneighbours finds the neighbours of every segment in a label band

Usage: buildneighbours [options] --infile <dataset>

      --infile   =string   Dataset directory (required).
      --tilesize =number   Width and height of tiles, in pixels (default 2048).
      --eightway (flag)    Include diagonal neighbours. Default is 4-connected.
      --band     =number   Band holding segment IDs (default 1).
      --workers  =number   Number of tiles processed concurrently (default 1).
      --shard    =i/n      Only process shard i of n, writing the result to --partial.
      --partial  =string   File receiving the result of --shard.
      --merge    =string   Comma-separated --partial files to combine and store.
      --config   =string   TOML configuration file.
      --logfile  =string   Write log messages to this file.
      --loglevel =string   One of trace, debug, info, warn, error.

The band must have a nodata value, and its attribute table a "Histogram" column.
A build may be split between processes by running every shard of it with
--shard and --partial, then combining the partial files with --merge.
`

// flagError is returned for arguments which the flag package has already reported
type flagError struct{ err error }

func (e flagError) Error() string { return e.err.Error() }

// settings are the merged configuration file and command line
type settings struct {
	config    *config.Config
	inFile    string
	band      int
	shard     int
	numShards int
	partial   string
	merge     []string
}

// parseSettings parses the command line into fs, then merges the configuration
// file with any flags given explicitly
func parseSettings(fs *flag.FlagSet, args []string) (*settings, error) {
	var (
		// Dataset to process.
		inFile = fs.String("infile", "", "")

		// Width and height of the tiles read from the band.
		tileSize = fs.Int("tilesize", 0, "")

		// Consider diagonal neighbours if true.
		eightWay = fs.Bool("eightway", false, "")

		// Band holding segment IDs.
		bandNum = fs.Int("band", 1, "")

		// Number of tiles processed concurrently.
		workers = fs.Int("workers", 0, "")

		// Shard of the tiles processed, as i/n.
		shard = fs.String("shard", "", "")

		// Output of a sharded run.
		partial = fs.String("partial", "", "")

		// Outputs of sharded runs to combine.
		merge = fs.String("merge", "", "")

		// TOML configuration file.
		configFile = fs.String("config", "", "")

		// Overrides [logging].logfile.
		logFile = fs.String("logfile", "", "")

		// Overrides [logging].level.
		logLevel = fs.String("loglevel", "", "")
	)
	if err := fs.Parse(args); err != nil {
		return nil, flagError{err}
	}
	if *inFile == "" {
		return nil, fmt.Errorf("--infile is required")
	}
	c, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tilesize":
			if *tileSize < 1 {
				flagErr = fmt.Errorf("--tilesize must be positive, not %d", *tileSize)
			}
			c.Build.TileSize = *tileSize
		case "workers":
			if *workers < 1 {
				flagErr = fmt.Errorf("--workers must be positive, not %d", *workers)
			}
			c.Build.Workers = *workers
		case "eightway":
			c.Build.EightWay = *eightWay
		case "logfile":
			c.Logging.Logfile = *logFile
		case "loglevel":
			c.Logging.Level = *logLevel
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}
	s := &settings{config: c, inFile: *inFile, band: *bandNum, partial: *partial}
	if *shard != "" {
		if _, err := fmt.Sscanf(*shard, "%d/%d", &s.shard, &s.numShards); err != nil {
			return nil, fmt.Errorf("--shard must be of the form i/n, not %q", *shard)
		}
		if s.numShards < 1 || s.shard < 0 || s.shard >= s.numShards {
			return nil, fmt.Errorf("--shard %s does not name one of n shards", *shard)
		}
		if s.partial == "" {
			return nil, fmt.Errorf("--shard requires --partial")
		}
	} else if s.partial != "" {
		return nil, fmt.Errorf("--partial requires --shard")
	}
	if *merge != "" {
		if *shard != "" {
			return nil, fmt.Errorf("--merge cannot be combined with --shard")
		}
		s.merge = strings.Split(*merge, ",")
	}
	return s, nil
}

func (s *settings) buildOptions() neighbours.BuildOptions {
	return neighbours.BuildOptions{
		Band:          s.band,
		TileSize:      s.config.Build.TileSize,
		FourConnected: !s.config.Build.EightWay,
		Workers:       s.config.Build.Workers,
		Shard:         s.shard,
		NumShards:     s.numShards,
	}
}

func logStatistics(st rat.BuildStatistics) {
	runtime := st.GetRuntime()
	pixels := st.GetNumPixelsProcessed()
	rate := float64(pixels)
	if runtime.Seconds() > 0 {
		rate /= runtime.Seconds()
	}
	logging.Infof("Processed %s pixels in %s tiles in %s, starting %s (%s pixels/s)", humanize.Comma(pixels),
		humanize.Comma(st.GetNumTilesProcessed()), runtime, st.GetStartTime().Format("15:04:05"), humanize.SI(rate, ""))
}

// run performs a build, a sharded build or a merge, as configured
func run(ctx context.Context, s *settings) (err error) {
	// a shard only reads the dataset, so shards may run at the same time
	ds, err := dataset.Open(s.inFile, s.numShards > 0)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ds.Close(); err == nil {
			err = cerr
		}
	}()
	if n := s.config.Dataset.CacheBlocks; n > 0 {
		if err := ds.SetCacheBlocks(n); err != nil {
			return err
		}
	}
	switch {
	case len(s.merge) > 0:
		partials := make([][]byte, len(s.merge))
		for i, name := range s.merge {
			if partials[i], err = os.ReadFile(name); err != nil {
				return err
			}
		}
		if err := neighbours.FlushPartials(ds, s.band, partials); err != nil {
			return err
		}
		logging.Infof("Merged %d partial results", len(partials))
	case s.numShards > 0:
		acc, st, err := neighbours.Accumulate(ctx, ds, s.buildOptions())
		if err != nil {
			return err
		}
		buf, err := acc.ToBytes()
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.partial, buf, 0644); err != nil {
			return err
		}
		logStatistics(st)
		logging.Infof("Wrote %s of partial results to %s", humanize.Bytes(uint64(len(buf))), s.partial)
	default:
		st, err := neighbours.Build(ctx, ds, s.buildOptions())
		if err != nil {
			return err
		}
		logStatistics(st)
	}
	logging.Debugf("%d blocks cached", ds.CachedBlocks())
	return nil
}

// buildNeighbours runs the command with args, returning its exit code
func buildNeighbours(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("buildneighbours", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, helpMessage)
	}
	s, err := parseSettings(fs, args)
	if fe, ok := err.(flagError); ok {
		if fe.err == flag.ErrHelp {
			return 0
		}
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "buildneighbours: %v\n", err)
		fs.Usage()
		return 2
	}
	if err := s.config.Logging.Apply(); err != nil {
		fmt.Fprintf(stderr, "buildneighbours: %v\n", err)
		return 2
	}

	// stop between tiles on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, s); err != nil {
		logging.Errorf("%s: %v", s.inFile, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(buildNeighbours(os.Args[1:], os.Stderr))
}
