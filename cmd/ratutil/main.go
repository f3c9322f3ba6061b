// Command ratutil inspects and edits the attribute tables of datasets
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-sif/rat/internal/config"
	"github.com/go-sif/rat/logging"
)

var (
	// TOML configuration file.
	configFile = flag.String("config", "", "")

	// Overrides [logging].logfile.
	logFile = flag.String("logfile", "", "")

	// Overrides [logging].level.
	logLevel = flag.String("loglevel", "", "")
)

const helpMessage = `
ratutil inspects and edits the attribute tables of datasets

Usage: ratutil [options] <command> <dataset> [command options]

      --config   =string   TOML configuration file.
      --logfile  =string   Write log messages to this file.
      --loglevel =string   One of trace, debug, info, warn, error.

Commands:

	info            <dataset>
	add-field       <dataset> --name N --type bool|int|float|string [--usage U] [--default V]
	add-rows        <dataset> --n N
	get-field       <dataset> --name N [--start S] [--count C]
	set-field       <dataset> --name N [--start S] (--jsonl FILE | values...)
	get-neighbours  <dataset> [--start S] [--count C]
	set-neighbours  <dataset> [--start S] --jsonl FILE
	calc-histogram  <dataset> [--tilesize T]
	make-test       <dataset>

Every command but info and make-test takes --band B (default 1). Commands
reading or writing rows use JSON lines such as {"row":5,"neighbours":[1,2]}
and {"row":5,"value":3.5}. A --jsonl of "-" reads standard input.
`

func usage() {
	fmt.Fprint(os.Stderr, helpMessage)
}

// command runs a subcommand on the dataset at path with the remaining arguments
type command func(c *config.Config, path string, args []string, out io.Writer) error

var commands = map[string]command{
	"info":           infoCommand,
	"add-field":      addFieldCommand,
	"add-rows":       addRowsCommand,
	"get-field":      getFieldCommand,
	"set-field":      setFieldCommand,
	"get-neighbours": getNeighboursCommand,
	"set-neighbours": setNeighboursCommand,
	"calc-histogram": calcHistogramCommand,
	"make-test":      makeTestCommand,
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "ratutil: unknown command %q, expected one of %v\n", flag.Arg(0), commandNames())
		os.Exit(2)
	}
	c, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ratutil: %v\n", err)
		os.Exit(2)
	}
	if *logFile != "" {
		c.Logging.Logfile = *logFile
	}
	if *logLevel != "" {
		c.Logging.Level = *logLevel
	}
	if err := c.Logging.Apply(); err != nil {
		fmt.Fprintf(os.Stderr, "ratutil: %v\n", err)
		os.Exit(2)
	}
	if err := cmd(c, flag.Arg(1), flag.Args()[2:], os.Stdout); err != nil {
		logging.Errorf("%s %s: %v", flag.Arg(0), flag.Arg(1), err)
		os.Exit(1)
	}
}
