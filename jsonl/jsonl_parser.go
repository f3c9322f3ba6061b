package jsonl

import (
	"bufio"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// ParserConf configures a JSONL Parser
type ParserConf struct {
	BatchSize     int    // The maximum number of lines per batch. Defaults to 128.
	HeaderLines   int    // The number of lines to ignore from the beginning of the input. Defaults to 0.
	Comment       rune   // Lines beginning with the comment character are ignored. Defaults to no comment character.
	MaxBufferSize int    // Maximum size in bytes of the buffer used to read lines
	RowPath       string // gjson path of the row number within each line. Defaults to "row".
}

// Parser produces batches of Lines from JSONL data
type Parser struct {
	conf *ParserConf
}

// Line is one parsed line of input, addressed to a row of an attribute table
type Line struct {
	Row  int
	JSON gjson.Result
}

// CreateParser returns a new JSONL Parser. Each line may name the row it applies
// to. Lines which do not name a row apply to the row after the previous line's.
func CreateParser(conf *ParserConf) *Parser {
	if conf.BatchSize == 0 {
		conf.BatchSize = 128
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	if conf.RowPath == "" {
		conf.RowPath = "row"
	}
	return &Parser{conf: conf}
}

// BatchSize returns the maximum number of Lines in a batch produced by this Parser
func (p *Parser) BatchSize() int {
	return p.conf.BatchSize
}

// Parse begins parsing JSONL data. firstRow is the row of the first line which does not name one.
func (p *Parser) Parse(r io.Reader, firstRow int) (*Iterator, error) {
	// start parsing by creating a scanner
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), p.conf.MaxBufferSize)
	// ignore header lines, if configured to do so
	for i := 0; i < p.conf.HeaderLines; i++ {
		scanner.Scan()
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return &Iterator{
		parser:  p,
		scanner: scanner,
		hasNext: true,
		nextRow: firstRow,
	}, nil
}

func (p *Parser) skip(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || (p.conf.Comment != 0 && strings.HasPrefix(trimmed, string(p.conf.Comment)))
}
