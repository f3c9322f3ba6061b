package jsonl

import (
	"bufio"
	"fmt"

	"github.com/go-sif/rat/logging"
	"github.com/tidwall/gjson"
)

// Iterator produces batches of Lines
type Iterator struct {
	parser  *Parser
	scanner *bufio.Scanner
	hasNext bool
	nextRow int
	lineNum int
}

// HasNextBatch returns true iff this Iterator may produce another batch
func (it *Iterator) HasNextBatch() bool {
	return it.hasNext
}

// NextBatch returns up to BatchSize Lines, or an error
func (it *Iterator) NextBatch() ([]Line, error) {
	batch := make([]Line, 0, it.parser.BatchSize())
	for len(batch) < it.parser.BatchSize() {
		if !it.scanner.Scan() {
			it.hasNext = false
			if err := it.scanner.Err(); err != nil {
				return nil, err
			}
			return batch, nil
		}
		it.lineNum++
		lineString := it.scanner.Text()
		if it.parser.skip(lineString) {
			continue
		}
		if !gjson.Valid(lineString) {
			logging.Debugf("Unable to parse line:\n\t%s", lineString)
			return nil, fmt.Errorf("Line %d is not valid JSON", it.lineNum)
		}
		result := gjson.Parse(lineString)
		row := it.nextRow
		if r := result.Get(it.parser.conf.RowPath); r.Exists() {
			if r.Type != gjson.Number || r.Int() < 0 {
				return nil, fmt.Errorf("Line %d: %s must be a non-negative integer. Was: %s", it.lineNum, it.parser.conf.RowPath, r.Raw)
			}
			row = int(r.Int())
		}
		it.nextRow = row + 1
		batch = append(batch, Line{Row: row, JSON: result})
	}
	return batch, nil
}
