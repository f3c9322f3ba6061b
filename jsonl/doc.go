// Package jsonl reads and writes attribute table rows as JSON Lines. Parsing uses https://github.com/tidwall/gjson, and field values are located with gjson paths.
package jsonl
