// Package main implements the migrate driver (spec §6's "CLI (driver, OUT
// of core but specified for compatibility)"): a urfave/cli/v2 program that
// batches the Hash/Copy/Reindex operations over newline-delimited JSON,
// the same "read one record, do one unit of work, write one record" shape
// a batch lookup driver uses elsewhere in this codebase's ancestry.
package main

import (
	"bufio"
	"encoding/json"
	"io"
)

// item is one unit of work read from a positional key argument or an
// NDJSON line on stdin. Which fields are required depends on the
// subcommand: list only needs Region/Bucket, hash needs Key too, copy and
// head also need Shard and Root, index needs Shard.
type item struct {
	Region string `json:"region"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Shard  string `json:"shard,omitempty"`
	Root   string `json:"root,omitempty"`
}

// result is one NDJSON line of output: the item that was processed, plus
// whatever the operation produced or failed with.
type result struct {
	item
	OK      bool   `json:"ok"`
	Shard   string `json:"shard,omitempty"`
	Updated int    `json:"updated,omitempty"`
	Error   string `json:"error,omitempty"`
}

// readItems decodes one item per line from r. Blank lines are skipped.
func readItems(r io.Reader) ([]item, error) {
	var items []item
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var it item
		if err := json.Unmarshal(line, &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, scanner.Err()
}

// writeResult appends one NDJSON line to w. Concurrent callers must
// serialize their calls; the driver does so via a mutex in pool.go.
func writeResult(w io.Writer, r result) error {
	enc := json.NewEncoder(w)
	return enc.Encode(r)
}
