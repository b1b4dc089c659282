package carindex

import (
	"errors"
	"fmt"
	"io"

	mh "github.com/multiformats/go-multihash"
)

// ErrSideIndexNotFound is returned by a SideIndexFetcher when the
// {key}.idx object does not exist, signaling the caller to fall back to
// parsing the shard itself.
var ErrSideIndexNotFound = errors.New("side index not found")

// SideIndexFetcher retrieves the side index object's bytes for a shard, or
// ErrSideIndexNotFound if it is absent. Any other error is fatal.
type SideIndexFetcher func() (io.ReadCloser, error)

// ShardFetcher retrieves the shard's own CAR body, used as a fallback when
// no side index exists.
type ShardFetcher func() (io.ReadCloser, error)

// Multihashes implements the Block Index Stream primitive for the
// reindexer: it prefers the precomputed sorted side index, and falls back
// to streaming the shard itself through the CAR parser, taking each
// block's multihash. The returned sequence is finite, single-consumer and
// not restartable, per spec §4.4.
func Multihashes(sideIndex SideIndexFetcher, shard ShardFetcher) func(yield func(mh.Multihash, error) bool) {
	return func(yield func(mh.Multihash, error) bool) {
		r, err := sideIndex()
		if err == nil {
			defer r.Close()
			for entry, err := range ReadSortedIndex(r) {
				if err != nil {
					yield(nil, fmt.Errorf("reading side index: %w", err))
					return
				}
				if !yield(entry.Digest, nil) {
					return
				}
			}
			return
		}
		if !errors.Is(err, ErrSideIndexNotFound) {
			yield(nil, fmt.Errorf("fetching side index: %w", err))
			return
		}

		sr, err := shard()
		if err != nil {
			yield(nil, fmt.Errorf("fetching shard for fallback indexing: %w", err))
			return
		}
		defer sr.Close()
		for block, err := range FromCAR(sr) {
			if err != nil {
				yield(nil, fmt.Errorf("parsing shard car: %w", err))
				return
			}
			if !yield(block.Cid.Hash(), nil) {
				return
			}
		}
	}
}
