// Package carindex provides the Block Index Stream primitive (spec §4.4):
// a lazy, single-consumer sequence of a shard's blocks, sourced from its
// precomputed side index when present and falling back to parsing the CAR
// itself otherwise.
package carindex

import (
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/storacha/go-ucanto/core/car"
	"github.com/storacha/shard-migrator/pkg/model"
)

// FromCAR parses r as a CAR v1 stream and yields each block it contains in
// file order, with its frame offset and length, by delegating the actual
// framing to the CAR reader the spec assumes exists as a library (here
// github.com/storacha/go-ucanto/core/car).
func FromCAR(r io.Reader) func(yield func(model.Block, error) bool) {
	return func(yield func(model.Block, error) bool) {
		_, blocks, err := car.Decode(r)
		if err != nil {
			yield(model.Block{}, fmt.Errorf("decoding car: %w", err))
			return
		}
		for blk, err := range blocks {
			if err != nil {
				yield(model.Block{}, fmt.Errorf("reading car block: %w", err))
				return
			}
			cb, ok := blk.(car.CarBlock)
			if !ok {
				yield(model.Block{}, fmt.Errorf("car reader did not report block framing for %s", blk.Link()))
				return
			}
			link, ok := blk.Link().(cidlink.Link)
			if !ok {
				yield(model.Block{}, fmt.Errorf("unexpected link type for %s", blk.Link()))
				return
			}
			b := model.Block{Cid: link.Cid, Offset: cb.Offset(), Length: cb.Length()}
			if !yield(b, nil) {
				return
			}
		}
	}
}

// EnsureCarCid is a defensive check used by callers that received a shard
// CID from an untrusted source: a CAR codec CID can't name anything but a
// CAR-shaped object.
func EnsureCarCid(c cid.Cid) error {
	if !model.IsCarCid(c) {
		return fmt.Errorf("not a CAR CID: %s", c)
	}
	return nil
}
