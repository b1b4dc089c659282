// Package testutil holds fixture helpers shared by the data-plane workers'
// tests: random CAR construction and multihash generation, trimmed to
// what this module's CAR/multihash-shaped tests need.
package testutil

import (
	"bytes"
	crand "crypto/rand"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/storacha/go-ucanto/core/car"
	"github.com/storacha/go-ucanto/core/ipld/block"
)

// RandomBytes returns size cryptographically-random bytes.
func RandomBytes(size int) []byte {
	b := make([]byte, size)
	_, _ = crand.Read(b)
	return b
}

// RandomRawBlock returns a raw-codec block and its link for size random
// bytes.
func RandomRawBlock(size int) (datamodel.Link, []byte) {
	data := RandomBytes(size)
	c, err := cid.Prefix{
		Version:  1,
		Codec:    cid.Raw,
		MhType:   mh.SHA2_256,
		MhLength: -1,
	}.Sum(data)
	if err != nil {
		panic(err)
	}
	return cidlink.Link{Cid: c}, data
}

// RandomCAR builds a CAR v1 file out of blockCount random raw blocks of
// blockSize bytes each, and returns each block's link alongside the CAR's
// bytes. The first block's link (links[0]) is used as the CAR's sole root.
func RandomCAR(blockCount, blockSize int) ([]datamodel.Link, []byte) {
	links := make([]datamodel.Link, 0, blockCount)
	blocks := make([]block.Block, 0, blockCount)
	for i := 0; i < blockCount; i++ {
		link, data := RandomRawBlock(blockSize)
		links = append(links, link)
		blocks = append(blocks, block.NewBlock(link, data))
	}

	roots := []datamodel.Link{links[0]}
	r := car.Encode(roots, func(yield func(block.Block, error) bool) {
		for _, b := range blocks {
			if !yield(b, nil) {
				return
			}
		}
	})
	data, err := io.ReadAll(r)
	if err != nil {
		panic(err)
	}
	return links, data
}

// NewReader is a convenience wrapper so callers don't import bytes just to
// re-read a fixture.
func NewReader(data []byte) io.ReadSeeker {
	return bytes.NewReader(data)
}

// RandomMultihash returns a standalone random sha256 multihash, useful for
// seeding block-index rows in tests that don't need a real CAR block.
func RandomMultihash() mh.Multihash {
	link, _ := RandomRawBlock(32)
	return link.(cidlink.Link).Cid.Hash()
}
