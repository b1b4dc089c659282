package model

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"
)

// Block describes one CAR frame: varint(len) || cid.bytes || payload.
// Offset is the byte position of the frame's varint length prefix within
// the shard; Length covers the whole frame, prefix included.
type Block struct {
	Cid    cid.Cid
	Offset uint64
	Length uint64
}

// Body returns the byte range of the block's payload alone, skipping the
// frame's varint-length prefix and CID bytes.
func (b Block) Body() (offset, length uint64) {
	frameLen := varint.UvarintSize(b.Length)
	cidLen := uint64(len(b.Cid.Bytes()))
	return b.Offset + uint64(frameLen) + cidLen, b.Length - uint64(frameLen) - cidLen
}
