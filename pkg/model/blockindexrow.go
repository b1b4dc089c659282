package model

import (
	mh "github.com/multiformats/go-multihash"
	"github.com/storacha/shard-migrator/pkg/internal/digestutil"
)

// BlockIndexRow is one row of the block-to-shard-location table. Its
// composite key is (BlockMultihash, CarPath); BlockMultihash is the
// base58btc encoding of a block's multihash, matching the partition key
// format the legacy table already uses.
type BlockIndexRow struct {
	BlockMultihash string
	CarPath        string
	Offset         uint64
	Length         uint64
}

// Key returns the row's composite primary key.
func (r BlockIndexRow) Key() BlockIndexKey {
	return BlockIndexKey{BlockMultihash: r.BlockMultihash, CarPath: r.CarPath}
}

// BlockIndexKey is the composite primary key of a BlockIndexRow.
type BlockIndexKey struct {
	BlockMultihash string
	CarPath        string
}

// Digest decodes BlockMultihash back into a multihash.Multihash.
func (k BlockIndexKey) Digest() (mh.Multihash, error) {
	return digestutil.Parse(k.BlockMultihash)
}
