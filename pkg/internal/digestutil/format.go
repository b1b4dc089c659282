// Package digestutil converts between a raw multihash and the base58btc
// string spec §3 calls `blockmultihash` — the partition key half of the
// block-index table's composite key.
package digestutil

import (
	"fmt"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// Format renders digest as the blockmultihash string stored in, and
// looked up by, the block-index table.
func Format(digest multihash.Multihash) string {
	key, _ := multibase.Encode(multibase.Base58BTC, digest)
	return key
}

// Parse recovers a multihash from a blockmultihash string.
func Parse(input string) (multihash.Multihash, error) {
	_, bytes, err := multibase.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("decoding multibase encoded digest: %s", err)
	}
	digest, err := multihash.Cast(bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid multihash digest: %s", err)
	}
	return digest, nil
}
