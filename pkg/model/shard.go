package model

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multicodec"
	mh "github.com/multiformats/go-multihash"
)

// CARCodec is the multicodec identifying a CAR-encoded object as the payload
// of a content identifier, the same way it's looked up (`uint64(multicodec.Car)`)
// wherever a CID is built or checked against the CAR codec elsewhere in this
// codebase.
const CARCodec = uint64(multicodec.Car)

// Sha256Code is the multihash function code for sha256.
const Sha256Code = mh.SHA2_256

// CanonicalBucket is the literal, opaque bucket segment used in canonical
// carpaths after migration. It is not a real region name; see the open
// question in the design notes.
const CanonicalBucket = "auto/carpark-prod-0"

// ShardRef is an ObjectRef naming a CAR file, plus the CID that identifies
// its contents. The invariant Cid.Hash() == sha256(bytes(object at Key)) is
// established by the Hasher and checked by the Copier before it trusts a
// ShardRef's Cid for integrity verification.
type ShardRef struct {
	ObjectRef
	Cid cid.Cid
}

// NewShardCid builds the CID for a shard's contents from its sha256 digest.
func NewShardCid(digest []byte) (cid.Cid, error) {
	mhash, err := mh.Encode(digest, Sha256Code)
	if err != nil {
		return cid.Undef, fmt.Errorf("encoding multihash: %w", err)
	}
	return cid.NewCidV1(CARCodec, mhash), nil
}

// IsCarCid reports whether c has the CAR codec.
func IsCarCid(c cid.Cid) bool {
	return c.Prefix().Codec == CARCodec
}

// CanonicalCarPath is the carpath a block-index row is rewritten to point at
// once its shard has been migrated: "auto/carpark-prod-0/{cid}/{cid}.car".
func CanonicalCarPath(shard cid.Cid) string {
	s := shard.String()
	return fmt.Sprintf("%s/%s/%s.car", CanonicalBucket, s, s)
}

// DestinationKey returns the {shard}/{shard}.car key layout used for the
// shard body, its side index ("...idx") and the convenience variants below.
func DestinationKey(shard cid.Cid) string {
	s := shard.String()
	return fmt.Sprintf("%s/%s.car", s, s)
}

// SideIndexKey is the key layout for a shard's side index object.
func SideIndexKey(shard cid.Cid) string {
	return DestinationKey(shard) + ".idx"
}

// RootLinkKey is the key layout for a root->shard existence marker.
func RootLinkKey(root, shard cid.Cid) string {
	return fmt.Sprintf("%s/%s", root.String(), shard.String())
}
