package model

import "github.com/ipfs/go-cid"

// NormalizeRootLink converts any CID (v0 or v1, any codec) to its version-1
// form. A RootLink names the logical DAG root whose serialization is
// sharded; only its version is normalized, never its codec or multihash.
func NormalizeRootLink(c cid.Cid) cid.Cid {
	if c.Version() == 1 {
		return c
	}
	return cid.NewCidV1(c.Type(), c.Hash())
}
