// Package hasher implements the Shard Hasher (spec §4.1): it streams a
// shard's bytes through sha256 to recover its CID without ever buffering
// the object, the same streaming-over-GET discipline used throughout this
// codebase's object-store adapters for large objects.
package hasher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/shard-migrator/pkg/migrateerr"
	"github.com/storacha/shard-migrator/pkg/model"
	"github.com/storacha/shard-migrator/pkg/objectio"
)

var log = logging.Logger("hasher")

// Hash streams the object at bucket/key and returns the CAR CID implied by
// its sha256 digest. It never reads the whole object into memory: the
// digest is computed incrementally as bytes flow through io.Copy into the
// hash, discarding them as it goes.
func Hash(ctx context.Context, client objectio.Client, bucket, key string) (model.ShardRef, error) {
	res, err := client.Get(ctx, bucket, key)
	if err != nil {
		if err == objectio.ErrNotFound {
			return model.ShardRef{}, &migrateerr.NotFoundError{What: fmt.Sprintf("s3://%s/%s", bucket, key)}
		}
		return model.ShardRef{}, &migrateerr.UpstreamError{Op: "get", Err: err}
	}
	defer res.Body.Close()

	h := sha256.New()
	n, err := io.Copy(h, res.Body)
	if err != nil {
		return model.ShardRef{}, &migrateerr.UpstreamError{Op: "read body", Err: err}
	}
	if res.ContentLength > 0 && n != res.ContentLength {
		return model.ShardRef{}, &migrateerr.IntegrityError{
			Expected: fmt.Sprintf("%d bytes", res.ContentLength),
			Actual:   fmt.Sprintf("%d bytes", n),
		}
	}

	c, err := model.NewShardCid(h.Sum(nil))
	if err != nil {
		return model.ShardRef{}, fmt.Errorf("building shard cid: %w", err)
	}

	log.Debugf("hashed s3://%s/%s (%d bytes) -> %s", bucket, key, n, c)
	return model.ShardRef{
		ObjectRef: model.ObjectRef{Bucket: bucket, Key: key},
		Cid:       c,
	}, nil
}
