package main

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/urfave/cli/v2"

	"github.com/storacha/shard-migrator/pkg/awsconfig"
	"github.com/storacha/shard-migrator/pkg/copier"
	"github.com/storacha/shard-migrator/pkg/model"
)

var copyCmd = &cli.Command{
	Name:  "copy",
	Usage: "copy each item's shard, side index and root-link marker to the destination (spec §4.2)",
	Flags: commonFlags(),
	Action: func(cCtx *cli.Context) error {
		items, err := loadItems(cCtx)
		if err != nil {
			return err
		}
		endpoint := cCtx.String("endpoint")

		dest := awsconfig.LoadDestConfig()
		destClient, err := awsconfig.NewDestS3Client(cCtx.Context, dest)
		if err != nil {
			return err
		}
		cache, err := checkpointStore(cCtx)
		if err != nil {
			return err
		}

		return runConcurrently(cCtx.Context, items, cCtx.Int("concurrency"), cCtx.Int("retries"), cCtx.App.Writer, func(ctx context.Context, it item) result {
			it = fillDefaults(it, cCtx)

			shard, err := cid.Parse(it.Shard)
			if err != nil {
				return result{item: it, Error: "invalid shard: " + err.Error()}
			}
			root, err := cid.Parse(it.Root)
			if err != nil {
				return result{item: it, Error: "invalid root: " + err.Error()}
			}
			root = model.NormalizeRootLink(root)

			if cache != nil {
				if _, err := cache.Get(ctx, shard.String()); err == nil {
					return result{item: it, OK: true, Shard: shard.String()}
				}
			}

			srcClient, err := sourceClient(ctx, endpoint, it.Region)
			if err != nil {
				return result{item: it, Error: err.Error()}
			}

			req := copier.Request{
				Src: model.ShardRef{
					ObjectRef: model.ObjectRef{Region: it.Region, Bucket: it.Bucket, Key: it.Key},
					Cid:       shard,
				},
				Dest:      model.ObjectRef{Bucket: dest.CarparkBucket, Key: model.DestinationKey(shard)},
				IndexDest: model.ObjectRef{Bucket: dest.SatnavBucket, Key: model.SideIndexKey(shard)},
				LinkDest:  model.ObjectRef{Bucket: dest.DudewhereBucket, Key: model.RootLinkKey(root, shard)},
			}
			if err := copier.Copy(ctx, srcClient, destClient, req, copier.DefaultOptions()); err != nil {
				return result{item: it, Error: err.Error()}
			}

			if cache != nil {
				if err := cache.Set(ctx, shard.String(), "ok"); err != nil {
					log.Warnf("recording checkpoint for %s: %s", shard, err)
				}
			}
			return result{item: it, OK: true, Shard: shard.String()}
		})
	},
}
