package main

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/urfave/cli/v2"

	"github.com/storacha/shard-migrator/pkg/awsconfig"
	"github.com/storacha/shard-migrator/pkg/model"
	"github.com/storacha/shard-migrator/pkg/objectio"
)

var headCmd = &cli.Command{
	Name:  "head",
	Usage: "report whether each item's destination artifacts exist, without copying (spec §12.4)",
	Flags: commonFlags(),
	Action: func(cCtx *cli.Context) error {
		items, err := loadItems(cCtx)
		if err != nil {
			return err
		}

		dest := awsconfig.LoadDestConfig()
		destClient, err := awsconfig.NewDestS3Client(cCtx.Context, dest)
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

			shardOK := headExists(ctx, destClient, dest.CarparkBucket, model.DestinationKey(shard))
			indexOK := headExists(ctx, destClient, dest.SatnavBucket, model.SideIndexKey(shard))
			linkOK := headExists(ctx, destClient, dest.DudewhereBucket, model.RootLinkKey(root, shard))

			return result{item: it, OK: shardOK && indexOK && linkOK, Shard: shard.String()}
		})
	},
}

func headExists(ctx context.Context, client objectio.Client, bucket, key string) bool {
	_, err := client.Head(ctx, bucket, key)
	return err == nil
}
