package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/storacha/shard-migrator/pkg/hasher"
)

var hashCmd = &cli.Command{
	Name:  "hash",
	Usage: "compute the shard CID of each item (spec §4.1)",
	Flags: commonFlags(),
	Action: func(cCtx *cli.Context) error {
		items, err := loadItems(cCtx)
		if err != nil {
			return err
		}
		endpoint := cCtx.String("endpoint")

		return runConcurrently(cCtx.Context, items, cCtx.Int("concurrency"), cCtx.Int("retries"), cCtx.App.Writer, func(ctx context.Context, it item) result {
			it = fillDefaults(it, cCtx)
			client, err := sourceClient(ctx, endpoint, it.Region)
			if err != nil {
				return result{item: it, Error: err.Error()}
			}
			shard, err := hasher.Hash(ctx, client, it.Bucket, it.Key)
			if err != nil {
				return result{item: it, Error: err.Error()}
			}
			return result{item: it, OK: true, Shard: shard.Cid.String()}
		})
	},
}
