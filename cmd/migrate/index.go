package main

import (
	"context"
	"errors"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/urfave/cli/v2"

	"github.com/storacha/shard-migrator/pkg/awsconfig"
	"github.com/storacha/shard-migrator/pkg/carindex"
	"github.com/storacha/shard-migrator/pkg/dynamotable"
	"github.com/storacha/shard-migrator/pkg/model"
	"github.com/storacha/shard-migrator/pkg/objectio"
	"github.com/storacha/shard-migrator/pkg/reindexer"
)

var indexCmd = &cli.Command{
	Name:  "index",
	Usage: "rewrite each item's block-index rows to the canonical destination carpath (spec §4.3)",
	Flags: commonFlags(),
	Action: func(cCtx *cli.Context) error {
		items, err := loadItems(cCtx)
		if err != nil {
			return err
		}
		endpoint := cCtx.String("endpoint")

		blockIndex := awsconfig.LoadBlockIndexConfig()
		dynamoClient, err := awsconfig.NewBlockIndexDynamoClient(cCtx.Context, blockIndex)
		if err != nil {
			return err
		}
		table := dynamotable.NewDynamoTable(dynamoClient, blockIndex.Table)
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

			cacheKey := "index:" + shard.String()
			if cache != nil {
				if _, err := cache.Get(ctx, cacheKey); err == nil {
					return result{item: it, OK: true, Shard: shard.String()}
				}
			}

			srcClient, err := sourceClient(ctx, endpoint, it.Region)
			if err != nil {
				return result{item: it, Error: err.Error()}
			}

			src := model.ShardRef{
				ObjectRef: model.ObjectRef{Region: it.Region, Bucket: it.Bucket, Key: it.Key},
				Cid:       shard,
			}
			sideIndex := func() (io.ReadCloser, error) {
				res, err := srcClient.Get(ctx, it.Bucket, it.Key+".idx")
				if errors.Is(err, objectio.ErrNotFound) {
					return nil, carindex.ErrSideIndexNotFound
				}
				return res.Body, err
			}
			shardFetcher := func() (io.ReadCloser, error) {
				res, err := srcClient.Get(ctx, it.Bucket, it.Key)
				if err != nil {
					return nil, err
				}
				return res.Body, nil
			}

			indexResult, err := reindexer.Index(ctx, table, src, sideIndex, shardFetcher)
			if err != nil {
				return result{item: it, Error: err.Error()}
			}

			if cache != nil {
				if err := cache.Set(ctx, cacheKey, "ok"); err != nil {
					log.Warnf("recording checkpoint for %s: %s", shard, err)
				}
			}
			return result{item: it, OK: true, Shard: shard.String(), Updated: indexResult.Updated}
		})
	},
}
