package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/storacha/shard-migrator/pkg/checkpoint"
	"github.com/storacha/shard-migrator/pkg/objectio"
)

// sourceClient builds an objectio.Client for region, honoring an optional
// endpoint override the same way awsconfig.NewDestS3Client overrides
// BaseEndpoint for non-AWS stores.
func sourceClient(ctx context.Context, endpoint, region string) (objectio.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config for region %s: %w", region, err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return objectio.NewS3Client(client), nil
}

// checkpointStore builds the optional shard-completion cache (spec §12
// supplement 2). A blank redisURL disables it; callers that receive a nil
// store must treat every lookup as a cache miss.
func checkpointStore(cCtx *cli.Context) (*checkpoint.Store[string, string], error) {
	redisURL := cCtx.String("redis-url")
	if redisURL == "" {
		return nil, nil
	}
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing --redis-url: %w", err)
	}
	client := goredis.NewClient(opts)
	return checkpoint.NewShardStore(client), nil
}
