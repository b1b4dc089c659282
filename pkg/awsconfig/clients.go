package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/storacha/shard-migrator/pkg/build"
	"github.com/storacha/shard-migrator/pkg/objectio"
)

// NewSourceS3Client builds an S3 client for region using the process's
// ambient credential chain (the source store is read with whatever role
// the driver already runs as; spec §6 names no SRC_* credential
// variables).
func NewSourceS3Client(ctx context.Context, region string) (*objectio.S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region), config.WithAppID(build.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("loading aws config for region %s: %w", region, err)
	}
	return objectio.NewS3Client(s3.NewFromConfig(cfg)), nil
}

// NewDestS3Client builds an S3 client for the destination store from a
// DestConfig, overriding both the endpoint (R2 and other S3-compatible
// stores need this) and the static credentials, the same
// config.WithCredentialsProvider/BaseEndpoint combination used elsewhere
// in this codebase's test helpers to point a client at a non-AWS endpoint.
func NewDestS3Client(ctx context.Context, cfg DestConfig) (*objectio.S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			},
		}),
		config.WithAppID(build.UserAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config for destination: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return objectio.NewS3Client(client), nil
}

// NewBlockIndexDynamoClient builds a DynamoDB client for the block-index
// table's region, using the ambient credential chain with a region
// override — the same per-table region-override idiom as
// pkg/aws/service.go's Construct (cfg.Config.Copy(); cfg.Region = ...).
func NewBlockIndexDynamoClient(ctx context.Context, cfg BlockIndexConfig) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region), config.WithAppID(build.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("loading aws config for block index table: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}
