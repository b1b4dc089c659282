package main

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/urfave/cli/v2"
)

// listCmd enumerates a bucket's objects as NDJSON {region,bucket,key}
// lines, the bootstrapping step that feeds the rest of the driver's
// subcommands. It talks to S3 directly rather than through
// pkg/objectio.Client: that interface is deliberately a narrow
// GET/HEAD/PUT/multipart surface for the data-plane workers (see its own
// doc comment) and was never meant to carry a listing operation.
var listCmd = &cli.Command{
	Name:  "list",
	Usage: "list objects in a bucket as NDJSON items",
	Flags: append(commonFlags(), &cli.StringFlag{
		Name:  "prefix",
		Usage: "only list keys under this prefix",
	}),
	Action: func(cCtx *cli.Context) error {
		region := cCtx.String("region")
		bucket := cCtx.String("bucket")
		if region == "" || bucket == "" {
			return fmt.Errorf("--region and --bucket are required")
		}

		cfg, err := config.LoadDefaultConfig(cCtx.Context, config.WithRegion(region))
		if err != nil {
			return err
		}
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if endpoint := cCtx.String("endpoint"); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})

		var prefix *string
		if p := cCtx.String("prefix"); p != "" {
			prefix = aws.String(p)
		}

		paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: prefix,
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(cCtx.Context)
			if err != nil {
				return fmt.Errorf("listing s3://%s: %w", bucket, err)
			}
			for _, obj := range page.Contents {
				if err := writeResult(cCtx.App.Writer, result{
					item: item{Region: region, Bucket: bucket, Key: aws.ToString(obj.Key)},
					OK:   true,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	},
}
