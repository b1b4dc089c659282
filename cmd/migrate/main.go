package main

import (
	"context"
	"os"

	"github.com/getsentry/sentry-go"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/storacha/shard-migrator/pkg/build"
	"github.com/storacha/shard-migrator/pkg/telemetry"
)

func main() {
	logging.SetLogLevel("*", "info")

	ctx := context.Background()
	shutdown, err := telemetry.SetupClientTelemetry(ctx)
	if err != nil {
		log.Warnf("telemetry setup failed, continuing without tracing: %s", err)
	} else {
		defer shutdown(ctx)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:           dsn,
			Environment:   os.Getenv("SENTRY_ENVIRONMENT"),
			Release:       build.Version,
			Transport:     sentry.NewHTTPSyncTransport(),
			EnableTracing: false,
		}); err != nil {
			log.Fatalf("initializing sentry: %s", err)
		}
		log = telemetry.NewSentryLogger("migrate")
	}

	app := &cli.App{
		Name:  "migrate",
		Usage: "drive the shard hasher, copier and reindexer over a batch of shards",
		Commands: []*cli.Command{
			listCmd,
			hashCmd,
			copyCmd,
			headCmd,
			indexCmd,
			errorsCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commonFlags are the flags every subcommand accepts per spec §6:
// "--endpoint --region --bucket plus command-specific args".
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "endpoint", Usage: "S3-compatible endpoint to use instead of the default AWS one"},
		&cli.StringFlag{Name: "region", Usage: "region to use for items that omit one"},
		&cli.StringFlag{Name: "bucket", Usage: "bucket to use for items that omit one"},
		&cli.IntFlag{Name: "concurrency", Value: 25, Usage: "number of items processed in parallel (25-50 per spec)"},
		&cli.IntFlag{Name: "retries", Value: 2, Usage: "per-item retry attempts before recording a failure (2-3 per spec)"},
		&cli.StringFlag{Name: "redis-url", EnvVars: []string{"REDIS_URL"}, Usage: "optional checkpoint cache; unset disables it"},
	}
}

// loadItems reads items from positional args when given (interpreted as
// keys, combined with --region/--bucket), or from stdin as NDJSON
// otherwise, matching spec §6: "consuming newline-delimited JSON on stdin
// when a key is not provided as a positional argument".
func loadItems(cCtx *cli.Context) ([]item, error) {
	if cCtx.NArg() > 0 {
		items := make([]item, 0, cCtx.NArg())
		for _, key := range cCtx.Args().Slice() {
			items = append(items, item{
				Region: cCtx.String("region"),
				Bucket: cCtx.String("bucket"),
				Key:    key,
			})
		}
		return items, nil
	}
	return readItems(os.Stdin)
}

func fillDefaults(it item, cCtx *cli.Context) item {
	if it.Region == "" {
		it.Region = cCtx.String("region")
	}
	if it.Bucket == "" {
		it.Bucket = cCtx.String("bucket")
	}
	return it
}
