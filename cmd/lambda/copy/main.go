package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storacha/shard-migrator/pkg/awsconfig"
	"github.com/storacha/shard-migrator/pkg/objectio"
	"github.com/storacha/shard-migrator/pkg/server"
)

func main() {
	ctx := context.Background()

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		panic(fmt.Errorf("error setting up OpenTelemetry: %s", err))
	}
	defer otelShutdown()

	dest := awsconfig.LoadDestConfig()
	destClient, err := awsconfig.NewDestS3Client(ctx, dest)
	if err != nil {
		panic(fmt.Errorf("building destination S3 client: %s", err))
	}

	deps := server.Deps{
		SourceClientFor: func(ctx context.Context, region string) (objectio.Client, error) {
			return awsconfig.NewSourceS3Client(ctx, region)
		},
		DestClient: destClient,
		Dest:       dest,
	}

	handler := server.CopyHandler(deps)
	instrumentedHandler := otelhttp.NewHandler(handler, "Copy")
	lambda.Start(httpadapter.NewV2(instrumentedHandler).ProxyWithContext)
}
