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
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		panic(fmt.Errorf("error setting up OpenTelemetry: %s", err))
	}
	defer otelShutdown()

	deps := server.Deps{
		SourceClientFor: func(ctx context.Context, region string) (objectio.Client, error) {
			return awsconfig.NewSourceS3Client(ctx, region)
		},
	}

	handler := server.HashHandler(deps)
	instrumentedHandler := otelhttp.NewHandler(handler, "Hash")
	lambda.Start(httpadapter.NewV2(instrumentedHandler).ProxyWithContext)
}
