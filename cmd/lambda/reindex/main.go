package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storacha/shard-migrator/pkg/awsconfig"
	"github.com/storacha/shard-migrator/pkg/dynamotable"
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

	blockIndex := awsconfig.LoadBlockIndexConfig()
	dynamoClient, err := awsconfig.NewBlockIndexDynamoClient(ctx, blockIndex)
	if err != nil {
		panic(fmt.Errorf("building block index dynamo client: %s", err))
	}

	deps := server.Deps{
		SourceClientFor: func(ctx context.Context, region string) (objectio.Client, error) {
			return awsconfig.NewSourceS3Client(ctx, region)
		},
		Table: dynamotable.NewDynamoTable(dynamoClient, blockIndex.Table),
	}

	handler := server.ReindexHandler(deps)
	instrumentedHandler := otelhttp.NewHandler(handler, "Reindex")
	lambda.Start(httpadapter.NewV2(instrumentedHandler).ProxyWithContext)
}
