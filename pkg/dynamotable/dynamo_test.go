package dynamotable_test

import (
	"context"
	"net/url"
	"os"
	"runtime"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcdynamodb "github.com/testcontainers/testcontainers-go/modules/dynamodb"

	"github.com/storacha/shard-migrator/pkg/dynamotable"
	"github.com/storacha/shard-migrator/pkg/internal/digestutil"
	"github.com/storacha/shard-migrator/pkg/internal/testutil"
	"github.com/storacha/shard-migrator/pkg/model"
)

func TestDynamoTable(t *testing.T) {
	if os.Getenv("CI") != "" && runtime.GOOS != "linux" {
		t.SkipNow()
	}

	ctx := context.Background()
	endpoint := createDynamo(t)
	client := newDynamoClient(t, endpoint)

	tableName := "block-index-" + uuid.NewString()
	createBlockIndexTable(t, client, tableName)

	table := dynamotable.NewDynamoTable(client, tableName)

	digest1 := testutil.RandomMultihash()
	digest2 := testutil.RandomMultihash()
	legacyPath := "us-east-2/dotstorage-prod-1/complete/bag123.car"

	seed := []model.BlockIndexRow{
		{BlockMultihash: digestutil.Format(digest1), CarPath: legacyPath, Offset: 10, Length: 20},
		{BlockMultihash: digestutil.Format(digest2), CarPath: legacyPath, Offset: 30, Length: 40},
	}
	require.NoError(t, table.BatchPut(ctx, seed))

	t.Run("batch get returns seeded rows and drops missing keys", func(t *testing.T) {
		missing := testutil.RandomMultihash()
		keys := []model.BlockIndexKey{
			{BlockMultihash: digestutil.Format(digest1), CarPath: legacyPath},
			{BlockMultihash: digestutil.Format(digest2), CarPath: legacyPath},
			{BlockMultihash: digestutil.Format(missing), CarPath: legacyPath},
		}
		rows, err := table.BatchGet(ctx, keys)
		require.NoError(t, err)
		require.Len(t, rows, 2)
	})

	t.Run("batch put then batch delete is idempotent", func(t *testing.T) {
		canonicalPath := "auto/carpark-prod-0/bag123/bag123.car"
		newRows := []model.BlockIndexRow{
			{BlockMultihash: digestutil.Format(digest1), CarPath: canonicalPath, Offset: 10, Length: 20},
		}
		require.NoError(t, table.BatchPut(ctx, newRows))
		require.NoError(t, table.BatchPut(ctx, newRows), "re-put of same row must be a no-op, not an error")

		oldKeys := []model.BlockIndexKey{{BlockMultihash: digestutil.Format(digest1), CarPath: legacyPath}}
		require.NoError(t, table.BatchDelete(ctx, oldKeys))
		require.NoError(t, table.BatchDelete(ctx, oldKeys), "delete of an already-deleted row must be a no-op")

		rows, err := table.BatchGet(ctx, []model.BlockIndexKey{{BlockMultihash: digestutil.Format(digest1), CarPath: canonicalPath}})
		require.NoError(t, err)
		require.Len(t, rows, 1)

		rows, err = table.BatchGet(ctx, oldKeys)
		require.NoError(t, err)
		require.Len(t, rows, 0)
	})

	t.Run("rows at unrelated carpaths are untouched", func(t *testing.T) {
		otherPath := "us-east-2/dotstorage-prod-1/raw/u/root123/bag123.car"
		require.NoError(t, table.BatchPut(ctx, []model.BlockIndexRow{
			{BlockMultihash: digestutil.Format(digest2), CarPath: otherPath, Offset: 99, Length: 1},
		}))

		require.NoError(t, table.BatchDelete(ctx, []model.BlockIndexKey{{BlockMultihash: digestutil.Format(digest2), CarPath: legacyPath}}))

		rows, err := table.BatchGet(ctx, []model.BlockIndexKey{{BlockMultihash: digestutil.Format(digest2), CarPath: otherPath}})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, uint64(99), rows[0].Offset)
	})
}

func createDynamo(t *testing.T) *url.URL {
	ctx := context.Background()
	container, err := tcdynamodb.Run(ctx, "amazon/dynamodb-local:latest")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	parsed, err := url.Parse("http://" + endpoint)
	require.NoError(t, err)
	return parsed
}

func newDynamoClient(t *testing.T, endpoint *url.URL) *dynamodb.Client {
	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     "DUMMYIDEXAMPLE",
				SecretAccessKey: "DUMMYEXAMPLEKEY",
			},
		}),
		func(o *config.LoadOptions) error {
			o.Region = "us-east-1"
			return nil
		},
	)
	require.NoError(t, err)
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		base := endpoint.String()
		o.BaseEndpoint = &base
	})
}

func createBlockIndexTable(t *testing.T, c *dynamodb.Client, tableName string) {
	_, err := c.CreateTable(context.Background(), &dynamodb.CreateTableInput{
		TableName:   aws.String(tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("blockmultihash"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("carpath"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("blockmultihash"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("carpath"), KeyType: types.KeyTypeRange},
		},
	})
	require.NoError(t, err)
}
