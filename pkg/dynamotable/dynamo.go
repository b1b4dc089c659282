package dynamotable

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/shard-migrator/pkg/migrateerr"
	"github.com/storacha/shard-migrator/pkg/model"
)

var log = logging.Logger("dynamotable")

// maxUnprocessedRetries bounds the retry loop for batch writes/deletes
// reporting unprocessed items, per spec §4.3 step 3a: "retry up to 2 times
// with only the unprocessed subset; remaining unprocessed items after
// retries are a fatal error".
const maxUnprocessedRetries = 2

type item struct {
	BlockMultihash string `dynamodbav:"blockmultihash"`
	CarPath        string `dynamodbav:"carpath"`
	Offset         uint64 `dynamodbav:"offset"`
	Length         uint64 `dynamodbav:"length"`
}

// DynamoTable implements Table over an aws-sdk-go-v2 DynamoDB client, one
// client per table, generalized from a single-Query lookup to the batch
// get/put/delete surface the reindexer needs.
type DynamoTable struct {
	client    *dynamodb.Client
	tableName string
}

var _ Table = (*DynamoTable)(nil)

// NewDynamoTable wraps an already-configured dynamodb.Client.
func NewDynamoTable(client *dynamodb.Client, tableName string) *DynamoTable {
	return &DynamoTable{client: client, tableName: tableName}
}

// BatchGet implements Table.
func (t *DynamoTable) BatchGet(ctx context.Context, keys []model.BlockIndexKey) ([]model.BlockIndexRow, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pending, err := keyAttrs(keys)
	if err != nil {
		return nil, fmt.Errorf("marshaling keys: %w", err)
	}

	var rows []model.BlockIndexRow
	for attempt := 0; attempt <= maxUnprocessedRetries && len(pending) > 0; attempt++ {
		out, err := t.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				t.tableName: {Keys: pending},
			},
		})
		if err != nil {
			return nil, &migrateerr.UpstreamError{Op: "batch get item", Err: err}
		}

		var batch []item
		if err := attributevalue.UnmarshalListOfMaps(out.Responses[t.tableName], &batch); err != nil {
			return nil, fmt.Errorf("deserializing batch get response: %w", err)
		}
		for _, it := range batch {
			rows = append(rows, model.BlockIndexRow(it))
		}

		pending = nil
		if unprocessed, ok := out.UnprocessedKeys[t.tableName]; ok {
			pending = unprocessed.Keys
			if attempt == maxUnprocessedRetries {
				return rows, &migrateerr.UpstreamError{
					Op:  "batch get item",
					Err: fmt.Errorf("%d keys remained unprocessed after %d retries", len(pending), maxUnprocessedRetries),
				}
			}
			log.Warnf("batch get: %d unprocessed keys, retrying (attempt %d)", len(pending), attempt+1)
		}
	}

	return rows, nil
}

// BatchPut implements Table.
func (t *DynamoTable) BatchPut(ctx context.Context, rows []model.BlockIndexRow) error {
	requests := make([]types.WriteRequest, 0, len(rows))
	for _, row := range rows {
		av, err := attributevalue.MarshalMap(item(row))
		if err != nil {
			return fmt.Errorf("marshaling row: %w", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	return t.batchWrite(ctx, "batch put item", requests)
}

// BatchDelete implements Table.
func (t *DynamoTable) BatchDelete(ctx context.Context, keys []model.BlockIndexKey) error {
	requests := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		av, err := keyAttr(key)
		if err != nil {
			return fmt.Errorf("marshaling key: %w", err)
		}
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: av}})
	}
	return t.batchWrite(ctx, "batch delete item", requests)
}

func (t *DynamoTable) batchWrite(ctx context.Context, op string, requests []types.WriteRequest) error {
	if len(requests) == 0 {
		return nil
	}

	pending := requests
	for attempt := 0; attempt <= maxUnprocessedRetries && len(pending) > 0; attempt++ {
		out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{t.tableName: pending},
		})
		if err != nil {
			return &migrateerr.UpstreamError{Op: op, Err: err}
		}

		pending = out.UnprocessedItems[t.tableName]
		if len(pending) > 0 {
			if attempt == maxUnprocessedRetries {
				return &migrateerr.UpstreamError{
					Op:  op,
					Err: fmt.Errorf("%d items remained unprocessed after %d retries", len(pending), maxUnprocessedRetries),
				}
			}
			log.Warnf("%s: %d unprocessed items, retrying (attempt %d)", op, len(pending), attempt+1)
		}
	}
	return nil
}

func keyAttrs(keys []model.BlockIndexKey) ([]map[string]types.AttributeValue, error) {
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		av, err := keyAttr(k)
		if err != nil {
			return nil, err
		}
		out = append(out, av)
	}
	return out, nil
}

func keyAttr(k model.BlockIndexKey) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(struct {
		BlockMultihash string `dynamodbav:"blockmultihash"`
		CarPath        string `dynamodbav:"carpath"`
	}{BlockMultihash: k.BlockMultihash, CarPath: k.CarPath})
}
