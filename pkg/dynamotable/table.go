// Package dynamotable implements the Shard Reindexer's block-index table
// dependency (spec §4.3, §6): batched point-lookup, batched write and
// batched delete against the block-to-shard-location wide table, keyed on
// the composite (blockmultihash, carpath) primary key.
package dynamotable

import (
	"context"

	"github.com/storacha/shard-migrator/pkg/model"
)

// Table is the narrow surface the reindexer needs over the block-index
// table. Implementations own their own retry discipline for the store's
// "unprocessed items" response (spec §9's "retry for batched writes"):
// callers can assume a returned error means the retry budget was
// exhausted, not that a retry is still owed.
type Table interface {
	// BatchGet looks up up to 100 keys in one round trip. Keys absent from
	// the table are silently omitted from the result, matching spec
	// §4.3 step 2's "rows missing from the response are silently dropped".
	BatchGet(ctx context.Context, keys []model.BlockIndexKey) ([]model.BlockIndexRow, error)

	// BatchPut writes up to 25 rows in one logical operation, retrying
	// unprocessed items internally.
	BatchPut(ctx context.Context, rows []model.BlockIndexRow) error

	// BatchDelete removes up to 25 keys in one logical operation, retrying
	// unprocessed items internally.
	BatchDelete(ctx context.Context, keys []model.BlockIndexKey) error
}
