// Package reindexer implements the Shard Reindexer (spec §4.3): it
// rewrites every block-index row belonging to a migrated shard from its
// legacy (region, bucket, key) location to the canonical destination
// carpath, batched and parallelized the way a wide table's rows are walked
// in bulk elsewhere in this codebase's ancestry.
package reindexer

import (
	"context"
	"fmt"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"

	"github.com/storacha/shard-migrator/pkg/carindex"
	"github.com/storacha/shard-migrator/pkg/dynamotable"
	"github.com/storacha/shard-migrator/pkg/internal/digestutil"
	"github.com/storacha/shard-migrator/pkg/migrateerr"
	"github.com/storacha/shard-migrator/pkg/model"
)

var log = logging.Logger("reindexer")

const (
	// getBatchSize is the number of keys per batched point-lookup (spec
	// §4.3 step 2).
	getBatchSize = 100

	// writeBatchSize is the number of rows per batched write/delete (spec
	// §4.3 step 3).
	writeBatchSize = 25

	// writeParallelism is the number of write batches in flight at once
	// (spec §4.3 step 3, §5).
	writeParallelism = 5
)

// Result reports how many rows the reindexer successfully rewrote.
type Result struct {
	Updated int
}

// Index rewrites every block-index row for src's blocks, discovered via
// sideIndex (preferring the precomputed side index, falling back to
// parsing the shard itself per carindex.Multihashes).
func Index(ctx context.Context, table dynamotable.Table, src model.ShardRef, sideIndex carindex.SideIndexFetcher, shard carindex.ShardFetcher) (Result, error) {
	legacyPath := src.ObjectRef.CarPath()
	canonicalPath := model.CanonicalCarPath(src.Cid)

	var legacyKeys []model.BlockIndexKey
	for digest, err := range carindex.Multihashes(sideIndex, shard) {
		if err != nil {
			return Result{}, &migrateerr.UpstreamError{Op: "enumerate multihashes", Err: err}
		}
		legacyKeys = append(legacyKeys, model.BlockIndexKey{
			BlockMultihash: digestutil.Format(digest),
			CarPath:        legacyPath,
		})
	}

	var oldRows []model.BlockIndexRow
	for batch := range chunk(legacyKeys, getBatchSize) {
		rows, err := table.BatchGet(ctx, batch)
		if err != nil {
			return Result{}, &migrateerr.UpstreamError{Op: "fetch old rows", Err: err}
		}
		oldRows = append(oldRows, rows...)
	}

	batches := slices2D(oldRows, writeBatchSize)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(writeParallelism)

	updated := make([]int, len(batches))
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			n, err := rewriteBatch(gctx, table, batch, canonicalPath)
			updated[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	total := 0
	for _, n := range updated {
		total += n
	}
	log.Infof("reindexed %s: %d rows updated", src.Cid, total)
	return Result{Updated: total}, nil
}

// rewriteBatch writes the new canonical rows for batch, then deletes the
// legacy rows, per spec §4.3 step 3's write-new-before-delete-old
// ordering invariant.
func rewriteBatch(ctx context.Context, table dynamotable.Table, batch []model.BlockIndexRow, canonicalPath string) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	newRows := make([]model.BlockIndexRow, len(batch))
	oldKeys := make([]model.BlockIndexKey, len(batch))
	for i, row := range batch {
		newRows[i] = model.BlockIndexRow{
			BlockMultihash: row.BlockMultihash,
			CarPath:        canonicalPath,
			Offset:         row.Offset,
			Length:         row.Length,
		}
		oldKeys[i] = row.Key()
	}

	if err := table.BatchPut(ctx, newRows); err != nil {
		return 0, fmt.Errorf("writing canonical rows: %w", err)
	}
	if err := table.BatchDelete(ctx, oldKeys); err != nil {
		return 0, fmt.Errorf("deleting legacy rows: %w", err)
	}
	return len(batch), nil
}

func chunk(keys []model.BlockIndexKey, size int) func(yield func([]model.BlockIndexKey) bool) {
	return func(yield func([]model.BlockIndexKey) bool) {
		for i := 0; i < len(keys); i += size {
			end := i + size
			if end > len(keys) {
				end = len(keys)
			}
			if !yield(keys[i:end]) {
				return
			}
		}
	}
}

func slices2D(rows []model.BlockIndexRow, size int) [][]model.BlockIndexRow {
	var out [][]model.BlockIndexRow
	for i := 0; i < len(rows); i += size {
		end := i + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[i:end])
	}
	return out
}
