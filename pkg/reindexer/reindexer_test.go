package reindexer_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storacha/shard-migrator/pkg/carindex"
	"github.com/storacha/shard-migrator/pkg/internal/digestutil"
	"github.com/storacha/shard-migrator/pkg/internal/testutil"
	"github.com/storacha/shard-migrator/pkg/model"
	"github.com/storacha/shard-migrator/pkg/reindexer"
)

// memTable is an in-memory dynamotable.Table double, grounded on the same
// narrow-interface-stub style as the copier's memClient.
type memTable struct {
	mu   sync.Mutex
	rows map[model.BlockIndexKey]model.BlockIndexRow
}

func newMemTable() *memTable {
	return &memTable{rows: map[model.BlockIndexKey]model.BlockIndexRow{}}
}

func (m *memTable) BatchGet(ctx context.Context, keys []model.BlockIndexKey) ([]model.BlockIndexRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BlockIndexRow
	for _, k := range keys {
		if row, ok := m.rows[k]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memTable) BatchPut(ctx context.Context, rows []model.BlockIndexRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.rows[row.Key()] = row
	}
	return nil
}

func (m *memTable) BatchDelete(ctx context.Context, keys []model.BlockIndexKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.rows, k)
	}
	return nil
}

func noSideIndex() (io.ReadCloser, error) {
	return nil, carindex.ErrSideIndexNotFound
}

func TestIndexRewritesAllBlocksViaCarFallback(t *testing.T) {
	_, carBytes := testutil.RandomCAR(6, 256)
	digest := sha256.Sum256(carBytes)
	shardCid, err := model.NewShardCid(digest[:])
	require.NoError(t, err)

	src := model.ShardRef{
		ObjectRef: model.ObjectRef{Region: "us-east-2", Bucket: "dotstorage-prod-1", Key: "complete/bag.car"},
		Cid:       shardCid,
	}
	legacyPath := src.ObjectRef.CarPath()

	var blocks []model.Block
	for b, err := range carindex.FromCAR(bytes.NewReader(carBytes)) {
		require.NoError(t, err)
		blocks = append(blocks, b)
	}
	require.NotEmpty(t, blocks)

	table := newMemTable()
	for i, b := range blocks {
		key := model.BlockIndexKey{BlockMultihash: digestutil.Format(b.Cid.Hash()), CarPath: legacyPath}
		table.rows[key] = model.BlockIndexRow{
			BlockMultihash: key.BlockMultihash,
			CarPath:        legacyPath,
			Offset:         uint64(i * 100),
			Length:         50,
		}
	}

	shardFetcher := func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(carBytes)), nil
	}

	result, err := reindexer.Index(context.Background(), table, src, noSideIndex, shardFetcher)
	require.NoError(t, err)
	require.Equal(t, len(blocks), result.Updated)

	canonicalPath := model.CanonicalCarPath(shardCid)
	for _, b := range blocks {
		digestStr := digestutil.Format(b.Cid.Hash())
		_, stillLegacy := table.rows[model.BlockIndexKey{BlockMultihash: digestStr, CarPath: legacyPath}]
		require.False(t, stillLegacy)

		row, ok := table.rows[model.BlockIndexKey{BlockMultihash: digestStr, CarPath: canonicalPath}]
		require.True(t, ok)
		require.Equal(t, uint64(50), row.Length)
	}
}

func TestIndexLeavesUnrelatedCarpathsUntouched(t *testing.T) {
	_, carBytes := testutil.RandomCAR(3, 256)
	digest := sha256.Sum256(carBytes)
	shardCid, err := model.NewShardCid(digest[:])
	require.NoError(t, err)

	src := model.ShardRef{
		ObjectRef: model.ObjectRef{Region: "us-east-2", Bucket: "dotstorage-prod-1", Key: "complete/bag.car"},
		Cid:       shardCid,
	}
	legacyPath := src.ObjectRef.CarPath()

	var blocks []model.Block
	for b, err := range carindex.FromCAR(bytes.NewReader(carBytes)) {
		require.NoError(t, err)
		blocks = append(blocks, b)
	}

	table := newMemTable()
	thirdPath := "us-east-2/dotstorage-prod-1/raw/u/root123/bag.car"
	for _, b := range blocks {
		digestStr := digestutil.Format(b.Cid.Hash())
		table.rows[model.BlockIndexKey{BlockMultihash: digestStr, CarPath: legacyPath}] = model.BlockIndexRow{
			BlockMultihash: digestStr, CarPath: legacyPath, Offset: 1, Length: 2,
		}
		table.rows[model.BlockIndexKey{BlockMultihash: digestStr, CarPath: thirdPath}] = model.BlockIndexRow{
			BlockMultihash: digestStr, CarPath: thirdPath, Offset: 99, Length: 7,
		}
	}

	shardFetcher := func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(carBytes)), nil
	}

	_, err = reindexer.Index(context.Background(), table, src, noSideIndex, shardFetcher)
	require.NoError(t, err)

	for _, b := range blocks {
		digestStr := digestutil.Format(b.Cid.Hash())
		row, ok := table.rows[model.BlockIndexKey{BlockMultihash: digestStr, CarPath: thirdPath}]
		require.True(t, ok)
		require.Equal(t, uint64(99), row.Offset)
		require.Equal(t, uint64(7), row.Length)
	}
}
