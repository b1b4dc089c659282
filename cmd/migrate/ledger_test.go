package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFailureLedgerRecordAndReplay(t *testing.T) {
	ledger, err := openFailureLedger(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ledger.Record(ctx, result{item: item{Key: "a.car"}, Error: "boom"}))
	require.NoError(t, ledger.Record(ctx, result{item: item{Key: "b.car"}, Error: "kaboom"}))

	replayed, err := ledger.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, replayed, 2)

	keys := map[string]bool{}
	for _, r := range replayed {
		keys[r.Key] = true
		require.False(t, r.OK)
	}
	require.True(t, keys["a.car"])
	require.True(t, keys["b.car"])

	again, err := ledger.Replay(ctx)
	require.NoError(t, err)
	require.Empty(t, again, "replay must clear entries so they are not replayed twice")
}
