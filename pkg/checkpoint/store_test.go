package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storacha/shard-migrator/pkg/checkpoint"
)

func TestShardStoreRoundTrip(t *testing.T) {
	store := checkpoint.NewShardStore(checkpoint.NewMapStore())
	ctx := context.Background()

	_, err := store.Get(ctx, "bagabc")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)

	require.NoError(t, store.Set(ctx, "bagabc", "ok"))

	got, err := store.Get(ctx, "bagabc")
	require.NoError(t, err)
	require.Equal(t, "ok", got)
}
