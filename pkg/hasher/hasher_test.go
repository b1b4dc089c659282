package hasher_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storacha/shard-migrator/pkg/hasher"
	"github.com/storacha/shard-migrator/pkg/model"
	"github.com/storacha/shard-migrator/pkg/objectio"
)

type fakeClient struct {
	objectio.Client
	body []byte
	err  error
}

func (f *fakeClient) Get(ctx context.Context, bucket, key string) (objectio.GetResult, error) {
	if f.err != nil {
		return objectio.GetResult{}, f.err
	}
	return objectio.GetResult{
		Body:          io.NopCloser(bytes.NewReader(f.body)),
		ContentLength: int64(len(f.body)),
	}, nil
}

func TestHashComputesShardCid(t *testing.T) {
	body := []byte("a fake car file's worth of bytes")
	client := &fakeClient{body: body}

	ref, err := hasher.Hash(context.Background(), client, "carpark-prod-0", "bag123.car")
	require.NoError(t, err)

	digest := sha256.Sum256(body)
	want, err := model.NewShardCid(digest[:])
	require.NoError(t, err)
	require.Equal(t, want, ref.Cid)
	require.True(t, model.IsCarCid(ref.Cid))
}

func TestHashPropagatesNotFound(t *testing.T) {
	client := &fakeClient{err: objectio.ErrNotFound}
	_, err := hasher.Hash(context.Background(), client, "carpark-prod-0", "missing.car")
	require.Error(t, err)
}
