package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunConcurrentlyWritesOneResultPerItem(t *testing.T) {
	items := []item{{Key: "a.car"}, {Key: "b.car"}, {Key: "c.car"}}
	var buf bytes.Buffer

	err := runConcurrently(context.Background(), items, 2, 0, &buf, func(ctx context.Context, it item) result {
		return result{item: it, OK: true}
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
}

func TestWithRetryStopsOnFirstSuccess(t *testing.T) {
	var calls int32
	r := withRetry(context.Background(), item{Key: "a.car"}, 3, func(ctx context.Context, it item) result {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			return result{item: it, Error: "transient"}
		}
		return result{item: it, OK: true}
	})
	require.True(t, r.OK)
	require.Equal(t, int32(2), calls)
}

func TestWithRetryRecordsFailureAfterExhaustingAttempts(t *testing.T) {
	r := withRetry(context.Background(), item{Key: "a.car"}, 1, func(ctx context.Context, it item) result {
		return result{item: it, Error: "permanent"}
	})
	require.False(t, r.OK)
	require.Equal(t, "permanent", r.Error)
}

func TestRunConcurrentlyResultsAreValidJSON(t *testing.T) {
	items := []item{{Key: "a.car"}}
	var buf bytes.Buffer
	require.NoError(t, runConcurrently(context.Background(), items, 1, 0, &buf, func(ctx context.Context, it item) result {
		return result{item: it, OK: true, Shard: "bafyabc"}
	}))

	var r result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &r))
	require.True(t, r.OK)
	require.Equal(t, "bafyabc", r.Shard)
}
