package main

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
)

// log is a logging.EventLogger, not the concrete *ZapEventLogger, so main
// can swap in a Sentry-backed logger when SENTRY_DSN is configured.
var log logging.EventLogger = logging.Logger("migrate")

// runConcurrently drives work over items with at most concurrency workers
// in flight (spec §6: "Concurrency 25-50"), retrying each item's op up to
// retries times with exponential backoff before giving up and recording a
// failure (spec §7: "the driver CLI records per-item failures to its
// output stream and continues processing the rest"). Results are written
// to out one NDJSON line at a time, serialized behind a mutex since
// multiple workers write concurrently.
func runConcurrently(ctx context.Context, items []item, concurrency, retries int, out io.Writer, op func(context.Context, item) result) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, it := range items {
		it := it
		g.Go(func() error {
			r := withRetry(gctx, it, retries, op)
			mu.Lock()
			defer mu.Unlock()
			return writeResult(out, r)
		})
	}
	return g.Wait()
}

// withRetry runs op, retrying every result that is not OK with exponential
// backoff (spec §7: "driver-level retries for network"); it does not tell
// transient failures apart from permanent ones. It never returns
// an error itself: a failure that exhausts its retries is folded into the
// returned result so the caller can keep processing the rest of the batch.
func withRetry(ctx context.Context, it item, retries int, op func(context.Context, item) result) result {
	var r result
	for attempt := 0; attempt <= retries; attempt++ {
		r = op(ctx, it)
		if r.OK {
			return r
		}
		if attempt == retries {
			break
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * 250 * time.Millisecond
		log.Warnf("attempt %d/%d failed for %s/%s: %s, retrying in %s", attempt+1, retries+1, it.Bucket, it.Key, r.Error, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			r.Error = ctx.Err().Error()
			return r
		}
	}
	return r
}
