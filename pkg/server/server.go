// Package server exposes the Shard Hasher, Shard Copier and Shard
// Reindexer over HTTP (spec §6's request surface) behind a plain
// http.ServeMux.
package server

import (
	"context"
	"errors"
	"net/http"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storacha/shard-migrator/pkg/awsconfig"
	"github.com/storacha/shard-migrator/pkg/dynamotable"
	"github.com/storacha/shard-migrator/pkg/objectio"
)

var log = logging.Logger("server")

// SourceClientFor resolves an object store client for a source region.
// In production this is awsconfig.NewSourceS3Client; tests supply a fake.
type SourceClientFor func(ctx context.Context, region string) (objectio.Client, error)

// Deps are the backends the HTTP handlers call into.
type Deps struct {
	SourceClientFor SourceClientFor
	DestClient      objectio.Client
	Dest            awsconfig.DestConfig
	Table           dynamotable.Table
}

type config struct {
	enableTelemetry bool
}

// Option configures NewServer.
type Option func(*config)

// WithTelemetry wraps every route in an otelhttp span, opt-in the same
// way the other telemetry hooks in this codebase are.
func WithTelemetry() Option {
	return func(c *config) { c.enableTelemetry = true }
}

// ListenAndServe starts an HTTP server exposing hash/copy/reindex/head.
func ListenAndServe(addr string, deps Deps, opts ...Option) error {
	mux := NewServer(deps, opts...)
	srv := &http.Server{Addr: addr, Handler: mux}
	log.Infof("listening on %s", addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewServer builds the request surface named in spec §6: GET /hash,
// POST /copy, POST /reindex, plus a GET /head convenience (§12.4).
func NewServer(deps Deps, opts ...Option) *http.ServeMux {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}

	mux := http.NewServeMux()
	maybeInstrumentAndAdd(mux, "GET /hash", HashHandler(deps), c.enableTelemetry)
	maybeInstrumentAndAdd(mux, "POST /copy", CopyHandler(deps), c.enableTelemetry)
	maybeInstrumentAndAdd(mux, "POST /reindex", ReindexHandler(deps), c.enableTelemetry)
	maybeInstrumentAndAdd(mux, "GET /head", HeadHandler(deps), c.enableTelemetry)
	return mux
}

func maybeInstrumentAndAdd(mux *http.ServeMux, route string, handler http.HandlerFunc, enableTelemetry bool) {
	if enableTelemetry {
		mux.Handle(route, otelhttp.NewHandler(handler, route, otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents)))
	} else {
		mux.HandleFunc(route, handler)
	}
}
