package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	dsquery "github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	flatfs "github.com/ipfs/go-ds-flatfs"
)

// failureLedgerNamespace scopes the flatfs datastore the same way
// construct.go namespaces its own IPNI/claims datastores, in case the same
// data directory is ever shared with another on-disk store.
var failureLedgerNamespace = datastore.NewKey("migrate/errors/")

// failureLedger is the `errors` subcommand's resumable record of failed
// items (spec §12 supplement 1): each failed result is persisted under a
// random key so a driver run's failures survive a process restart and can
// be replayed with `migrate errors --replay`.
type failureLedger struct {
	ds datastore.Batching
}

// openFailureLedger opens (or creates) a flatfs datastore rooted at
// dataPath, the same flatfs.CreateOrOpen/IPFS_DEF_SHARD/namespace.Wrap
// combination construct.go's WithDataPath uses for its own on-disk store.
func openFailureLedger(dataPath string) (*failureLedger, error) {
	fds, err := flatfs.CreateOrOpen(dataPath, flatfs.IPFS_DEF_SHARD, true)
	if err != nil {
		return nil, fmt.Errorf("opening failure ledger at %s: %w", dataPath, err)
	}
	ds := namespace.Wrap(dssync.MutexWrap(fds), failureLedgerNamespace)
	return &failureLedger{ds: ds}, nil
}

// Record persists a failed result under a fresh key.
func (l *failureLedger) Record(ctx context.Context, r result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling failure: %w", err)
	}
	key := datastore.NewKey(uuid.NewString())
	return l.ds.Put(ctx, key, data)
}

// Replay yields every recorded failure and clears it from the ledger as it
// is read. Keys are random UUIDs and the query sets no order, so the order
// of the returned failures is not defined.
func (l *failureLedger) Replay(ctx context.Context) ([]result, error) {
	results, err := l.ds.Query(ctx, dsquery.Query{})
	if err != nil {
		return nil, fmt.Errorf("querying failure ledger: %w", err)
	}
	defer results.Close()

	var out []result
	for entry := range results.Next() {
		if entry.Error != nil {
			return out, fmt.Errorf("reading failure ledger entry: %w", entry.Error)
		}
		var r result
		if err := json.Unmarshal(entry.Value, &r); err != nil {
			return out, fmt.Errorf("unmarshaling failure ledger entry: %w", err)
		}
		out = append(out, r)
		if err := l.ds.Delete(ctx, datastore.NewKey(entry.Key)); err != nil {
			return out, fmt.Errorf("clearing replayed entry: %w", err)
		}
	}
	return out, nil
}
