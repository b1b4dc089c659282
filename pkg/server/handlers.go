package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/ipfs/go-cid"

	"github.com/storacha/shard-migrator/pkg/carindex"
	"github.com/storacha/shard-migrator/pkg/copier"
	"github.com/storacha/shard-migrator/pkg/hasher"
	"github.com/storacha/shard-migrator/pkg/migrateerr"
	"github.com/storacha/shard-migrator/pkg/model"
	"github.com/storacha/shard-migrator/pkg/objectio"
	"github.com/storacha/shard-migrator/pkg/reindexer"
)

// sourceParams are the three parameters every operation shares (spec §6).
type sourceParams struct {
	region string
	bucket string
	key    string
}

func parseSourceParams(q paramSource) (sourceParams, error) {
	region, err := requireParam(q, "region")
	if err != nil {
		return sourceParams{}, err
	}
	if err := validateRegion(region); err != nil {
		return sourceParams{}, err
	}
	bucket, err := requireParam(q, "bucket")
	if err != nil {
		return sourceParams{}, err
	}
	if err := validateBucket(bucket); err != nil {
		return sourceParams{}, err
	}
	key, err := requireParam(q, "key")
	if err != nil {
		return sourceParams{}, err
	}
	if err := validateKey(key); err != nil {
		return sourceParams{}, err
	}
	return sourceParams{region: region, bucket: bucket, key: key}, nil
}

func parseShardParam(q paramSource) (cid.Cid, error) {
	shardStr, err := requireParam(q, "shard")
	if err != nil {
		return cid.Undef, err
	}
	shard, err := cid.Parse(shardStr)
	if err != nil {
		return cid.Undef, &migrateerr.ValidationError{Field: "shard", Msg: err.Error()}
	}
	if err := carindex.EnsureCarCid(shard); err != nil {
		return cid.Undef, &migrateerr.ValidationError{Field: "shard", Msg: err.Error()}
	}
	return shard, nil
}

// HashHandler implements "GET /hash?region=&bucket=&key=".
func HashHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := parseSourceParams(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}

		client, err := deps.SourceClientFor(r.Context(), p.region)
		if err != nil {
			writeError(w, &migrateerr.UpstreamError{Op: "resolve source client", Err: err})
			return
		}

		shard, err := hasher.Hash(r.Context(), client, p.bucket, p.key)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, hashResponse{OK: true, Cid: &cidLink{Link: shard.Cid.String()}})
	}
}

// CopyHandler implements "POST /copy?region=&bucket=&key=&shard=&root=".
func CopyHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := parseSourceParams(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		shard, err := parseShardParam(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		rootStr, err := requireParam(r.URL.Query(), "root")
		if err != nil {
			writeError(w, err)
			return
		}
		root, err := cid.Parse(rootStr)
		if err != nil {
			writeError(w, &migrateerr.ValidationError{Field: "root", Msg: err.Error()})
			return
		}
		root = model.NormalizeRootLink(root)

		srcClient, err := deps.SourceClientFor(r.Context(), p.region)
		if err != nil {
			writeError(w, &migrateerr.UpstreamError{Op: "resolve source client", Err: err})
			return
		}

		req := copier.Request{
			Src: model.ShardRef{
				ObjectRef: model.ObjectRef{Region: p.region, Bucket: p.bucket, Key: p.key},
				Cid:       shard,
			},
			Dest:      model.ObjectRef{Bucket: deps.Dest.CarparkBucket, Key: model.DestinationKey(shard)},
			IndexDest: model.ObjectRef{Bucket: deps.Dest.SatnavBucket, Key: model.SideIndexKey(shard)},
			LinkDest:  model.ObjectRef{Bucket: deps.Dest.DudewhereBucket, Key: model.RootLinkKey(root, shard)},
		}

		if err := copier.Copy(r.Context(), srcClient, deps.DestClient, req, copier.DefaultOptions()); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, copyResponse{OK: true})
	}
}

// ReindexHandler implements "POST /reindex?region=&bucket=&key=&shard=".
func ReindexHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := parseSourceParams(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		shard, err := parseShardParam(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}

		srcClient, err := deps.SourceClientFor(r.Context(), p.region)
		if err != nil {
			writeError(w, &migrateerr.UpstreamError{Op: "resolve source client", Err: err})
			return
		}

		src := model.ShardRef{
			ObjectRef: model.ObjectRef{Region: p.region, Bucket: p.bucket, Key: p.key},
			Cid:       shard,
		}

		sideIndex := func() (io.ReadCloser, error) {
			res, err := srcClient.Get(r.Context(), p.bucket, p.key+".idx")
			if errors.Is(err, objectio.ErrNotFound) {
				return nil, carindex.ErrSideIndexNotFound
			}
			if err != nil {
				return nil, err
			}
			return res.Body, nil
		}
		shardFetcher := func() (io.ReadCloser, error) {
			res, err := srcClient.Get(r.Context(), p.bucket, p.key)
			if err != nil {
				return nil, err
			}
			return res.Body, nil
		}

		result, err := reindexer.Index(r.Context(), deps.Table, src, sideIndex, shardFetcher)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, reindexResponse{OK: true, Updated: result.Updated})
	}
}

// HeadHandler implements "GET /head?shard=&root=", a convenience that
// reports whether a shard's three destination artifacts (spec §8.4) exist
// without re-running Copy (§12.4).
func HeadHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shard, err := parseShardParam(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		rootStr, err := requireParam(r.URL.Query(), "root")
		if err != nil {
			writeError(w, err)
			return
		}
		root, err := cid.Parse(rootStr)
		if err != nil {
			writeError(w, &migrateerr.ValidationError{Field: "root", Msg: err.Error()})
			return
		}
		root = model.NormalizeRootLink(root)

		shardOK := exists(r, deps.DestClient, deps.Dest.CarparkBucket, model.DestinationKey(shard))
		indexOK := exists(r, deps.DestClient, deps.Dest.SatnavBucket, model.SideIndexKey(shard))
		linkOK := exists(r, deps.DestClient, deps.Dest.DudewhereBucket, model.RootLinkKey(root, shard))

		writeJSON(w, http.StatusOK, headResponse{
			OK:    shardOK && indexOK && linkOK,
			Shard: shardOK,
			Index: indexOK,
			Link:  linkOK,
		})
	}
}

func exists(r *http.Request, client objectio.Client, bucket, key string) bool {
	_, err := client.Head(r.Context(), bucket, key)
	return err == nil
}
