// Package copier implements the Shard Copier (spec §4.2): idempotent,
// integrity-checked streaming copy of one shard to its destination, with a
// sorted side index and a root-link marker produced as a byproduct of the
// same pass over the bytes. The three writes run under one errgroup so a
// failure on any leg cancels the others, but the caller sees every leg's
// failure combined via go-multierror rather than just whichever happened
// first.
package copier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multihash"
	"golang.org/x/sync/errgroup"

	"github.com/storacha/shard-migrator/pkg/carindex"
	"github.com/storacha/shard-migrator/pkg/migrateerr"
	"github.com/storacha/shard-migrator/pkg/model"
	"github.com/storacha/shard-migrator/pkg/objectio"
)

var log = logging.Logger("copier")

const (
	// DefaultMaxPutSize is the single-PUT/multipart decision threshold.
	DefaultMaxPutSize = 5 * 1024 * 1024 * 1024 // 5 GiB

	// DefaultTargetPartSize is the byte-rope flush threshold for multipart
	// uploads.
	DefaultTargetPartSize = 100 * 1024 * 1024 // 100 MiB

	// firstPartNumber is 1, not 0: per spec §9's open question, the
	// underlying object-store protocol requires part numbers >= 1, so the
	// rope's zero-based counting is shifted by one here.
	firstPartNumber = 1
)

// Options tunes the write-strategy thresholds; the zero value is not valid,
// use DefaultOptions.
type Options struct {
	MaxPutSize     int64
	TargetPartSize int64
}

// DefaultOptions returns the spec's default thresholds.
func DefaultOptions() Options {
	return Options{MaxPutSize: DefaultMaxPutSize, TargetPartSize: DefaultTargetPartSize}
}

// Request names every location a single Copy invocation touches.
type Request struct {
	Src       model.ShardRef
	Dest      model.ObjectRef
	IndexDest model.ObjectRef
	LinkDest  model.ObjectRef
}

// Copy streams Src to Dest, producing a sorted side index at IndexDest and a
// zero-byte root-link marker at LinkDest. srcClient is used for the source
// object; destClient is used for all three destination writes (they share
// one destination store configuration, just different buckets per spec §6).
//
// Copy is idempotent: if Dest already exists, it returns nil without
// reading Src or touching IndexDest/LinkDest.
func Copy(ctx context.Context, srcClient, destClient objectio.Client, req Request, opts Options) error {
	if err := carindex.EnsureCarCid(req.Src.Cid); err != nil {
		return &migrateerr.ValidationError{Field: "shard", Msg: err.Error()}
	}

	if _, err := destClient.Head(ctx, req.Dest.Bucket, req.Dest.Key); err == nil {
		log.Infof("destination s3://%s/%s already exists, skipping copy", req.Dest.Bucket, req.Dest.Key)
		return nil
	} else if err != objectio.ErrNotFound {
		return &migrateerr.UpstreamError{Op: "head destination", Err: err}
	}

	res, err := srcClient.Get(ctx, req.Src.Bucket, req.Src.Key)
	if err != nil {
		if err == objectio.ErrNotFound {
			return &migrateerr.NotFoundError{What: fmt.Sprintf("s3://%s/%s", req.Src.Bucket, req.Src.Key)}
		}
		return &migrateerr.UpstreamError{Op: "get source", Err: err}
	}
	defer res.Body.Close()
	if res.ContentLength == 0 {
		return &migrateerr.NotFoundError{What: fmt.Sprintf("s3://%s/%s has zero length", req.Src.Bucket, req.Src.Key)}
	}

	pr, pw := io.Pipe()
	tee := io.TeeReader(res.Body, pw)

	g, gctx := errgroup.WithContext(ctx)

	var (
		mu       sync.Mutex
		combined *multierror.Error
	)
	record := func(err error) error {
		if err != nil {
			mu.Lock()
			combined = multierror.Append(combined, err)
			mu.Unlock()
		}
		return err
	}

	g.Go(func() error {
		err := writeShard(gctx, destClient, req.Dest, req.Src.Cid, tee, res.ContentLength, opts)
		if err != nil {
			pw.CloseWithError(err)
			return record(err)
		}
		return record(pw.Close())
	})

	g.Go(func() error {
		data, err := buildSideIndex(pr)
		if err != nil {
			pr.CloseWithError(err)
			return record(err)
		}
		if err := destClient.Put(gctx, req.IndexDest.Bucket, req.IndexDest.Key, bytes.NewReader(data), int64(len(data)), ""); err != nil {
			return record(&migrateerr.UpstreamError{Op: "put side index", Err: err})
		}
		return nil
	})

	g.Go(func() error {
		if err := destClient.Put(gctx, req.LinkDest.Bucket, req.LinkDest.Key, bytes.NewReader(nil), 0, ""); err != nil {
			return record(&migrateerr.UpstreamError{Op: "put root link", Err: err})
		}
		return nil
	})

	g.Wait()
	return combined.ErrorOrNil()
}

// writeShard picks the single-PUT or multipart path per spec §4.2.1 and
// streams body into dest, verifying integrity against expected.
func writeShard(ctx context.Context, client objectio.Client, dest model.ObjectRef, expected cid.Cid, body io.Reader, contentLength int64, opts Options) error {
	if contentLength < opts.MaxPutSize {
		digest, err := rawDigest(expected.Hash())
		if err != nil {
			return fmt.Errorf("extracting expected digest: %w", err)
		}
		checksum := base64.StdEncoding.EncodeToString(digest)
		if err := client.Put(ctx, dest.Bucket, dest.Key, body, contentLength, checksum); err != nil {
			return &migrateerr.UpstreamError{Op: "put shard", Err: err}
		}
		return nil
	}
	return writeShardMultipart(ctx, client, dest, expected, body, opts)
}

func writeShardMultipart(ctx context.Context, client objectio.Client, dest model.ObjectRef, expected cid.Cid, body io.Reader, opts Options) error {
	uploadID, err := client.CreateMultipartUpload(ctx, dest.Bucket, dest.Key)
	if err != nil {
		return &migrateerr.UpstreamError{Op: "create multipart upload", Err: err}
	}

	abort := func() {
		if aerr := client.AbortMultipartUpload(ctx, dest.Bucket, dest.Key, uploadID); aerr != nil {
			log.Errorf("aborting multipart upload %s for s3://%s/%s: %s", uploadID, dest.Bucket, dest.Key, aerr)
		}
	}

	hasher := sha256.New()
	var rope bytes.Buffer
	var parts []objectio.Part
	partNumber := int32(firstPartNumber)

	flush := func(final bool) error {
		if rope.Len() == 0 || (!final && int64(rope.Len()) < opts.TargetPartSize) {
			return nil
		}
		data := append([]byte(nil), rope.Bytes()...)
		rope.Reset()
		sum := sha256.Sum256(data)
		checksum := base64.StdEncoding.EncodeToString(sum[:])
		part, err := client.UploadPart(ctx, dest.Bucket, dest.Key, uploadID, partNumber, bytes.NewReader(data), int64(len(data)), checksum)
		if err != nil {
			return err
		}
		parts = append(parts, part)
		partNumber++
		return nil
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			rope.Write(buf[:n])
			if int64(rope.Len()) >= opts.TargetPartSize {
				if err := flush(false); err != nil {
					abort()
					return &migrateerr.UpstreamError{Op: "upload part", Err: err}
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			abort()
			return &migrateerr.UpstreamError{Op: "read shard body", Err: rerr}
		}
	}
	if err := flush(true); err != nil {
		abort()
		return &migrateerr.UpstreamError{Op: "upload final part", Err: err}
	}

	gotCid, err := model.NewShardCid(hasher.Sum(nil))
	if err != nil {
		abort()
		return fmt.Errorf("building computed cid: %w", err)
	}
	wantDigest, err := rawDigest(expected.Hash())
	if err != nil {
		abort()
		return fmt.Errorf("extracting expected digest: %w", err)
	}
	gotDigest, err := rawDigest(gotCid.Hash())
	if err != nil {
		abort()
		return fmt.Errorf("extracting computed digest: %w", err)
	}
	if !bytes.Equal(wantDigest, gotDigest) {
		abort()
		return &migrateerr.IntegrityError{
			Expected: fmt.Sprintf("%x", wantDigest),
			Actual:   fmt.Sprintf("%x", gotDigest),
		}
	}

	if err := client.CompleteMultipartUpload(ctx, dest.Bucket, dest.Key, uploadID, parts); err != nil {
		abort()
		return &migrateerr.UpstreamError{Op: "complete multipart upload", Err: err}
	}
	return nil
}

// buildSideIndex parses r as a CAR stream and serializes its blocks' digests
// and frame offsets as a sorted side index, per spec §4.2.2.
func buildSideIndex(r io.Reader) ([]byte, error) {
	w := carindex.NewSortedIndexWriter()
	for block, err := range carindex.FromCAR(r) {
		if err != nil {
			return nil, fmt.Errorf("indexing shard: %w", err)
		}
		w.Add(block.Cid.Hash(), block.Offset)
	}
	return w.Close()
}

func rawDigest(h multihash.Multihash) ([]byte, error) {
	decoded, err := multihash.Decode(h)
	if err != nil {
		return nil, err
	}
	return decoded.Digest, nil
}
