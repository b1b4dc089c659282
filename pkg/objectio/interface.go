// Package objectio is the Object I/O Adapter (spec §4.5): a uniform
// GET/HEAD/PUT/multipart surface over an S3-compatible store, with
// checksum headers, so the hasher/copier/reindexer never touch an AWS SDK
// client directly.
package objectio

import (
	"context"
	"io"
)

// Part describes one completed part of a multipart upload.
type Part struct {
	PartNumber     int32
	ETag           string
	ChecksumSHA256 string
}

// GetResult is a streamed object body plus its declared content length.
type GetResult struct {
	Body          io.ReadCloser
	ContentLength int64
}

// Client is the uniform surface the data-plane workers need over an
// object store. Every call carries the ObjectRef's endpoint/region/
// credentials implicitly, via however the concrete implementation was
// constructed (see awsconfig.NewSourceS3Client and awsconfig.NewDestS3Client)
// — two instances with different
// configurations coexist in one Copy operation, one for the source and one
// for the destination, per spec §4.5.
type Client interface {
	// Head reports whether key exists, and its size if so. It returns
	// ErrNotFound (not a generic error) on a 404-equivalent response, so
	// callers can treat "absent" as a normal outcome (spec §4.2's
	// idempotence pre-step and §9's idempotent-destination-check note).
	Head(ctx context.Context, bucket, key string) (size int64, err error)

	// Get streams an object's body along with its content length.
	Get(ctx context.Context, bucket, key string) (GetResult, error)

	// Put uploads an object in a single request, optionally asserting a
	// sha256 checksum the server verifies server-side.
	Put(ctx context.Context, bucket, key string, body io.Reader, contentLength int64, checksumSHA256 string) error

	CreateMultipartUpload(ctx context.Context, bucket, key string) (uploadID string, err error)

	// UploadPart uploads one part, asserting its sha256 checksum.
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, contentLength int64, checksumSHA256 string) (Part, error)

	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []Part) error

	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
}

// ErrNotFound is returned by Head (and Get) when the object does not exist.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "object not found" }
