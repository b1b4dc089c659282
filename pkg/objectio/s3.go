package objectio

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("objectio")

// S3Client implements Client on top of an aws-sdk-go-v2 S3 client. Unlike
// a fixed bucket+key-prefix store, this adapter takes bucket/key per
// call, since a single Copy invocation addresses both a source and a
// destination ObjectRef that may live in different accounts or regions —
// callers construct one S3Client per region/endpoint via awsconfig.
type S3Client struct {
	s3Client *s3.Client
}

var _ Client = (*S3Client)(nil)

// NewS3Client wraps an already-configured s3.Client.
func NewS3Client(client *s3.Client) *S3Client {
	return &S3Client{s3Client: client}
}

// Head implements Client.
func (c *S3Client) Head(ctx context.Context, bucket, key string) (int64, error) {
	out, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("heading s3://%s/%s: %w", bucket, key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Get implements Client.
func (c *S3Client) Get(ctx context.Context, bucket, key string) (GetResult, error) {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return GetResult{}, ErrNotFound
		}
		return GetResult{}, fmt.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	return GetResult{Body: out.Body, ContentLength: aws.ToInt64(out.ContentLength)}, nil
}

// Put implements Client.
func (c *S3Client) Put(ctx context.Context, bucket, key string, body io.Reader, contentLength int64, checksumSHA256 string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(contentLength),
	}
	if checksumSHA256 != "" {
		input.ChecksumSHA256 = aws.String(checksumSHA256)
		input.ChecksumAlgorithm = types.ChecksumAlgorithmSha256
	}
	_, err := c.s3Client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// CreateMultipartUpload implements Client.
func (c *S3Client) CreateMultipartUpload(ctx context.Context, bucket, key string) (string, error) {
	out, err := c.s3Client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return "", fmt.Errorf("creating multipart upload for s3://%s/%s: %w", bucket, key, err)
	}
	log.Debugf("created multipart upload %s for s3://%s/%s", aws.ToString(out.UploadId), bucket, key)
	return aws.ToString(out.UploadId), nil
}

// UploadPart implements Client.
func (c *S3Client) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, contentLength int64, checksumSHA256 string) (Part, error) {
	out, err := c.s3Client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		UploadId:          aws.String(uploadID),
		PartNumber:        aws.Int32(partNumber),
		Body:              body,
		ContentLength:     aws.Int64(contentLength),
		ChecksumSHA256:    aws.String(checksumSHA256),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return Part{}, fmt.Errorf("uploading part %d for s3://%s/%s: %w", partNumber, bucket, key, err)
	}
	return Part{
		PartNumber:     partNumber,
		ETag:           aws.ToString(out.ETag),
		ChecksumSHA256: checksumSHA256,
	}, nil
}

// CompleteMultipartUpload implements Client.
func (c *S3Client) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []Part) error {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			PartNumber:     aws.Int32(p.PartNumber),
			ETag:           aws.String(p.ETag),
			ChecksumSHA256: aws.String(p.ChecksumSHA256),
		}
	}
	_, err := c.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf("completing multipart upload for s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// AbortMultipartUpload implements Client.
func (c *S3Client) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	_, err := c.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("aborting multipart upload %s for s3://%s/%s: %w", uploadID, bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey"
	}
	return false
}

// ChecksumSHA256 base64-encodes a raw sha256 digest the way the S3 API
// expects it in the ChecksumSHA256 request field.
func ChecksumSHA256(digest [sha256.Size]byte) string {
	return base64.StdEncoding.EncodeToString(digest[:])
}
