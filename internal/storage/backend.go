// -------------------------------------------------------------------------------
// Backend - S3-Compatible Object Store Adapter
//
// Project: KCloud / Author: Alex Freidah
//
// Object store adapter for the song and cover blobs, built on AWS SDK v2.
// Connects to any S3-compatible endpoint (OCI, AWS, B2, MinIO) via custom
// endpoint configuration. Every operation is independently time-bounded, with
// short budgets for metadata probes and deletes and long budgets for transfers.
// All failures are classified into the fault taxonomy before they leave this
// file; raw SDK errors never propagate upward.
// -------------------------------------------------------------------------------

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/codes"

	"github.com/nestorara/kcloud-music-api/internal/config"
	"github.com/nestorara/kcloud-music-api/internal/faults"
	"github.com/nestorara/kcloud-music-api/internal/telemetry"
)

// -------------------------------------------------------------------------
// INTERFACE
// -------------------------------------------------------------------------

// ObjectBackend defines the object store operations the lifecycle manager
// needs. Upload returns the generated object key. Delete, Download and
// SignedURL confirm existence first and raise a FileNotFound fault on a miss,
// so ambiguous backend error codes are never misclassified.
type ObjectBackend interface {
	Upload(ctx context.Context, file *UploadFile) (string, error)
	Download(ctx context.Context, fileName string) (*DownloadResult, error)
	Delete(ctx context.Context, fileName string) error
	SignedURL(ctx context.Context, fileName string, expiry time.Duration) (string, error)
	Exists(ctx context.Context, fileName string) (bool, error)
}

// -------------------------------------------------------------------------
// S3 BACKEND IMPLEMENTATION
// -------------------------------------------------------------------------

// S3Backend implements ObjectBackend using AWS SDK v2.
type S3Backend struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	cfg     config.BucketConfig
}

// Compile-time check.
var _ ObjectBackend = (*S3Backend)(nil)

// NewS3Backend creates an S3-compatible object store client. Uses BaseEndpoint
// to direct requests to the configured provider instead of AWS.
func NewS3Backend(cfg config.BucketConfig) *S3Backend {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: cfg.ForcePathStyle,
	})

	return &S3Backend{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Name,
		cfg:     cfg,
	}
}

// Healthy probes the bucket itself. Used by the startup check and the health
// endpoint; a false return means the storage service is unreachable or the
// bucket is missing.
func (b *S3Backend) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.ProbeTimeout)
	defer cancel()
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	return err == nil
}

// -------------------------------------------------------------------------
// OPERATIONS
// -------------------------------------------------------------------------

// Upload streams the file body to the bucket under a freshly generated key
// (random identifier plus the original extension) and returns the key. The
// key is never derived from the client filename, which avoids collisions and
// path injection. Exceeding the transfer budget raises a Timeout fault and
// the upload is considered failed.
func (b *S3Backend) Upload(ctx context.Context, file *UploadFile) (string, error) {
	const operation = "Upload"
	start := time.Now()

	key := NewObjectKey(file.Name)

	ctx, span := telemetry.StartSpan(ctx, "Bucket "+operation,
		telemetry.BucketAttributes(operation, b.bucket, key)...,
	)
	defer span.End()

	// The AWS SDK requires a seekable body to compute the SigV4 payload hash.
	// Multipart bodies are not seekable, so buffer when necessary.
	var seekableBody io.ReadSeeker
	if rs, ok := file.Body.(io.ReadSeeker); ok {
		seekableBody = rs
	} else {
		data, err := io.ReadAll(file.Body)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return "", faults.Wrap(faults.NotReadable, err, "the file body could not be read").During(operation)
		}
		seekableBody = bytes.NewReader(data)
	}

	tctx, cancel := context.WithTimeout(ctx, b.cfg.TransferTimeout)
	defer cancel()

	_, err := b.client.PutObject(tctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          seekableBody,
		ContentLength: aws.Int64(file.Size),
		ContentType:   aws.String(file.Mimetype),
	})

	b.recordOperation(operation, start, err)

	if err != nil {
		f := b.classify(err, "error uploading file", operation)
		span.SetStatus(codes.Error, f.Error())
		span.RecordError(err)
		return "", f
	}

	span.SetAttributes(telemetry.AttrObjectSize.Int64(file.Size))
	return key, nil
}

// Download retrieves a blob. The existence probe runs first so a missing key
// surfaces as FileNotFound rather than a provider-specific GetObject error.
// The returned body must be closed by the caller; closing it releases the
// transfer deadline.
func (b *S3Backend) Download(ctx context.Context, fileName string) (*DownloadResult, error) {
	const operation = "Download"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Bucket "+operation,
		telemetry.BucketAttributes(operation, b.bucket, fileName)...,
	)
	defer span.End()

	if err := b.requireExists(ctx, fileName, operation); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tctx, cancel := context.WithTimeout(ctx, b.cfg.TransferTimeout)

	result, err := b.client.GetObject(tctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(fileName),
	})

	b.recordOperation(operation, start, err)

	if err != nil {
		cancel()
		f := b.classify(err, "error downloading file", operation)
		span.SetStatus(codes.Error, f.Error())
		span.RecordError(err)
		return nil, f
	}

	if result.Body == nil {
		cancel()
		f := faults.New(faults.NotReadable, "the file doesn't appear to be readable").During(operation)
		span.SetStatus(codes.Error, f.Error())
		return nil, f
	}

	size := int64(0)
	if result.ContentLength != nil {
		size = *result.ContentLength
	}
	mimetype := "application/octet-stream"
	if result.ContentType != nil {
		mimetype = *result.ContentType
	}

	span.SetAttributes(telemetry.AttrObjectSize.Int64(size))
	return &DownloadResult{
		Body:     cancelOnClose{ReadCloser: result.Body, cancel: cancel},
		Size:     size,
		Mimetype: mimetype,
	}, nil
}

// Delete removes a blob, probing existence first so the caller can
// distinguish FileNotFound from a backend failure.
func (b *S3Backend) Delete(ctx context.Context, fileName string) error {
	const operation = "Delete"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Bucket "+operation,
		telemetry.BucketAttributes(operation, b.bucket, fileName)...,
	)
	defer span.End()

	if err := b.requireExists(ctx, fileName, operation); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, b.cfg.DeleteTimeout)
	defer cancel()

	_, err := b.client.DeleteObject(tctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(fileName),
	})

	b.recordOperation(operation, start, err)

	if err != nil {
		f := b.classify(err, "error deleting file", operation)
		span.SetStatus(codes.Error, f.Error())
		span.RecordError(err)
		return f
	}
	return nil
}

// SignedURL returns a pre-signed, time-limited GET URL for an existing blob.
// Signing itself is a local computation; only the existence probe touches the
// network.
func (b *S3Backend) SignedURL(ctx context.Context, fileName string, expiry time.Duration) (string, error) {
	const operation = "SignedURL"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Bucket "+operation,
		telemetry.BucketAttributes(operation, b.bucket, fileName)...,
	)
	defer span.End()

	if err := b.requireExists(ctx, fileName, operation); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(fileName),
	}, s3.WithPresignExpires(expiry))

	b.recordOperation(operation, start, err)

	if err != nil {
		f := b.classify(err, "error generating file url", operation)
		span.SetStatus(codes.Error, f.Error())
		span.RecordError(err)
		return "", f
	}
	return req.URL, nil
}

// Exists performs a lightweight metadata probe without downloading the body.
// An explicit "not found" from the backend is the only case returning false;
// network-level failures raise ServiceUnavailable.
func (b *S3Backend) Exists(ctx context.Context, fileName string) (bool, error) {
	const operation = "Exists"
	start := time.Now()

	tctx, cancel := context.WithTimeout(ctx, b.cfg.ProbeTimeout)
	defer cancel()

	_, err := b.client.HeadObject(tctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(fileName),
	})

	b.recordOperation(operation, start, err)

	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, b.classify(err, "error checking if file exists", operation)
	}
	return true, nil
}

// requireExists converts an existence miss into a FileNotFound fault, shared
// by the destructive and read operations.
func (b *S3Backend) requireExists(ctx context.Context, fileName, operation string) error {
	ok, err := b.Exists(ctx, fileName)
	if err != nil {
		return err
	}
	if !ok {
		return faults.Newf(faults.FileNotFound, "the file %q could not be found", fileName).During(operation)
	}
	return nil
}

// -------------------------------------------------------------------------
// KEY GENERATION
// -------------------------------------------------------------------------

// NewObjectKey generates a globally unique object key: a fresh ULID plus the
// lowercased extension of the original filename.
func NewObjectKey(originalName string) string {
	return ulid.Make().String() + strings.ToLower(filepath.Ext(originalName))
}

// -------------------------------------------------------------------------
// ERROR CLASSIFICATION
// -------------------------------------------------------------------------

// classify translates an SDK failure into exactly one fault kind. The
// original error is retained as the cause for server-side logs; message is
// what clients may see.
func (b *S3Backend) classify(err error, message, action string) *faults.Fault {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return faults.Wrap(faults.Timeout, err,
			message+": storage service takes too long to respond").During(action)
	case isNetworkError(err):
		return faults.Wrap(faults.ServiceUnavailable, err,
			message+": storage service not available").During(action)
	default:
		return faults.Wrap(faults.Unknown, err, message).During(action)
	}
}

// isNotFound reports whether the backend explicitly answered "no such object".
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404
}

// isNetworkError reports DNS failures and refused/reset connections.
func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// -------------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------------

// cancelOnClose ties a transfer deadline's cancel func to the body lifetime,
// so the deadline is released when the caller finishes streaming.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// recordOperation updates Prometheus metrics for a bucket operation.
func (b *S3Backend) recordOperation(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	telemetry.BucketRequestsTotal.WithLabelValues(operation, status).Inc()
	telemetry.BucketDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
