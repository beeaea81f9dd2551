// Package objectstore stages blobs in S3.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"go.uber.org/zap"
)

// S3Store uploads and downloads whole objects addressed by s3:// URIs.
type S3Store struct {
	uploader   s3manageriface.UploaderAPI
	downloader s3manageriface.DownloaderAPI
	logger     *zap.Logger
}

// NewS3Store creates a store from s3manager clients.
func NewS3Store(uploader s3manageriface.UploaderAPI, downloader s3manageriface.DownloaderAPI, logger *zap.Logger) *S3Store {
	return &S3Store{
		uploader:   uploader,
		downloader: downloader,
		logger:     logger.Named("objectstore"),
	}
}

// Put writes body to uri and returns the object location.
func (s *S3Store) Put(ctx context.Context, uri string, body io.Reader) (string, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return "", err
	}

	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", uri, err)
	}

	s.logger.Debug("Object uploaded",
		zap.String("uri", uri),
		zap.String("location", out.Location))
	return uri, nil
}

// Get reads the whole object at uri.
func (s *S3Store) Get(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	buf := aws.NewWriteAtBuffer(nil)
	if _, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", uri, err)
	}
	return buf.Bytes(), nil
}

// PutBytes is Put for an in-memory payload.
func (s *S3Store) PutBytes(ctx context.Context, uri string, data []byte) (string, error) {
	return s.Put(ctx, uri, bytes.NewReader(data))
}

// ParseURI splits s3://bucket/key into its parts.
func ParseURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q: expected s3://bucket/key", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q: missing key", uri)
	}
	return u.Host, key, nil
}

// URI joins a bucket and key parts into an s3:// URI.
func URI(bucket string, parts ...string) string {
	return "s3://" + bucket + "/" + strings.TrimPrefix(path.Join(parts...), "/")
}

// IsURI reports whether ref looks like an s3:// reference.
func IsURI(ref string) bool {
	return strings.HasPrefix(ref, "s3://")
}
