package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig describes an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// MinioStore uploads objects to an S3-compatible bucket (Cloudflare R2, MinIO, AWS S3).
// The underlying client is safe for concurrent use.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore builds a path-style client. Endpoint may carry a scheme; plain
// hosts and https URLs use TLS.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	host, secure, err := ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, errors.New("object storage bucket is empty")
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// PutObject uploads data under key without signing the payload.
func (s *MinioStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:          contentType,
		DisableContentSha256: true,
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// ParseEndpoint splits an endpoint such as "https://acct.r2.cloudflarestorage.com"
// into the host expected by the client and whether TLS is used.
func ParseEndpoint(endpoint string) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, errors.New("object storage endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), true, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid object storage endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid object storage endpoint %q: missing host", endpoint)
	}
	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("invalid object storage endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
}
