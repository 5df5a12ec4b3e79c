package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/freeeve/cdict/internal/cderr"
)

// MinIO is a Bucket backed by a MinIO (or other S3-compatible) bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO returns a Bucket storing objects under prefix in bucket.
func NewMinIO(client *minio.Client, bucket, prefix string) *MinIO {
	return &MinIO{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewMinIOClient builds a MinIO client from cfg.
func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if cfg.MinIOEndpoint == "" {
		return nil, cderr.InvalidArg("minio endpoint", "not configured")
	}
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOSecure,
		Region: cfg.MinIORegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

func (m *MinIO) key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

func isMinIONotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (m *MinIO) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.key(name), minio.GetObjectOptions{})
	if err != nil {
		if isMinIONotFound(err) {
			return nil, fmt.Errorf("minio://%s/%s: %w", m.bucket, m.key(name), ErrNotFound)
		}
		return nil, fmt.Errorf("get minio://%s/%s: %w", m.bucket, m.key(name), err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isMinIONotFound(err) {
			return nil, fmt.Errorf("minio://%s/%s: %w", m.bucket, m.key(name), ErrNotFound)
		}
		return nil, fmt.Errorf("read minio://%s/%s: %w", m.bucket, m.key(name), err)
	}
	return data, nil
}

func (m *MinIO) Put(ctx context.Context, name string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, m.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("put minio://%s/%s: %w", m.bucket, m.key(name), err)
	}
	return nil
}

func (m *MinIO) Delete(ctx context.Context, name string) error {
	err := m.client.RemoveObject(ctx, m.bucket, m.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isMinIONotFound(err) {
		return fmt.Errorf("delete minio://%s/%s: %w", m.bucket, m.key(name), err)
	}
	return nil
}

func (m *MinIO) List(ctx context.Context, prefix string) ([]string, error) {
	full := m.prefix
	if full != "" {
		full += "/"
	}
	full += prefix

	var names []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    full,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list minio://%s/%s: %w", m.bucket, full, obj.Err)
		}
		name := obj.Key
		if m.prefix != "" {
			name = strings.TrimPrefix(name, m.prefix+"/")
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
