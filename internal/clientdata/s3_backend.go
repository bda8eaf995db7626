package clientdata

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
)

// ObjectClient is the object-storage surface the S3 backend needs.
// It is satisfied by the R2/S3 client in internal/clients/r2.
type ObjectClient interface {
	Upload(ctx context.Context, key string, body *bytes.Reader, size int64) error
	Download(ctx context.Context, key string) ([]byte, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
}

// S3Backend keeps cache units in an S3-compatible bucket under a key prefix.
// Single object PUTs are atomic, so WriteFile needs no temp object.
type S3Backend struct {
	client ObjectClient
	prefix string
}

// NewS3Backend creates a backend rooted at prefix (e.g. "content-cache/").
func NewS3Backend(client ObjectClient, prefix string) *S3Backend {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Backend{client: client, prefix: prefix}
}

func (b *S3Backend) Kind() string {
	return "s3"
}

func (b *S3Backend) key(name string) string {
	return b.prefix + strings.TrimPrefix(path.Clean("/"+name), "/")
}

func (b *S3Backend) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return b.client.Download(ctx, b.key(name))
}

func (b *S3Backend) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := b.client.Upload(ctx, b.key(name), bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

func (b *S3Backend) RemoveAll(ctx context.Context, dir string) error {
	keys, err := b.client.ListKeys(ctx, b.key(dir)+"/")
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete %s: %w", dir, err)
	}
	return nil
}

func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	full := b.prefix
	if prefix != "" {
		full = b.key(prefix) + "/"
	}
	keys, err := b.client.ListKeys(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("failed to list content cache: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, b.prefix))
	}
	return names, nil
}
