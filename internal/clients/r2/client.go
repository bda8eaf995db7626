// Package r2 provides an S3-compatible object storage client (Cloudflare R2,
// AWS S3, MinIO) used as a durable content cache backend.
package r2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// maxDeleteBatch is the DeleteObjects per-request limit.
const maxDeleteBatch = 1000

// Config holds connection settings.
type Config struct {
	Endpoint        string // empty for AWS S3
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

var _ clientdata.ObjectClient = (*Client)(nil)

// Client wraps the S3 API for a single bucket.
type Client struct {
	s3       *s3.Client
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// NewClient creates a client with static credentials.
func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3:       client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		log:      log.With().Str("client", "r2").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

// Upload stores body under key.
func (c *Client) Upload(ctx context.Context, key string, body *bytes.Reader, size int64) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	c.log.Debug().Str("key", key).Int64("size", size).Msg("Uploaded object")
	return nil
}

// Download returns the object's content. Missing keys return an error
// wrapping fs.ErrNotExist.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("object %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// ListKeys returns every key below prefix.
func (c *Client) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// Delete removes keys in batches.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("failed to delete %s: %s", aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}
