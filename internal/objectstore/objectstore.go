// Package objectstore is the object-store client used by NewsStore to
// persist article bodies (spec §4.2, §6: "PUT bucket/key with body + ASCII
// metadata map"). The teacher's own R2Client wrapper type (referenced from
// internal/reliability/r2_backup_service.go) was filtered out of the
// retrieval pack — grepped across the whole pack with zero hits — so this
// client is authored fresh against aws-sdk-go-v2/feature/s3/manager's
// Uploader, which the teacher's go.mod already requires, using the same
// PUT-then-forget upload shape r2_backup_service.go calls through
// r2Client.Upload.
package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client wraps an S3-compatible bucket.
type Client struct {
	uploader *manager.Uploader
	bucket   string
}

// New builds a Client for the given bucket and AWS region. An empty bucket
// makes the NewsStore treat the object store as unconfigured (spec §4.2:
// "the object store is optional").
func New(ctx context.Context, region, bucket string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
		bucket:   bucket,
	}, nil
}

// Configured reports whether a bucket was given.
func (c *Client) Configured() bool { return c.bucket != "" }

// Put uploads body to key with the given ASCII-sanitised metadata map.
func (c *Client) Put(ctx context.Context, key string, body []byte, metadata map[string]string) error {
	if !c.Configured() {
		return fmt.Errorf("objectstore: no bucket configured")
	}
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		Metadata:    metadata,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
