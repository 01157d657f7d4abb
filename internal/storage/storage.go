// Package storage is the blob store for raw and rendered media, backed by
// Supabase Storage.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	storage_go "github.com/supabase-community/storage-go"
)

// Bucket names, one per media class.
const (
	BucketARoll  = "a-roll"
	BucketBRoll  = "b-roll"
	BucketOutput = "output"
)

// signedURLTTL is how long presigned download links stay valid, in seconds.
const signedURLTTL = 3600

// Blobs wraps the Supabase storage client behind the pipeline's BlobStore
// contract.
type Blobs struct {
	client *storage_go.Client
	log    *logrus.Logger
}

func NewBlobs(client *storage_go.Client, log *logrus.Logger) *Blobs {
	return &Blobs{client: client, log: log}
}

// EnsureBuckets creates the three media buckets if they do not exist yet.
// Called once at boot.
func (b *Blobs) EnsureBuckets() error {
	for _, bucket := range []string{BucketARoll, BucketBRoll, BucketOutput} {
		if _, err := b.client.GetBucket(bucket); err == nil {
			continue
		}
		if _, err := b.client.CreateBucket(bucket, storage_go.BucketOptions{Public: false}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		b.log.WithField("bucket", bucket).Info("Created storage bucket")
	}
	return nil
}

// Put uploads one object.
func (b *Blobs) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := b.client.UploadFile(bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get downloads one object.
func (b *Blobs) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := b.client.DownloadFile(bucket, key)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// PresignedURL issues a time-limited download link for one object.
func (b *Blobs) PresignedURL(ctx context.Context, bucket, key string) (string, error) {
	resp, err := b.client.CreateSignedUrl(bucket, key, signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("sign url for %s/%s: %w", bucket, key, err)
	}
	return resp.SignedURL, nil
}
