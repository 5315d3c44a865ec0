package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/johnquangdev/grain-sync/pkg/config"
)

// MinIOMirror copies exported recording documents to a MinIO/S3 bucket
type MinIOMirror struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOMirror creates a MinIO client and makes sure the bucket exists
func NewMinIOMirror(ctx context.Context, cfg *config.StorageConfig) (*MinIOMirror, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	mirror := &MinIOMirror{
		client: minioClient,
		bucket: cfg.BucketName,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}

	if err := mirror.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return mirror, nil
}

// ensureBucket creates the bucket when it does not exist yet
func (m *MinIOMirror) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// ObjectKey maps a document's relative path to its key in the bucket
func (m *MinIOMirror) ObjectKey(relativePath string) string {
	return objectKey(m.prefix, relativePath)
}

func objectKey(prefix, relativePath string) string {
	relativePath = strings.TrimLeft(relativePath, "/")
	if prefix == "" {
		return relativePath
	}
	return path.Join(prefix, relativePath)
}

// Upload stores a rendered document in the bucket
func (m *MinIOMirror) Upload(ctx context.Context, relativePath string, payload []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, m.ObjectKey(relativePath), bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", relativePath, err)
	}
	return nil
}

// CountObjects counts the mirrored documents under the configured prefix
func (m *MinIOMirror) CountObjects(ctx context.Context) (int, error) {
	prefix := m.prefix
	if prefix != "" {
		prefix += "/"
	}

	count := 0
	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return 0, fmt.Errorf("error listing objects: %w", object.Err)
		}
		count++
	}
	return count, nil
}
