package upload

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dshills/folio/internal/config"
)

// MinioUploader stores media in an S3-compatible bucket.
type MinioUploader struct {
	client    *minio.Client
	bucket    string
	prefix    string
	publicURL string
}

// NewMinio connects to the bucket described by cfg, creating it when it
// does not exist.
func NewMinio(ctx context.Context, cfg config.UploadConfig) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("upload: minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("upload: checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("upload: creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinioUploader{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    "media",
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Upload implements Uploader.
func (m *MinioUploader) Upload(ctx context.Context, f File) (Result, error) {
	key := ObjectKey(m.prefix, f)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(f.Data), int64(len(f.Data)),
		minio.PutObjectOptions{
			ContentType: f.Type(),
			UserMetadata: map[string]string{
				"filename": f.Name,
			},
		})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		return Result{}, fmt.Errorf("put %s (code %s): %w", key, resp.Code, err)
	}
	return Result{URL: m.publicURL + "/" + key, Key: key}, nil
}

// ObjectKey names the stored object: prefix, a random id, and the
// file's extension.
func ObjectKey(prefix string, f File) string {
	return path.Join(prefix, f.Kind(), uuid.NewString()+strings.ToLower(filepath.Ext(f.Name)))
}
