package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inmomarket/internal/models"
	"inmomarket/internal/observability"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig configures an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Bucket          string
	UseSSL          bool
	Region          string
	MaxUploadSizeMB int
	// SkipBucketCheck leaves bucket provisioning to the operator.
	SkipBucketCheck bool
}

// ObjectStore keeps images in a MinIO or S3 bucket and serves them from the bucket URL.
type ObjectStore struct {
	client             *minio.Client
	bucket             string
	maxUploadSizeBytes int64
}

func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 image store requires endpoint and bucket")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", cfg.Endpoint, err)
	}

	if !cfg.SkipBucketCheck {
		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
			}
			slog.InfoContext(ctx, "Created image bucket", "bucket", cfg.Bucket)
		}
	}

	maxMB := cfg.MaxUploadSizeMB
	if maxMB <= 0 {
		maxMB = DefaultMaxUploadSizeMB
	}
	return &ObjectStore{
		client:             client,
		bucket:             cfg.Bucket,
		maxUploadSizeBytes: int64(maxMB) * 1024 * 1024,
	}, nil
}

func (s *ObjectStore) Upload(ctx context.Context, ownerID uint, uploads []ImageUpload) ([]ImageRef, error) {
	processed := make([]*processedImage, 0, len(uploads))
	for i, in := range uploads {
		p, err := processImage(in, i, s.maxUploadSizeBytes)
		if err != nil {
			return nil, err
		}
		processed = append(processed, p)
	}

	refs := make([]ImageRef, 0, len(processed))
	for i, p := range processed {
		key := newObjectKey(uploads[i].Folder, ownerID)
		meta := map[string]string{"checksum-sha256": p.Checksum}

		if err := s.put(ctx, key+".jpg", p.JPEG, "image/jpeg", meta); err != nil {
			return nil, s.abort(ctx, refs, err)
		}
		if err := s.put(ctx, key+".webp", p.WebP, "image/webp", meta); err != nil {
			_ = s.client.RemoveObject(ctx, s.bucket, key+".jpg", minio.RemoveObjectOptions{})
			return nil, s.abort(ctx, refs, err)
		}

		refs = append(refs, ImageRef{URL: s.objectURL(key + ".jpg"), Key: key})
		observability.ImagesStored.WithLabelValues(BackendS3).Inc()
	}
	return refs, nil
}

func (s *ObjectStore) put(ctx context.Context, name string, data []byte, contentType string, meta map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", name, err)
	}
	return nil
}

func (s *ObjectStore) abort(ctx context.Context, written []ImageRef, cause error) error {
	observability.ImageStoreErrors.WithLabelValues(BackendS3, "upload").Inc()
	for _, ref := range written {
		if err := s.Delete(ctx, ref); err != nil {
			slog.WarnContext(ctx, "Failed to remove partially uploaded image", "key", ref.Key, "error", err)
		}
	}
	return models.NewImageStoreError(cause)
}

func (s *ObjectStore) Delete(ctx context.Context, ref ImageRef) error {
	if !validKey(ref.Key) {
		return models.NewImageStoreError(fmt.Errorf("invalid image key %q", ref.Key))
	}
	var errs []error
	for _, ext := range []string{".jpg", ".webp"} {
		if err := s.client.RemoveObject(ctx, s.bucket, ref.Key+ext, minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		observability.ImageStoreErrors.WithLabelValues(BackendS3, "delete").Inc()
		return models.NewImageStoreError(err)
	}
	return nil
}

func (s *ObjectStore) objectURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.client.EndpointURL().String(), "/"), s.bucket, name)
}
