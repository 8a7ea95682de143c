// Package storage holds listing photos and profile pictures outside the database.
package storage

import (
	"context"
	"fmt"
	"strings"

	"inmomarket/internal/config"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Folders group stored images by what they belong to.
const (
	FolderPublications = "publications"
	FolderProfiles     = "profiles"
)

// ImageUpload is one raw file received from a client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
	// Folder defaults to FolderPublications.
	Folder string
	// Field names the upload in validation errors; defaults to "images[<index>]".
	Field string
}

// ImageRef locates a stored image. Key is opaque to callers and only used for deletion.
type ImageRef struct {
	URL string
	Key string
}

// ImageStore persists processed listing images.
type ImageStore interface {
	// Upload stores every image or none: on failure, images already written are removed.
	Upload(ctx context.Context, ownerID uint, uploads []ImageUpload) ([]ImageRef, error)
	Delete(ctx context.Context, ref ImageRef) error
}

// New builds the store selected by IMAGE_STORE.
func New(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	switch strings.ToLower(cfg.ImageStore) {
	case "", BackendLocal:
		return NewLocalStore(cfg), nil
	case BackendS3:
		return NewObjectStore(ctx, ObjectStoreConfig{
			Endpoint:        cfg.S3Endpoint,
			AccessKey:       cfg.S3AccessKey,
			SecretKey:       cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UseSSL:          cfg.S3UseSSL,
			MaxUploadSizeMB: cfg.ImageMaxUploadSizeMB,
		})
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}
