package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"inmomarket/internal/config"
	"inmomarket/internal/models"
	"inmomarket/internal/observability"
)

const (
	DefaultImageUploadDir     = "/tmp/inmomarket/uploads/images"
	DefaultImagePublicBaseURL = "/media"
)

// LocalStore writes images below a directory served by the API under a public base URL.
type LocalStore struct {
	uploadDir          string
	publicBaseURL      string
	maxUploadSizeBytes int64
}

func NewLocalStore(cfg *config.Config) *LocalStore {
	uploadDir := DefaultImageUploadDir
	baseURL := DefaultImagePublicBaseURL
	maxUploadSizeMB := DefaultMaxUploadSizeMB

	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImagePublicBaseURL != "" {
			baseURL = cfg.ImagePublicBaseURL
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &LocalStore{
		uploadDir:          uploadDir,
		publicBaseURL:      strings.TrimRight(baseURL, "/"),
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Dir is the directory the HTTP layer serves under the public base URL.
func (s *LocalStore) Dir() string { return s.uploadDir }

func (s *LocalStore) Upload(ctx context.Context, ownerID uint, uploads []ImageUpload) ([]ImageRef, error) {
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
		jpgAbs := filepath.Join(s.uploadDir, filepath.FromSlash(key+".jpg"))
		webpAbs := filepath.Join(s.uploadDir, filepath.FromSlash(key+".webp"))

		if err := writeBytesToFile(jpgAbs, p.JPEG); err != nil {
			return nil, s.abort(ctx, refs, err)
		}
		if err := writeBytesToFile(webpAbs, p.WebP); err != nil {
			cleanupImageFiles([]string{jpgAbs})
			return nil, s.abort(ctx, refs, err)
		}

		refs = append(refs, ImageRef{URL: s.publicBaseURL + "/" + key + ".jpg", Key: key})
		observability.ImagesStored.WithLabelValues(BackendLocal).Inc()
		slog.DebugContext(ctx, "Stored image", "key", key, "checksum", p.Checksum, "width", p.Width, "height", p.Height)
	}
	return refs, nil
}

func (s *LocalStore) abort(ctx context.Context, written []ImageRef, cause error) error {
	observability.ImageStoreErrors.WithLabelValues(BackendLocal, "upload").Inc()
	for _, ref := range written {
		if err := s.Delete(ctx, ref); err != nil {
			slog.WarnContext(ctx, "Failed to remove partially uploaded image", "key", ref.Key, "error", err)
		}
	}
	return models.NewImageStoreError(cause)
}

// Delete removes both renditions. Deleting a missing image is not an error.
func (s *LocalStore) Delete(_ context.Context, ref ImageRef) error {
	if !validKey(ref.Key) {
		return models.NewImageStoreError(fmt.Errorf("invalid image key %q", ref.Key))
	}
	var errs []error
	for _, ext := range []string{".jpg", ".webp"} {
		path := filepath.Join(s.uploadDir, filepath.FromSlash(ref.Key+ext))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		observability.ImageStoreErrors.WithLabelValues(BackendLocal, "delete").Inc()
		return models.NewImageStoreError(err)
	}
	return nil
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
