package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"inmomarket/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadSizeMB = 10
	MasterMaxSize          = 2048
	JPEGQuality            = 82
	WebPQuality            = 70
)

// processedImage is a listing photo normalized to a bounded JPEG master plus a WebP copy.
type processedImage struct {
	JPEG     []byte
	WebP     []byte
	Width    int
	Height   int
	Checksum string
}

// processImage validates one upload and re-encodes it. Bad input is a validation
// error rather than an image store failure.
func processImage(in ImageUpload, index int, maxBytes int64) (*processedImage, error) {
	field := in.Field
	if field == "" {
		field = fmt.Sprintf("images[%d]", index)
	}
	if len(in.Content) == 0 {
		return nil, models.NewFieldValidationError(map[string]string{field: "empty file"})
	}
	if int64(len(in.Content)) > maxBytes {
		return nil, models.NewFieldValidationError(map[string]string{
			field: fmt.Sprintf("file too large (max %dMB)", maxBytes/(1024*1024)),
		})
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewFieldValidationError(map[string]string{field: "invalid image type"})
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewFieldValidationError(map[string]string{field: "invalid image file"})
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return nil, models.NewFieldValidationError(map[string]string{field: "image content type mismatch"})
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)
	jpg, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	wp, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}

	sum := sha256.Sum256(jpg)
	b := master.Bounds()
	return &processedImage{
		JPEG:     jpg,
		WebP:     wp,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

// newObjectKey returns a collision-free key shared by the JPEG and WebP renditions.
func newObjectKey(folder string, ownerID uint) string {
	if folder == "" {
		folder = FolderPublications
	}
	return fmt.Sprintf("%s/%d/%s", folder, ownerID, uuid.NewString())
}

// validKey rejects keys that could escape the storage root.
func validKey(key string) bool {
	folder, _, ok := strings.Cut(key, "/")
	if !ok || (folder != FolderPublications && folder != FolderProfiles) || strings.Contains(key, "..") {
		return false
	}
	return !strings.ContainsAny(key, "\\\x00")
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
