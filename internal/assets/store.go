// Package assets implements the local-disk object store for event cover
// images, including decode, crop-fill transformation and variant encoding.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sagar-1m/Event-Engage/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	JPEGQuality = 82
	WebPQuality = 70
)

// Variant dimensions. Every stored image gets all three, crop-filled to the
// exact size.
var variantSizes = []struct {
	name string
	w, h int
}{
	{"original", 1200, 675},
	{"medium", 800, 450},
	{"thumbnail", 400, 300},
}

// UploadResult describes a stored image and its addressable variants.
type UploadResult struct {
	URL          string
	MediumURL    string
	ThumbnailURL string
	PublicID     string
}

// Store is the asset storage interface the event service depends on.
type Store interface {
	Upload(ctx context.Context, content []byte, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// DiskStore stores images on the local filesystem under rootDir and serves
// them under baseURL (mounted as /media by the server).
type DiskStore struct {
	rootDir        string
	baseURL        string
	maxUploadBytes int64
}

// NewDiskStore creates a DiskStore rooted at rootDir.
func NewDiskStore(rootDir, baseURL string, maxUploadMB int) *DiskStore {
	if maxUploadMB <= 0 {
		maxUploadMB = 5
	}
	return &DiskStore{
		rootDir:        rootDir,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// RootDir returns the directory the store writes under, for static serving.
func (s *DiskStore) RootDir() string {
	return s.rootDir
}

// Upload validates, transforms and persists the image, returning the URLs of
// the three stored variants. Validation problems return a ValidationError;
// any storage or encoding failure returns an AssetUploadError so callers can
// fail the surrounding operation closed.
func (s *DiskStore) Upload(ctx context.Context, content []byte, contentType string) (*UploadResult, error) {
	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxUploadBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadBytes/(1024*1024)))
	}

	detected := http.DetectContentType(content)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type (only JPEG, PNG and WebP are allowed)")
	}
	if provided := normalizeContentType(contentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, detected) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	if err := ctx.Err(); err != nil {
		return nil, models.NewAssetUploadError(err)
	}

	assetID := uuid.New().String()
	publicID := "events/" + assetID
	assetDir := filepath.Join(s.rootDir, "events", assetID)

	result := &UploadResult{PublicID: publicID}
	written := []string{assetDir}

	for _, v := range variantSizes {
		filled := cropFill(decoded, v.w, v.h)

		jpgBytes, err := encodeJPEG(filled, JPEGQuality)
		if err != nil {
			cleanup(written)
			return nil, models.NewAssetUploadError(err)
		}
		webpBytes, err := encodeWebP(filled, WebPQuality)
		if err != nil {
			cleanup(written)
			return nil, models.NewAssetUploadError(err)
		}

		jpgPath := filepath.Join(assetDir, v.name+".jpg")
		if err := writeBytesToFile(jpgPath, jpgBytes); err != nil {
			cleanup(written)
			return nil, models.NewAssetUploadError(err)
		}
		if err := writeBytesToFile(filepath.Join(assetDir, v.name+".webp"), webpBytes); err != nil {
			cleanup(written)
			return nil, models.NewAssetUploadError(err)
		}

		variantURL := fmt.Sprintf("%s/events/%s/%s.jpg", s.baseURL, assetID, v.name)
		switch v.name {
		case "original":
			result.URL = variantURL
		case "medium":
			result.MediumURL = variantURL
		case "thumbnail":
			result.ThumbnailURL = variantURL
		}
	}

	return result, nil
}

// Delete removes every stored variant for the given public ID. Unknown IDs
// are not an error.
func (s *DiskStore) Delete(_ context.Context, publicID string) error {
	if !validPublicID(publicID) {
		return fmt.Errorf("invalid asset reference %q", publicID)
	}
	dir := filepath.Join(s.rootDir, filepath.FromSlash(publicID))
	return os.RemoveAll(dir)
}

var publicIDPattern = regexp.MustCompile(`^events/[A-Za-z0-9._-]+$`)

// validPublicID rejects references that could escape the store root.
func validPublicID(publicID string) bool {
	return publicIDPattern.MatchString(publicID) && !strings.Contains(publicID, "..")
}

// PublicIDFromURL derives the storage reference from a stored image URL.
// It handles both the store's own URLs (/media/events/<id>/original.jpg)
// and legacy single-URL values whose last path segment is a file name; in
// that case the reference is events/<name-without-extension>. An empty
// result means there is nothing to delete.
func PublicIDFromURL(rawURL string) string {
	if strings.TrimSpace(rawURL) == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")

	for i, seg := range segments {
		if seg != "events" || i+1 >= len(segments) {
			continue
		}
		next := segments[i+1]
		if ext := path.Ext(next); ext != "" {
			// Legacy flat layout: events/<filename>.<ext>
			next = strings.TrimSuffix(next, ext)
		}
		if next == "" {
			return ""
		}
		id := "events/" + next
		if !validPublicID(id) {
			return ""
		}
		return id
	}

	// Fall back to the bare file name for URLs without an events segment.
	last := segments[len(segments)-1]
	ext := path.Ext(last)
	if ext == "" || last == ext {
		return ""
	}
	id := "events/" + strings.TrimSuffix(last, ext)
	if !validPublicID(id) {
		return ""
	}
	return id
}

// cropFill scales the source to cover the target rectangle and crops the
// overflow around the center.
func cropFill(src image.Image, targetW, targetH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return src
	}

	scaleW := float64(targetW) / float64(w)
	scaleH := float64(targetH) / float64(h)
	scale := scaleW
	if scaleH > scale {
		scale = scaleH
	}

	scaledW := int(float64(w)*scale + 0.5)
	scaledH := int(float64(h)*scale + 0.5)
	if scaledW < targetW {
		scaledW = targetW
	}
	if scaledH < targetH {
		scaledH = targetH
	}

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, xdraw.Over, nil)

	offsetX := (scaledW - targetW) / 2
	offsetY := (scaledH - targetH) / 2
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xdraw.Copy(dst, image.Point{}, scaled, image.Rect(offsetX, offsetY, offsetX+targetW, offsetY+targetH), xdraw.Over, nil)
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
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(filePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0o600)
}

func cleanup(paths []string) {
	for _, p := range paths {
		_ = os.RemoveAll(p)
	}
}
