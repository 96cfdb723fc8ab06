package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"cravings/common"
)

// MaxImageSize is the upload ceiling enforced by callers before any
// network or disk write.
const MaxImageSize = 5 * 1024 * 1024

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ValidationError marks an upload rejected before any write happened.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// ValidateImage rejects disallowed MIME types and oversized files. It
// must be called before an upload is attempted.
func ValidateImage(contentType string, size int64) error {
	if _, ok := allowedImageTypes[contentType]; !ok {
		return &ValidationError{msg: fmt.Sprintf("unsupported image type %q (allowed: JPEG, PNG, WebP, GIF)", contentType)}
	}
	if size > MaxImageSize {
		return &ValidationError{msg: "image size should be less than 5MB"}
	}
	return nil
}

// ImagePath builds a unique storage path for an uploaded image, grouped
// under its owning component or entity.
func ImagePath(folder, contentType string) string {
	ext := allowedImageTypes[contentType]
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s-%d%s", folder, uuid.NewString()[:8], time.Now().UnixNano(), ext)
}

// Blob is the storage collaborator used by all image-bearing editors.
// Remove is best effort; a failed cleanup is logged, never fatal.
type Blob interface {
	Upload(path string, r io.Reader, contentType string) (string, error)
	Remove(path string) error
	// PathFromURL recovers the storage path from a public URL produced
	// by Upload; "" when the URL does not belong to this store.
	PathFromURL(url string) string
}

// Disk stores blobs on the local filesystem and serves them under a
// public URL prefix.
type Disk struct {
	Dir     string
	BaseURL string
}

func NewDisk(dir, baseURL string) *Disk {
	return &Disk{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (d *Disk) Upload(path string, r io.Reader, contentType string) (string, error) {
	full := filepath.Join(d.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", err
	}

	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(full)
		return "", err
	}

	return d.BaseURL + "/" + path, nil
}

func (d *Disk) Remove(path string) error {
	full := filepath.Join(d.Dir, filepath.FromSlash(path))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Disk) PathFromURL(url string) string {
	prefix := d.BaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// RemoveURL deletes the blob behind a public URL, best effort.
func RemoveURL(b Blob, url string) {
	path := b.PathFromURL(url)
	if path == "" {
		return
	}
	if err := b.Remove(path); err != nil {
		common.Log.Warn().Err(err).Str("path", path).Msg("could not delete blob from storage")
	}
}
