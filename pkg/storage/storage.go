package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("storage object not found")

// Object describes a stored blob.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// PutOptions carries metadata for a write.
type PutOptions struct {
	ContentType string
	Size        int64
}

// Store persists uploaded binaries behind opaque keys.
type Store interface {
	Driver() string
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}

var fileNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

const maxFileNameLen = 120

// SanitizeFileName strips directories and unsafe characters from a client file name.
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	base = fileNameSanitizer.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._-")
	if base == "" {
		return "image"
	}
	if len(base) > maxFileNameLen {
		ext := filepath.Ext(base)
		if len(ext) > 10 {
			ext = ""
		}
		base = base[:maxFileNameLen-len(ext)] + ext
	}
	return base
}

// UploadKey builds the object key for an uploaded image: uploads/YYYY/MM/DD/<id>/<file>.
func UploadKey(now time.Time, id uuid.UUID, fileName string) string {
	now = now.UTC()
	return fmt.Sprintf("uploads/%04d/%02d/%02d/%s/%s", now.Year(), int(now.Month()), now.Day(), id.String(), SanitizeFileName(fileName))
}

// ValidateKey rejects keys that could escape a storage root.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("storage key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
