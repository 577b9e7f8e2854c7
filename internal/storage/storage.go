// Package storage holds the object store drivers that keep the bytes of uploaded media.
// Records in MongoDB only carry the key and URL returned here.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned by Download when the key does not exist.
var ErrNotFound = errors.New("object not found")

type Store interface {
	// Upload writes size bytes from body under key and returns the public URL,
	// or "" when objects are only reachable through presigned URLs.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// escapeKey escapes every path segment of key but keeps the separators.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
