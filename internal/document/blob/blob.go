// Package blob defines the object-store contract for user documents. Objects
// live under per-owner prefixes; the service layer is responsible for never
// passing a path outside the caller's own prefix.
package blob

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Metadata travels with an object. Category is stored explicitly at upload
// instead of being re-derived from the filename at list time.
type Metadata struct {
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"created_at"`
}

// Object is one stored document as seen by list operations.
type Object struct {
	Path     string
	Size     int64
	Metadata Metadata
}

// Store persists document objects. Implementations: memory, filesystem.
type Store interface {
	Put(ctx context.Context, path string, data []byte, meta Metadata) error
	Get(ctx context.Context, path string) ([]byte, Metadata, error)
	// List enumerates objects under the prefix, newest-first.
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, path string) error
}

// ValidatePath rejects traversal and absolute paths before they reach a
// backend. Object paths are always "<owner-uuid>/<name>".
func ValidatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") {
		return fmt.Errorf("invalid object path %q", path)
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("invalid object path %q", path)
		}
	}
	return nil
}
