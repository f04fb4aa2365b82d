// Package blobstore stores post images as opaque objects addressed by key.
//
// Two backends exist: GCS for production and a local directory for
// development and tests. Both hand back a public URL for a key so the URL
// can be saved on the image record and served to clients as-is.
package blobstore

import (
	"context"
	"errors"
	"io"
	"path"
)

// ImagePrefix is the key prefix under which every post image is stored.
const ImagePrefix = "media/blog_images/"

// ErrNotFound is returned by Get when no object exists for the key.
var ErrNotFound = errors.New("blobstore: object not found")

// Store is the capability the post service needs from object storage.
//
// Put overwrites any existing object at key. Delete of a missing key is not
// an error, so retried deletes converge.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Close() error
}

// ImageKey returns the storage key for an image file name such as "<uuid>.png".
func ImageKey(fileName string) string {
	return ImagePrefix + path.Base(fileName)
}
