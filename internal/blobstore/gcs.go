package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
)

// GCS stores objects in a Google Cloud Storage bucket. Objects are expected
// to be publicly readable (bucket-level IAM), so URL returns the plain
// storage.googleapis.com address instead of a signed URL.
//
// Credentials come from the environment the usual way
// (GOOGLE_APPLICATION_CREDENTIALS or the metadata server).
type GCS struct {
	client *storage.Client
	bucket string
}

var _ Store = (*GCS)(nil)

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("blobstore: gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("blobstore: creating gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// NewGCSWithClient is for callers that build the client themselves,
// e.g. against an emulator.
func NewGCSWithClient(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket}
}

// Put streams r into the object. The upload only becomes visible when the
// writer is closed; a failed Close means nothing was stored.
func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("blobstore: uploading %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("blobstore: finalizing %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: reading %s: %w", key, err)
	}
	return rc, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("blobstore: deleting %s: %w", key, err)
	}
	return nil
}

func (g *GCS) URL(key string) string {
	return gcsURL(g.bucket, key)
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func gcsURL(bucket, key string) string {
	u := &url.URL{Path: "/" + bucket + "/" + key}
	return "https://storage.googleapis.com" + u.EscapedPath()
}
