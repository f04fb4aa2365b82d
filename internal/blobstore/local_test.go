package blobstore

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)
	return l
}

func readAll(t *testing.T, s Store, key string) string {
	t.Helper()
	rc, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestLocal_PutGetOverwrite(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()
	key := ImageKey("abc.png")

	require.NoError(t, l.Put(ctx, key, "image/png", strings.NewReader("first")))
	assert.Equal(t, "first", readAll(t, l, key))

	require.NoError(t, l.Put(ctx, key, "image/png", strings.NewReader("second")))
	assert.Equal(t, "second", readAll(t, l, key))

	assert.FileExists(t, filepath.Join(l.Root(), "media", "blog_images", "abc.png"))
}

func TestLocal_Delete(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()
	key := ImageKey("gone.jpeg")

	require.NoError(t, l.Put(ctx, key, "image/jpeg", strings.NewReader("x")))
	require.NoError(t, l.Delete(ctx, key))

	_, err := l.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine.
	assert.NoError(t, l.Delete(ctx, key))
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "/etc/passwd", "../outside", "media/../../outside"} {
		t.Run(key, func(t *testing.T) {
			err := l.Put(ctx, key, "image/png", strings.NewReader("x"))
			assert.Error(t, err)
		})
	}
}

func TestLocal_CancelledContext(t *testing.T) {
	l := newTestLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Put(ctx, ImageKey("a.png"), "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestURLs(t *testing.T) {
	l := newTestLocal(t)
	assert.Equal(t,
		"http://localhost:8080/media/blog_images/abc.png",
		l.URL("media/blog_images/abc.png"))

	assert.Equal(t,
		"https://storage.googleapis.com/my-bucket/media/blog_images/abc.png",
		gcsURL("my-bucket", "media/blog_images/abc.png"))
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "media/blog_images/x.webp", ImageKey("x.webp"))
	// Directory components are stripped.
	assert.Equal(t, "media/blog_images/x.webp", ImageKey("../../x.webp"))
}

func TestNewLocal_RequiresRoot(t *testing.T) {
	_, err := NewLocal(" ", "")
	assert.Error(t, err)
}
