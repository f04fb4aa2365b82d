package datauri

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func dataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestParseImage(t *testing.T) {
	img, err := ParseImage(dataURI("image/png", pngHeader), 0)
	require.NoError(t, err)

	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, "png", img.Extension)
	assert.Equal(t, pngHeader, img.Data)
	assert.Equal(t, "abc.png", img.FileName("abc"))
}

func TestParseImage_Extensions(t *testing.T) {
	tests := []struct {
		mediaType string
		want      string
	}{
		{"image/jpeg", "jpeg"},
		{"image/svg+xml", "svg"},
		{"IMAGE/WEBP", "webp"},
		{"image/png; charset=binary", "png"},
	}
	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			img, err := ParseImage(dataURI(tt.mediaType, []byte("x")), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.Extension)
		})
	}
}

func TestParseImage_Errors(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want error
	}{
		{"no scheme", "image/png;base64,AAAA", ErrMalformed},
		{"no separator", "data:image/png,AAAA", ErrMalformed},
		{"plain text", "hello", ErrMalformed},
		{"not an image", dataURI("text/plain", []byte("x")), ErrNotImage},
		{"empty payload", "data:image/png;base64,", ErrEmpty},
		{"bad base64", "data:image/png;base64,!!!!", ErrBadPayload},
		{"bad media type", "data:;base64,AAAA", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImage(tt.uri, 0)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseImage_MaxBytes(t *testing.T) {
	data := []byte(strings.Repeat("a", 10))

	_, err := ParseImage(dataURI("image/png", data), 10)
	assert.NoError(t, err)

	_, err = ParseImage(dataURI("image/png", data), 9)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = ParseImage(dataURI("image/png", []byte(strings.Repeat("a", 1000))), 10)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestParseImage_UnpaddedAndWrapped(t *testing.T) {
	raw := base64.RawStdEncoding.EncodeToString([]byte("hello"))
	img, err := ParseImage("data:image/gif;base64,"+raw, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), img.Data)

	wrapped := "data:image/gif;base64," + raw[:3] + "\n" + raw[3:]
	img, err = ParseImage(wrapped, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), img.Data)
}
