// Package datauri decodes the base64 image data URIs clients upload,
// e.g. "data:image/png;base64,iVBORw0KGgo...".
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
)

var (
	ErrMalformed  = errors.New("malformed data URI")
	ErrNotImage   = errors.New("data URI is not an image")
	ErrEmpty      = errors.New("image payload is empty")
	ErrTooLarge   = errors.New("image payload is too large")
	ErrBadPayload = errors.New("image payload is not valid base64")
)

// Image is a decoded data URI.
type Image struct {
	MediaType string // "image/png"
	Extension string // "png"
	Data      []byte
}

// FileName returns "<base>.<ext>".
func (img Image) FileName(base string) string {
	return base + "." + img.Extension
}

// ParseImage decodes an image data URI. maxBytes caps the decoded size;
// zero or less disables the cap.
//
// The extension is the MIME subtype with any structured-syntax suffix
// dropped, so "image/svg+xml" becomes "svg".
func ParseImage(uri string, maxBytes int) (Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing data: scheme", ErrMalformed)
	}
	header, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing ;base64, separator", ErrMalformed)
	}

	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	typ, subtype, _ := strings.Cut(mediaType, "/")
	if typ != "image" {
		return Image{}, fmt.Errorf("%w: got %q", ErrNotImage, mediaType)
	}
	ext, _, _ := strings.Cut(subtype, "+")
	if ext == "" || strings.ContainsAny(ext, `/\.`) {
		return Image{}, fmt.Errorf("%w: bad subtype %q", ErrMalformed, subtype)
	}

	payload = stripSpace(payload)
	if payload == "" {
		return Image{}, ErrEmpty
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		// Reject before allocating; the exact check below handles padding slack.
		return Image{}, ErrTooLarge
	}

	data, err := decode(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return Image{}, ErrTooLarge
	}

	return Image{MediaType: mediaType, Extension: ext, Data: data}, nil
}

// decode accepts padded and unpadded standard base64.
func decode(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") || len(s)%4 == 0 {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
