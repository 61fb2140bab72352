package util

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)

var ErrEmptyImage = errors.New("empty image")

// SniffMimeHTTP detects PNG and JPEG by magic bytes.
func SniffMimeHTTP(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return MimeJPEG
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return MimePNG
	}
	return "application/octet-stream"
}

// DecodeBase64MaybeDataURL decodes base64. For a data URI the MIME type from
// the prefix is returned as well.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if strings.HasPrefix(s, "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = s[idx+1:]
		}
	}
	// standard alphabet first, then URL-safe, then unpadded variants
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, hintMIME, nil
		}
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return nil, "", err
}

// PickMIME prefers an explicit MIME, then the data URI hint, then sniffing.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return strings.ToLower(exp)
	}
	if h := strings.TrimSpace(hint); h != "" {
		return strings.ToLower(h)
	}
	if len(data) > 0 {
		if m := SniffMimeHTTP(data); m != "application/octet-stream" {
			return m
		}
		return http.DetectContentType(data)
	}
	return MimeJPEG
}

// DecodeImage decodes a PNG or JPEG image given as a data URI or bare base64.
func DecodeImage(s string) ([]byte, string, error) {
	data, hint, err := DecodeBase64MaybeDataURL(s)
	if err != nil {
		return nil, "", fmt.Errorf("bad base64 image: %w", err)
	}
	mime, err := ImageMIME(hint, data)
	if err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

// ImageMIME resolves the MIME type of raw image bytes and rejects anything
// but PNG and JPEG.
func ImageMIME(hint string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	mime := PickMIME("", hint, data)
	if mime == "image/jpg" {
		mime = MimeJPEG
	}
	if mime != MimePNG && mime != MimeJPEG {
		return "", fmt.Errorf("unsupported image type %q", mime)
	}
	return mime, nil
}
