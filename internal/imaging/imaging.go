// Package imaging provides content-type validation and best-effort pixel
// dimension probing for uploaded and generated images.
package imaging

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

var allowedMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Allowed reports whether the MIME type is on the upload allow-list.
func Allowed(mimeType string) bool {
	_, ok := allowedMIME[normalize(mimeType)]
	return ok
}

// Extension returns the canonical file extension for an allowed MIME type,
// or ".bin" for anything else.
func Extension(mimeType string) string {
	if ext, ok := allowedMIME[normalize(mimeType)]; ok {
		return ext
	}
	return ".bin"
}

// Probe decodes the image header and returns pixel width and height. A decode
// failure is tolerated: both results are nil and the caller proceeds without
// dimensions.
func Probe(data []byte) (width, height *int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil
	}
	w, h := cfg.Width, cfg.Height
	return &w, &h
}

func normalize(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}
