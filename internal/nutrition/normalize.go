package nutrition

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"
)

// jpegQuality is the re-encode quality for transport.
const jpegQuality = 85

// StripDataURL removes a "data:image/...;base64," prefix, returning the bare
// base64 payload. Input without a prefix passes through unchanged.
func StripDataURL(s string) string {
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Normalize decodes raw image bytes, flattens them to RGB and re-encodes the
// result as a base64 JPEG suitable for inline transmission. The transform is
// pure: nothing touches the filesystem.
func Normalize(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	rgb := image.NewRGBA(img.Bounds())
	draw.Draw(rgb, rgb.Bounds(), img, img.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// NormalizeBase64 strips any data-URL prefix, decodes the base64 payload and
// runs the bytes through Normalize.
func NormalizeBase64(s string) (string, error) {
	payload := StripDataURL(s)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return Normalize(data)
}
