// Package signature inspects consent signatures captured on the drawing
// pad, which arrive as PNG data URLs.
package signature

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"strings"
)

const pngPrefix = "data:image/png;base64,"

var (
	ErrNotPNG  = errors.New("signature must be a PNG data URL")
	ErrCorrupt = errors.New("signature image cannot be decoded")
)

// Decode parses a PNG data URL.
func Decode(dataURL string) (image.Image, error) {
	if !strings.HasPrefix(dataURL, pngPrefix) {
		return nil, ErrNotPNG
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngPrefix))
	if err != nil {
		return nil, ErrCorrupt
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrCorrupt
	}
	return img, nil
}

// IsBlank reports whether nothing was drawn: every pixel has all four
// channels at zero. An empty string is blank.
func IsBlank(dataURL string) (bool, error) {
	if strings.TrimSpace(dataURL) == "" {
		return true, nil
	}
	img, err := Decode(dataURL)
	if err != nil {
		return false, err
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r|g|bl|a != 0 {
				return false, nil
			}
		}
	}
	return true, nil
}

// Encode renders img as a PNG data URL.
func Encode(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return pngPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
