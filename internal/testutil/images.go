package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// JPEG returns a w×h single-colour JPEG.
func JPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	MustNoErr(t, jpeg.Encode(&buf, solid(w, h, c), &jpeg.Options{Quality: 80}), "encode jpeg")
	return buf.Bytes()
}

// PNG returns a w×h single-colour PNG. Use a colour with alpha < 255 to
// exercise transparency handling.
func PNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	MustNoErr(t, png.Encode(&buf, img), "encode png")
	return buf.Bytes()
}

// DecodeConfig returns the dimensions and format of an encoded image.
func DecodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	MustNoErr(t, err, "decode image config")
	return cfg, format
}
