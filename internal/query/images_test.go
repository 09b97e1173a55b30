package query

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/tetmin/mcp-beeper-texts/internal/testutil"
)

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{2000, 1000, 1568, 1568, 784},
		{1000, 3000, 1568, 523, 1568},
		{800, 600, 1568, 800, 600},
		{1568, 1568, 1568, 1568, 1568},
		{5000, 1, 100, 100, 1},
		{10, 10, 0, 10, 10},
	}
	for _, tt := range tests {
		w, h := scaledSize(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("scaledSize(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestOptimizeImageFlattensTransparency(t *testing.T) {
	src := testutil.PNG(t, 16, 16, color.NRGBA{})
	out, err := optimizeImage(src, 1568, 85)
	if err != nil {
		t.Fatalf("optimizeImage: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("format = %s, want jpeg", format)
	}
	r, g, b, _ := img.At(8, 8).RGBA()
	if r < 0xf000 || g < 0xf000 || b < 0xf000 {
		t.Errorf("transparent pixel became %x/%x/%x, want white", r, g, b)
	}
}

func TestOptimizeImageKeepsSmallImages(t *testing.T) {
	out, err := optimizeImage(testutil.JPEG(t, 40, 30, color.Black), 1568, 85)
	if err != nil {
		t.Fatalf("optimizeImage: %v", err)
	}
	cfg, _ := testutil.DecodeConfig(t, out)
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("size = %dx%d, want 40x30", cfg.Width, cfg.Height)
	}
}

func TestOptimizeImageRejectsGarbage(t *testing.T) {
	if _, err := optimizeImage([]byte("definitely not an image"), 1568, 85); err == nil {
		t.Error("expected decode error")
	}
}
