package deck

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnailShrinksWideImage(t *testing.T) {
	out, err := Thumbnail(encodePNG(t, 400, 200), 100, 80)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("thumbnail is %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestThumbnailKeepsSmallImage(t *testing.T) {
	out, err := Thumbnail(encodePNG(t, 60, 40), 100, 80)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 60 || cfg.Height != 40 {
		t.Fatalf("small image resized to %dx%d", cfg.Width, cfg.Height)
	}
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	if _, err := Thumbnail([]byte("not an image"), 100, 80); err == nil {
		t.Fatal("Thumbnail of garbage should fail")
	}
}
