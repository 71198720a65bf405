package deck

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"github.com/nfnt/resize"
)

// Thumbnail shrinks an image to maxWidth pixels (preserving aspect
// ratio) and re-encodes it as JPEG for the preview endpoint. Images
// already narrower than maxWidth are only re-encoded.
func Thumbnail(data []byte, maxWidth, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if maxWidth > 0 && bounds.Dx() > maxWidth {
		ratio := float64(bounds.Dy()) / float64(bounds.Dx())
		height := uint(float64(maxWidth) * ratio)
		img = resize.Resize(uint(maxWidth), height, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
