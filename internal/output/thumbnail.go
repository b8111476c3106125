package output

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// Thumbnail defaults for report exports.
const (
	ThumbnailMaxSize = 256
	ThumbnailQuality = 80
)

// Thumbnail decodes a PNG or JPEG image and scales it so its longest side is
// at most maxSize, encoding the result as JPEG.
func Thumbnail(data []byte, maxSize, jpegQuality int) ([]byte, error) {
	if maxSize < 1 {
		return nil, errors.New("thumbnail max size must be positive")
	}

	srcImg, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := srcImg.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid image dimensions")
	}

	scale := min(float64(maxSize)/float64(max(width, height)), 1)
	newW := max(int(float64(width)*scale), 1)
	newH := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), srcImg, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := EncodeImage(&buf, dst, "jpeg", jpegQuality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeImage writes img as png or jpeg.
func EncodeImage(w io.Writer, img image.Image, format string, jpegQuality int) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg", "jpg", "":
		q := min(max(jpegQuality, 1), 100)
		return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
