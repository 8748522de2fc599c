// Package imaging holds the raster operations shared by OCR and template matching.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/joseph-ayodele/docverify/internal/common"
)

// Decode reads any registered raster format (png, jpeg, gif, tiff, bmp).
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", common.InputDecodeError("decode image", fmt.Errorf("empty input"))
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", common.InputDecodeError("decode image", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, format, common.InputDecodeError("decode image", fmt.Errorf("zero-sized %s image", format))
	}
	return img, format, nil
}

// EncodePNG is the interchange encoding handed to OCR engines.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
