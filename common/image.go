package common

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ProbeImage reads the header of an encoded image and reports its format and dimensions.
// Supports PNG, JPEG, GIF, WebP, BMP and TIFF. GPU container formats (basis, ktx, dds) are
// not recognised and return an error.
// Reference: https://pkg.go.dev/image#DecodeConfig
//
// Parameters:
//   - data: the encoded image bytes
//
// Returns:
//   - ImageInfo: the detected format and size
//   - error: error if no registered decoder recognises the data
func ProbeImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("image data is empty")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to read image header: %w", err)
	}

	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
