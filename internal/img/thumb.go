// internal/img/thumb.go
package img

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	// WebP uploads are decodable; derivatives are always JPEG.
	_ "golang.org/x/image/webp"
)

// Info describes a decoded source image.
type Info struct {
	Width  int
	Height int
	Format string
}

// DefaultMaxPixels bounds width*height of a source before it is fully decoded.
const DefaultMaxPixels = 100_000_000

// ErrTooManyPixels is returned for sources whose header declares more pixels
// than the configured limit.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Decode decodes raw image bytes once, applying EXIF orientation, and reports
// the oriented dimensions together with the detected format name. Sources
// above DefaultMaxPixels are rejected.
func Decode(data []byte) (image.Image, Info, error) {
	return DecodeLimited(data, DefaultMaxPixels)
}

// DecodeLimited is Decode with an explicit pixel ceiling read from the image
// header. maxPixels <= 0 disables the check.
func DecodeLimited(data []byte, maxPixels int) (image.Image, Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode config: %w", err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, Info{}, fmt.Errorf("%w: %dx%d > %d", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	return src, Info{Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}

// Encode fits src into a maxDimension square box and writes it as a JPEG of
// the given quality to dstPath. If the source already fits, it is not
// upscaled. The file appears at dstPath atomically.
func Encode(src image.Image, dstPath string, maxDimension, quality int) (w int, h int, _ error) {
	if maxDimension <= 0 {
		return 0, 0, fmt.Errorf("invalid max dimension %d", maxDimension)
	}

	thumb := imaging.Fit(src, maxDimension, maxDimension, imaging.Lanczos)

	err := WriteAtomic(dstPath, func(out io.Writer) error {
		return imaging.Encode(out, thumb, imaging.JPEG, imaging.JPEGQuality(quality))
	})
	if err != nil {
		return 0, 0, fmt.Errorf("save: %w", err)
	}

	b := thumb.Bounds()
	return b.Dx(), b.Dy(), nil
}
