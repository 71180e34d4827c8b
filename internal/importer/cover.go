package importer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// DefaultCoverMaxWidth bounds generated cover thumbnails.
const DefaultCoverMaxWidth = 600

// DefaultCoverMaxPixels bounds the declared size of a cover before it is
// decoded.
const DefaultCoverMaxPixels = 40_000_000

// ErrCoverTooLarge is returned for covers whose header declares more pixels
// than allowed.
var ErrCoverTooLarge = errors.New("cover image too large")

// CoverProcessor turns an embedded cover into a JPEG thumbnail.
type CoverProcessor struct {
	MaxWidth  uint
	MaxPixels int
}

// Process decodes data and re-encodes it as a JPEG no wider than MaxWidth.
func (p CoverProcessor) Process(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}
	maxPixels := p.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultCoverMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d", ErrCoverTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}

	maxWidth := p.MaxWidth
	if maxWidth == 0 {
		maxWidth = DefaultCoverMaxWidth
	}
	if uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}
	return out.Bytes(), nil
}
