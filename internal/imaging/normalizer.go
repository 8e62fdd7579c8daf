// Package imaging shrinks uploaded photos before they are stored.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

const (
	// ScalePercent is the linear scale applied to both dimensions.
	ScalePercent = 20
	// JPEGQuality is the fixed output quality.
	JPEGQuality = 75
	// DefaultMaxInputBytes bounds a single upload.
	DefaultMaxInputBytes = 10 << 20
	// DefaultMaxPixels bounds the decoded size of a single upload.
	DefaultMaxPixels = 50_000_000

	maxParallel = 4
)

// Normalizer decodes, downsamples and re-encodes photos as JPEG.
type Normalizer struct {
	maxInputBytes int
	maxPixels     int
}

func NewNormalizer(maxInputBytes int) *Normalizer {
	if maxInputBytes <= 0 {
		maxInputBytes = DefaultMaxInputBytes
	}
	return &Normalizer{maxInputBytes: maxInputBytes, maxPixels: DefaultMaxPixels}
}

// Normalize returns raw scaled to ScalePercent of its stored width and height (rounded
// down). EXIF orientation is not applied. Unrecognised input yields domain.ErrDecode.
func (n *Normalizer) Normalize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty upload: %w", domain.ErrDecode)
	}
	if len(raw) > n.maxInputBytes {
		return nil, domain.NewValidationError("photo", "must be at most %d bytes", n.maxInputBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if cfg.Width*cfg.Height > n.maxPixels {
		return nil, domain.NewValidationError("photo", "must be at most %d pixels", n.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	width, height := ScaledSize(img.Bounds())
	if width == 0 || height == 0 {
		return nil, domain.NewValidationError("photo", "image too small")
	}
	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ScaledSize applies ScalePercent to bounds using integer floor division.
func ScaledSize(bounds image.Rectangle) (int, int) {
	return bounds.Dx() * ScalePercent / 100, bounds.Dy() * ScalePercent / 100
}

// NormalizeAll normalises every non-empty photo concurrently. The first failure
// cancels the remaining work and no partial result is returned.
func (n *Normalizer) NormalizeAll(ctx context.Context, photos map[domain.ImageCategory][]byte) (map[domain.ImageCategory][]byte, error) {
	var (
		mu     sync.Mutex
		result = make(map[domain.ImageCategory][]byte, len(photos))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for category, raw := range photos {
		if len(raw) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := n.Normalize(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", category, err)
			}
			mu.Lock()
			result[category] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
