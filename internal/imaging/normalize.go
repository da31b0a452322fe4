// Package imaging normalizes uploaded photos before any model sees them:
// bounded max dimension, EXIF stripped, re-encoded as JPEG. Smaller payloads
// keep upstream latency inside the pipeline budget.
package imaging

import (
	"fmt"

	"github.com/h2non/bimg"
)

// Defaults for photo normalization.
const (
	DefaultMaxDimension = 1568
	DefaultQuality      = 85
)

// Normalizer re-encodes photos to a bounded size.
type Normalizer struct {
	maxDimension int
	quality      int
}

// NewNormalizer creates a normalizer. Zero values use the defaults.
func NewNormalizer(maxDimension, quality int) *Normalizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Normalizer{maxDimension: maxDimension, quality: quality}
}

// Normalize returns the photo resized to fit within the max dimension,
// metadata stripped, re-encoded as JPEG. Returns the bytes and the output
// MIME type.
func (n *Normalizer) Normalize(photo []byte) ([]byte, string, error) {
	img := bimg.NewImage(photo)
	meta, err := img.Metadata()
	if err != nil {
		return nil, "", fmt.Errorf("read image metadata: %w", err)
	}

	width, height := FitWithin(meta.Size.Width, meta.Size.Height, n.maxDimension)

	options := bimg.Options{
		Quality:       n.quality,
		StripMetadata: true,
		Type:          bimg.JPEG,
	}
	if width != meta.Size.Width || height != meta.Size.Height {
		options.Width = width
		options.Height = height
	}

	out, err := img.Process(options)
	if err != nil {
		return nil, "", fmt.Errorf("normalize image: %w", err)
	}
	return out, "image/jpeg", nil
}

// FitWithin scales (w, h) down proportionally so the larger side is at most
// max. Images already within bounds are returned unchanged.
func FitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, h * max / w
	}
	return w * max / h, max
}
