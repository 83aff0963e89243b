// Package imageproc re-encodes incoming sticker images into bounded JPEGs.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	MaxWidth  = 2048
	MaxHeight = 2048
	Quality   = 90

	// MaxPixels caps the declared size of an input image before it is decoded.
	MaxPixels = 50_000_000
)

var ErrDecode = errors.New("image could not be decoded")

type Optimizer struct {
	maxWidth  int
	maxHeight int
	quality   int
}

func New() *Optimizer {
	return &Optimizer{maxWidth: MaxWidth, maxHeight: MaxHeight, quality: Quality}
}

// Optimize decodes jpeg, png, gif or webp data, applies the EXIF
// orientation, shrinks it to fit the bounds without enlarging and encodes
// it as JPEG. Transparent areas are flattened onto white.
func (o *Optimizer) Optimize(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := img.Bounds()
	if b.Dx() > o.maxWidth || b.Dy() > o.maxHeight {
		img = imaging.Fit(img, o.maxWidth, o.maxHeight, imaging.Lanczos)
		b = img.Bounds()
	}

	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	canvas = imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(o.quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
