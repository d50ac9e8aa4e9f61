/*
Package importer turns a decoded raster into a painting: the image is
resampled to one sample per grid cell and every sample is replaced with its
nearest palette color.

Validating and decoding uploads happens before ImportInto; see CheckMediaType
and Decode.
*/
package importer

import (
	"image"

	"pixelgrid/grid"
	"pixelgrid/quantize"

	"golang.org/x/image/draw"
)

type Importer struct {
	q      *quantize.Quantizer
	scaler draw.Scaler
	crop   bool
}

type Option func(*Importer)

// WithScaler overrides the resampling kernel. The default is
// draw.ApproxBiLinear.
func WithScaler(s draw.Scaler) Option {
	return func(imp *Importer) {
		imp.scaler = s
	}
}

// WithCrop center-crops non-square sources to a square before scaling
// instead of stretching them.
func WithCrop(crop bool) Option {
	return func(imp *Importer) {
		imp.crop = crop
	}
}

func New(q *quantize.Quantizer, opts ...Option) *Importer {
	imp := &Importer{
		q:      q,
		scaler: draw.ApproxBiLinear,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// ImportInto overwrites every cell of store with the quantized sample of src
// at that cell, in row-major order.
func (imp *Importer) ImportInto(store *grid.Store, src image.Image) {
	dim := store.Dimension()
	samples := imp.sample(src, dim)

	for y := range dim {
		for x := range dim {
			off := samples.PixOffset(x, y)
			r, g, b := samples.Pix[off], samples.Pix[off+1], samples.Pix[off+2]
			// Cannot fail, (x, y) is within the store.
			_ = store.Paint(x, y, imp.q.Nearest(r, g, b))
		}
	}
}

func (imp *Importer) sample(src image.Image, dim int) *image.NRGBA {
	sr := src.Bounds()
	if imp.crop {
		sr = squareCrop(sr)
	}

	dr := image.Rect(0, 0, dim, dim)
	dest := image.NewNRGBA(dr)
	imp.scaler.Scale(dest, dr, src, sr, draw.Src, nil)
	return dest
}
