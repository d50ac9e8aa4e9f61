package importer

import (
	"image"
	"math"
)

// squareCrop trims the longer side of r evenly so that the result is square.
func squareCrop(r image.Rectangle) image.Rectangle {
	srcWidth := float64(r.Dx())
	srcHeight := float64(r.Dy())
	if srcWidth == 0 || srcHeight == 0 {
		return r
	}

	srcAR := srcWidth / srcHeight
	if srcAR < 1 {
		dh := int(math.Round((srcHeight - srcWidth) / 2))
		r.Min.Y += dh
		r.Max.Y = r.Min.Y + r.Dx()
	} else if srcAR > 1 {
		dw := int(math.Round((srcWidth - srcHeight) / 2))
		r.Min.X += dw
		r.Max.X = r.Min.X + r.Dy()
	}

	return r
}
