/*
Package quantize maps arbitrary colors onto a fixed palette by picking the
entry with the smallest squared Euclidean distance in RGB space.

The search is a linear scan over the palette on every call. With sixteen
entries there is nothing to gain from a lookup table.
*/
package quantize

import (
	"math"

	"pixelgrid/palette"
)

type Quantizer struct {
	pal palette.Palette
}

// New returns a Quantizer for p. p must not be empty.
func New(p palette.Palette) *Quantizer {
	if len(p) == 0 {
		panic("quantize: empty palette")
	}
	return &Quantizer{pal: p}
}

func (q *Quantizer) Palette() palette.Palette {
	return q.pal
}

// Nearest returns the palette entry closest to the given color. When two
// entries are equally close the one earlier in the palette wins.
func (q *Quantizer) Nearest(r, g, b uint8) palette.Entry {
	return q.pal[q.Index(r, g, b)]
}

func (q *Quantizer) Index(r, g, b uint8) int {
	ret, bestSum := 0, math.MaxInt
	for i, v := range q.pal {
		dr := int(r) - int(v.R)
		dg := int(g) - int(v.G)
		db := int(b) - int(v.B)
		sum := dr*dr + dg*dg + db*db
		if sum < bestSum {
			if sum == 0 {
				return i
			}
			ret, bestSum = i, sum
		}
	}
	return ret
}
