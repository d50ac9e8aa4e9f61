package palette

import (
	"fmt"
	"image/color"
	"slices"
)

// Entry is one fixed, named color available for painting.
type Entry struct {
	R, G, B uint8
	Hex     string
}

func (e Entry) RGBA() (uint32, uint32, uint32, uint32) {
	return color.RGBA{R: e.R, G: e.G, B: e.B, A: 0xFF}.RGBA()
}

func (e Entry) String() string {
	return e.Hex
}

type Palette []Entry

var fixed = mustEntries(
	"#ff1744", "#ff9100", "#fff700", "#69f0ae", "#00b0ff", "#d500f9",
	"#ffffff", "#bdbdbd", "#3e2723", "#212121", "#1976d2", "#43a047",
	"#fbc02d", "#f06292", "#8d6e63", "#00e676",
)

// Fixed returns the painting palette in its canonical order. The result is a
// copy; the palette itself never changes.
func Fixed() Palette {
	return slices.Clone(fixed)
}

func mustEntries(hexes ...string) Palette {
	pal := make(Palette, 0, len(hexes))
	for _, h := range hexes {
		e, err := NewEntry(h)
		if err != nil {
			panic(err)
		}
		pal = append(pal, e)
	}
	return pal
}

// NewEntry builds an entry from a hex color, normalizing its identifier to
// lower-case #rrggbb. Alpha, if given, must be opaque.
func NewEntry(hex string) (Entry, error) {
	c, err := ParseHex(hex)
	if err != nil {
		return Entry{}, err
	}
	if c.A != 0xFF {
		return Entry{}, fmt.Errorf("palette colors must be opaque: %s", hex)
	}
	return Entry{R: c.R, G: c.G, B: c.B, Hex: FormatHex(c)}, nil
}

// Lookup finds the entry matching hex in any accepted spelling.
func (p Palette) Lookup(hex string) (Entry, bool) {
	e, err := NewEntry(hex)
	if err != nil {
		return Entry{}, false
	}
	if i := p.Index(e); i >= 0 {
		return p[i], true
	}
	return Entry{}, false
}

// Index returns the position of e in p, or -1.
func (p Palette) Index(e Entry) int {
	return slices.IndexFunc(p, func(v Entry) bool {
		return v.R == e.R && v.G == e.G && v.B == e.B
	})
}

func (p Palette) Colors() color.Palette {
	pal := make(color.Palette, len(p))
	for i, e := range p {
		pal[i] = e
	}
	return pal
}

func (p Palette) Hexes() []string {
	res := make([]string, len(p))
	for i, e := range p {
		res[i] = e.Hex
	}
	return res
}
