/*
Package grid holds the painting: a square grid whose cells are either empty
or one palette entry.

A Store is not safe for concurrent use. The side length is always one of
Sizes; asking for anything else yields DefaultSize.
*/
package grid

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"slices"

	"pixelgrid/palette"
)

// DefaultSize is used at startup and whenever an unsupported size is requested.
const DefaultSize = 20

var Sizes = []int{20, 40, 60, 100}

var ErrOutOfRange = errors.New("grid: coordinate out of range")

func Supported(n int) bool {
	return slices.Contains(Sizes, n)
}

// CellSize is the on-screen side length in pixels of a cell at the given
// grid size.
func CellSize(dimension int) int {
	if dimension >= 100 {
		return 10
	}
	return 24
}

type cell struct {
	entry  palette.Entry
	filled bool
}

type Store struct {
	dim   int
	cells []cell
}

func New(dimension int) *Store {
	s := &Store{}
	s.Reset(dimension)
	return s
}

// Reset discards the painting and starts over with an empty grid. It returns
// the size actually used.
func (s *Store) Reset(dimension int) int {
	if !Supported(dimension) {
		dimension = DefaultSize
	}
	s.dim = dimension
	s.cells = make([]cell, dimension*dimension)
	return dimension
}

func (s *Store) Dimension() int {
	return s.dim
}

func (s *Store) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.dim && y < s.dim
}

func (s *Store) Paint(x, y int, e palette.Entry) error {
	if !s.inBounds(x, y) {
		return fmt.Errorf("%w: (%d, %d) outside %dx%d", ErrOutOfRange, x, y, s.dim, s.dim)
	}
	s.cells[y*s.dim+x] = cell{entry: e, filled: true}
	return nil
}

// Get reports the color at (x, y); ok is false for empty or out of range cells.
func (s *Store) Get(x, y int) (e palette.Entry, ok bool) {
	if !s.inBounds(x, y) {
		return palette.Entry{}, false
	}
	c := s.cells[y*s.dim+x]
	return c.entry, c.filled
}

// Filled counts painted cells.
func (s *Store) Filled() int {
	n := 0
	for _, c := range s.cells {
		if c.filled {
			n++
		}
	}
	return n
}

// Snapshot returns the grid row by row, with "" for empty cells.
func (s *Store) Snapshot() [][]string {
	rows := make([][]string, s.dim)
	for y := range s.dim {
		row := make([]string, s.dim)
		for x := range s.dim {
			if c := s.cells[y*s.dim+x]; c.filled {
				row[x] = c.entry.Hex
			}
		}
		rows[y] = row
	}
	return rows
}

// Image renders the grid with every cell drawn as a scale x scale block.
// Index 0 of the image palette is transparent and marks empty cells; pal
// supplies the remaining colors. A scale below 1 uses CellSize.
func (s *Store) Image(pal palette.Palette, scale int) *image.Paletted {
	if scale < 1 {
		scale = CellSize(s.dim)
	}

	colors := append(color.Palette{color.Transparent}, pal.Colors()...)
	img := image.NewPaletted(image.Rect(0, 0, s.dim*scale, s.dim*scale), colors)

	for y := range s.dim {
		for x := range s.dim {
			c := s.cells[y*s.dim+x]
			if !c.filled {
				continue
			}

			var idx uint8
			if i := pal.Index(c.entry); i >= 0 {
				idx = uint8(i + 1)
			} else {
				idx = uint8(colors.Index(c.entry))
			}

			for dy := range scale {
				off := img.PixOffset(x*scale, y*scale+dy)
				for dx := range scale {
					img.Pix[off+dx] = idx
				}
			}
		}
	}

	return img
}
