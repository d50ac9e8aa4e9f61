/*
Package session keeps the state a single painter works with: the selected
palette color and the grid. UI events are applied by calling the methods of a
Session directly; nothing here is safe for concurrent use.
*/
package session

import (
	"errors"
	"fmt"
	"image"

	"pixelgrid/grid"
	"pixelgrid/importer"
	"pixelgrid/palette"
	"pixelgrid/quantize"
)

var ErrUnknownColor = errors.New("session: color is not in the palette")

type Session struct {
	ID string

	q        *quantize.Quantizer
	imp      *importer.Importer
	selected palette.Entry
	store    *grid.Store
}

// State is what a renderer needs to draw the session.
type State struct {
	ID       string     `json:"session"`
	Size     int        `json:"size"`
	CellSize int        `json:"cell_size"`
	Selected string     `json:"selected"`
	Palette  []string   `json:"palette"`
	Cells    [][]string `json:"cells"`
}

func New(id string, q *quantize.Quantizer, imp *importer.Importer) *Session {
	return &Session{
		ID:       id,
		q:        q,
		imp:      imp,
		selected: q.Palette()[0],
		store:    grid.New(grid.DefaultSize),
	}
}

func (s *Session) Selected() palette.Entry {
	return s.selected
}

func (s *Session) Store() *grid.Store {
	return s.store
}

func (s *Session) Select(hex string) error {
	e, ok := s.q.Palette().Lookup(hex)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColor, hex)
	}
	s.selected = e
	return nil
}

// SetSize starts a new empty painting. Unsupported sizes are replaced by the
// default; the size in effect is returned.
func (s *Session) SetSize(n int) int {
	return s.store.Reset(n)
}

// PaintAt fills (x, y) with the selected color.
func (s *Session) PaintAt(x, y int) error {
	return s.store.Paint(x, y, s.selected)
}

// Import replaces the painting with img quantized to the palette at the
// current size.
func (s *Session) Import(img image.Image) {
	s.imp.ImportInto(s.store, img)
}

func (s *Session) Image(scale int) *image.Paletted {
	return s.store.Image(s.q.Palette(), scale)
}

func (s *Session) State() State {
	return State{
		ID:       s.ID,
		Size:     s.store.Dimension(),
		CellSize: grid.CellSize(s.store.Dimension()),
		Selected: s.selected.Hex,
		Palette:  s.q.Palette().Hexes(),
		Cells:    s.store.Snapshot(),
	}
}
