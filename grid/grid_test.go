package grid

import (
	"image/color"
	"testing"

	"pixelgrid/palette"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetEmpties(t *testing.T) {
	s := New(DefaultSize)
	for _, d := range Sizes {
		require.NoError(t, s.Paint(0, 0, palette.Fixed()[0]))

		assert.Equal(t, d, s.Reset(d))
		assert.Equal(t, d, s.Dimension())
		for y := range d {
			for x := range d {
				_, ok := s.Get(x, y)
				require.False(t, ok, "cell (%d, %d) at size %d", x, y, d)
			}
		}
	}
}

func TestResetFallsBackToDefault(t *testing.T) {
	for _, d := range []int{0, -1, 21, 50, 1000} {
		s := New(d)
		assert.Equal(t, DefaultSize, s.Dimension(), "size %d", d)
	}

	s := New(100)
	assert.Equal(t, DefaultSize, s.Reset(33))
}

func TestPaintGet(t *testing.T) {
	s := New(40)
	for i, e := range palette.Fixed() {
		require.NoError(t, s.Paint(i, 39-i, e))
		got, ok := s.Get(i, 39-i)
		require.True(t, ok)
		assert.Equal(t, e, got)
	}
	assert.Equal(t, 16, s.Filled())
}

func TestPaintOutOfRange(t *testing.T) {
	s := New(20)
	e := palette.Fixed()[0]
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {20, 0}, {0, 20}, {99, 99}} {
		err := s.Paint(p[0], p[1], e)
		assert.ErrorIs(t, err, ErrOutOfRange)
	}
	assert.Zero(t, s.Filled())

	_, ok := s.Get(20, 20)
	assert.False(t, ok)
}

func TestPaintEndToEnd(t *testing.T) {
	s := New(DefaultSize)
	s.Reset(20)

	red, ok := palette.Fixed().Lookup("#ff1744")
	require.True(t, ok)
	require.NoError(t, s.Paint(0, 0, red))

	got, ok := s.Get(0, 0)
	require.True(t, ok)
	assert.Equal(t, "#ff1744", got.Hex)

	_, ok = s.Get(1, 0)
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	s := New(20)
	require.NoError(t, s.Paint(3, 1, palette.Fixed()[6]))

	rows := s.Snapshot()
	require.Len(t, rows, 20)
	require.Len(t, rows[1], 20)
	assert.Equal(t, "#ffffff", rows[1][3])
	assert.Equal(t, "", rows[3][1])
}

func TestImage(t *testing.T) {
	pal := palette.Fixed()
	s := New(20)
	require.NoError(t, s.Paint(1, 2, pal[4]))

	img := s.Image(pal, 3)
	assert.Equal(t, 60, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())

	assert.Equal(t, color.RGBAModel.Convert(pal[4]), color.RGBAModel.Convert(img.At(3, 6)))
	assert.Equal(t, color.RGBAModel.Convert(pal[4]), color.RGBAModel.Convert(img.At(5, 8)))
	assert.Equal(t, uint8(0), img.ColorIndexAt(6, 6))
	assert.Equal(t, uint8(0), img.ColorIndexAt(0, 0))

	assert.Equal(t, 20*CellSize(20), s.Image(pal, 0).Bounds().Dx())
}

func TestCellSize(t *testing.T) {
	assert.Equal(t, 24, CellSize(20))
	assert.Equal(t, 24, CellSize(60))
	assert.Equal(t, 10, CellSize(100))
}
