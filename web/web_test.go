package web

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"pixelgrid/assetcache"
	"pixelgrid/palette"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDefaultAssets(t *testing.T) {
	for _, name := range assetcache.DefaultAssets {
		a, err := Fetch(context.Background(), name)
		require.NoError(t, err, name)
		assert.Equal(t, name, a.Name)
		assert.NotEmpty(t, a.Body, name)
		assert.NotEmpty(t, a.ContentType, name)
	}
}

func TestFetchRoot(t *testing.T) {
	root, err := Fetch(context.Background(), "./")
	require.NoError(t, err)
	index, err := Fetch(context.Background(), "index.html")
	require.NoError(t, err)
	assert.Equal(t, index.Body, root.Body)
	assert.Contains(t, root.ContentType, "text/html")
}

func TestFetchMissing(t *testing.T) {
	for _, name := range []string{"nope.js", "icons/icon-9999.png", "icons/icon-1.png"} {
		_, err := Fetch(context.Background(), name)
		assert.ErrorIs(t, err, assetcache.ErrNotFound, name)
	}
}

func TestIcon(t *testing.T) {
	b, err := Icon(192)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 192, img.Bounds().Dx())

	pal := palette.Fixed()
	r, g, bl, _ := img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint8{pal[0].R, pal[0].G, pal[0].B}, [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)})
	r, g, bl, _ = img.At(191, 191).RGBA()
	assert.Equal(t, [3]uint8{pal[15].R, pal[15].G, pal[15].B}, [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)})
}
