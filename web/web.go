// Package web bundles the browser page. It is the "network" side of the asset
// cache when the server runs without a remote origin.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"mime"
	"path"
	"regexp"
	"strconv"

	"pixelgrid/assetcache"
	"pixelgrid/palette"
)

//go:embed static
var static embed.FS

var iconName = regexp.MustCompile(`^icons/icon-([0-9]+)\.png$`)

const maxIconSize = 1024

// Fetch returns the named page asset. "./" is the page itself.
func Fetch(ctx context.Context, name string) (assetcache.Asset, error) {
	if name == "./" {
		a, err := Fetch(ctx, "index.html")
		a.Name = name
		return a, err
	}

	if m := iconName.FindStringSubmatch(name); m != nil {
		size, err := strconv.Atoi(m[1])
		if err != nil || size < 16 || size > maxIconSize {
			return assetcache.Asset{}, fmt.Errorf("%w: %s", assetcache.ErrNotFound, name)
		}
		body, err := Icon(size)
		if err != nil {
			return assetcache.Asset{}, err
		}
		return assetcache.Asset{Name: name, ContentType: "image/png", Body: body}, nil
	}

	body, err := static.ReadFile(path.Join("static", name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return assetcache.Asset{}, fmt.Errorf("%w: %s", assetcache.ErrNotFound, name)
		}
		return assetcache.Asset{}, fmt.Errorf("could not read %q: %w", name, err)
	}

	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return assetcache.Asset{Name: name, ContentType: ct, Body: body}, nil
}

// Icon renders the palette as a 4x4 swatch, size pixels square.
func Icon(size int) ([]byte, error) {
	pal := palette.Fixed()
	img := image.NewPaletted(image.Rect(0, 0, size, size), pal.Colors())
	for y := range size {
		for x := range size {
			img.SetColorIndex(x, y, uint8((y*4/size)*4+x*4/size))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("could not encode icon: %w", err)
	}
	return buf.Bytes(), nil
}
