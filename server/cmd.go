package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"pixelgrid/assetcache"
	"pixelgrid/web"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Listen        string   `help:"Address to listen on" default:":8080" env:"PIXELGRID_LISTEN"`
	DB            string   `help:"Asset cache database file" default:"pixelgrid.db" env:"PIXELGRID_DB"`
	CacheVersion  string   `help:"Asset cache version; other versions are dropped on start" default:"${cache_version}" env:"PIXELGRID_CACHE_VERSION"`
	Origin        string   `help:"Fetch page assets from this URL instead of the bundled copy" env:"PIXELGRID_ORIGIN"`
	AllowedOrigin string   `help:"Origin allowed to open sessions, * for any" default:"*" env:"PIXELGRID_ALLOWED_ORIGIN"`
	MaxUpload     int64    `help:"Largest accepted upload in bytes" default:"16777216"`
	MaxPixels     int      `help:"Largest accepted decoded image in pixels" default:"${max_pixels}"`
	Crop          bool     `help:"Crop imported images to a square instead of stretching" default:"false"`
	OriginURL     *url.URL `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.Origin != "" {
		u, err := url.Parse(c.Origin)
		if err != nil {
			return fmt.Errorf("invalid origin %q: %w", c.Origin, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid origin %q: scheme must be http or https", c.Origin)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.OriginURL = u
	}

	if c.MaxUpload < 1 {
		return fmt.Errorf("invalid upload limit: %d", c.MaxUpload)
	}
	if c.MaxPixels < 1 {
		return fmt.Errorf("invalid pixel limit: %d", c.MaxPixels)
	}

	return nil
}

func (c *CLICmd) Run(ctx context.Context, logger *slog.Logger) error {
	cache, err := assetcache.Open(c.DB)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := cache.Close(); closeErr != nil {
			logger.Error("could not close asset cache", "db", c.DB, "error", closeErr)
		}
	}()

	var fetch assetcache.Fetcher = assetcache.FetchFunc(web.Fetch)
	if c.OriginURL != nil {
		fetch = &assetcache.HTTPFetcher{Base: c.OriginURL}
	}

	srv := New(Config{
		Listen:        c.Listen,
		AllowedOrigin: c.AllowedOrigin,
		CacheVersion:  c.CacheVersion,
		Fetch:         fetch,
		MaxUpload:     c.MaxUpload,
		MaxPixels:     c.MaxPixels,
		Crop:          c.Crop,
	}, cache, logger)

	if err := srv.Prepare(ctx); err != nil {
		return fmt.Errorf("could not prepare asset cache: %w", err)
	}

	return srv.ListenAndServe(ctx)
}
