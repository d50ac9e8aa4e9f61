package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pixelgrid/assetcache"
	"pixelgrid/config"
	"pixelgrid/convert"
	"pixelgrid/importer"
	"pixelgrid/palette"
	"pixelgrid/parallel"
	"pixelgrid/server"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

type CLI struct {
	Config   kong.ConfigFlag `help:"Load defaults from a TOML file"`
	LogLevel string          `help:"Minimum log level" enum:"debug,info,warn,error" default:"info" env:"PIXELGRID_LOG_LEVEL"`
	LogJSON  bool            `help:"Log as JSON instead of text" env:"PIXELGRID_LOG_JSON"`
	Workers  int             `help:"Number of parallel workers, 0 for one per CPU" default:"0"`

	Serve   server.CLICmd  `cmd:"" help:"Serve the painting page"`
	Convert convert.CLICmd `cmd:"" help:"Convert a folder of images into grid patterns"`
	Palette palette.CLICmd `cmd:"" help:"Inspect or export the painting colors"`
}

func newLogger(w io.Writer, level string, json bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pixelgrid"),
		kong.Description("Paint on a pixel grid with a fixed palette, or turn pictures into grid patterns."),
		kong.UsageOnError(),
		kong.Configuration(config.TOML, "pixelgrid.toml"),
		kong.Vars{
			"cache_version": assetcache.DefaultVersion,
			"max_pixels":    fmt.Sprint(importer.DefaultMaxPixels),
		},
	)

	logger, err := newLogger(os.Stderr, cli.LogLevel, cli.LogJSON)
	if err != nil {
		kctx.FatalIfErrorf(err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := parallel.Start(cli.Workers)
	defer pool.Wait(true)

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.BindTo(os.Stdout, (*io.Writer)(nil))

	slog.Debug("running", "command", kctx.Command(), "workers", pool.Workers())
	err = kctx.Run(logger, pool.Do, pool.Wait, kctx.Selected().Name)
	if err == nil && pool.Panics() > 0 {
		err = fmt.Errorf("%d jobs panicked", pool.Panics())
	}
	if err != nil {
		slog.Error("command failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(1)
	}
}
