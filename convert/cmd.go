package convert

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"pixelgrid/grid"
	"pixelgrid/importer"
	"pixelgrid/palette"
	"pixelgrid/parallel"
	"pixelgrid/quantize"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Scan      string `help:"Source folder to scan" default:"."`
	Dest      string `help:"Destination folder for patterns. Relative to scan dir if not absolute." default:"patterns"`
	Size      int    `help:"Grid size: 20, 40, 60 or 100" default:"20"`
	Scale     int    `help:"Pixels per cell in the written pattern, 0 for the on-screen cell size" default:"0"`
	Crop      bool   `help:"Crop images to a square instead of stretching" default:"false"`
	Format    string `help:"Output format" enum:"png,gif,bmp,tiff" default:"png"`
	MaxPixels int    `help:"Skip images larger than this many pixels" default:"${max_pixels}"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	if !grid.Supported(c.Size) {
		return fmt.Errorf("unsupported grid size %d, should be one of %v", c.Size, grid.Sizes)
	}

	if c.Scale < 0 || c.Scale > 64 {
		return fmt.Errorf("invalid scale: %d", c.Scale)
	}

	return nil
}

func (c *CLICmd) Run(worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	pal := palette.Fixed()
	imp := importer.New(quantize.New(pal), importer.WithCrop(c.Crop))

	var processedCount, skippedCount, errCount atomic.Uint64
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		worker(func(fileName string) func() {
			return func() {
				filePath := filepath.Join(c.Scan, fileName)
				logger := slog.Default().With("file", filePath)

				img, err := c.load(filePath)
				if err != nil {
					if errors.Is(err, importer.ErrNotImage) {
						skippedCount.Add(1)
						logger.Debug("skipping non-image file", "error", err)
						return
					}
					errCount.Add(1)
					logger.Error("could not load image", "error", err)
					return
				}

				// Each file gets its own store; nothing is shared between workers.
				store := grid.New(c.Size)
				imp.ImportInto(store, img)

				if err = save(store.Image(pal, c.Scale), c.Format, c.Dest, fileName); err != nil {
					errCount.Add(1)
					logger.Error("could not save pattern", "dir", c.Dest, "error", err)
					return
				}
				logger.Info("converted", "size", store.Dimension())
				processedCount.Add(1)
			}
		}(file.Name()))
	}

	wait(true)

	processed := processedCount.Load()
	failed := errCount.Load()
	slog.Info("stats", "processed", processed, "skipped", skippedCount.Load(), "errors", failed,
		"total", processed+failed)

	if failed > 0 {
		return fmt.Errorf("error processing %d files", failed)
	}
	return nil
}

// load decodes filePath. Files that are not images in a registered format
// fail with importer.ErrNotImage.
func (c *CLICmd) load(filePath string) (image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", filePath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("could not close source file", "name", filePath, "error", closeErr)
		}
	}()

	img, _, err := importer.Decode(f, c.MaxPixels)
	return img, err
}
