package palette

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type CLICmd struct {
	List   struct{} `cmd:"" help:"Print the painting colors in order"`
	Export struct {
		File string `arg:"" help:"Destination PAL file"`
	} `cmd:"" help:"Write the painting colors as a RIFF PAL file"`
	Show struct {
		File string `arg:"" help:"RIFF PAL file to print" type:"existingfile"`
	} `cmd:"" help:"Print the colors of a RIFF PAL file"`
}

func (c *CLICmd) Run(subCmd string, w io.Writer) error {
	switch subCmd {
	case "list":
		return printEntries(w, Fixed())
	case "export":
		return exportFile(c.Export.File)
	case "show":
		p, err := importFile(c.Show.File)
		if err != nil {
			return err
		}
		return printEntries(w, p)
	default:
		return fmt.Errorf("unsupported palette command: %s", subCmd)
	}
}

func exportFile(name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close %q: %w", name, closeErr)
		}
	}()

	n, err := WriteRIFF(f, Fixed())
	if err != nil {
		return fmt.Errorf("could not export palette to %q: %w", name, err)
	}
	slog.Info("exported palette", "file", name, "colors", n)
	return nil
}

func importFile(name string) (Palette, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", name, err)
	}
	defer f.Close()

	p, err := ReadRIFF(f)
	if err != nil {
		return nil, fmt.Errorf("could not read palette from %q: %w", name, err)
	}
	return p, nil
}

func printEntries(w io.Writer, p Palette) error {
	for i, e := range p {
		if _, err := fmt.Fprintf(w, "%2d %s %3d %3d %3d\n", i, e.Hex, e.R, e.G, e.B); err != nil {
			return err
		}
	}
	return nil
}
