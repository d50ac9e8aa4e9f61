package palette

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"io"

	"golang.org/x/image/riff"
)

/*
typedef struct tagLOGPALETTE {
  WORD         palVersion;
  WORD         palNumEntries;
  PALETTEENTRY palPalEntry[1];
} LOGPALETTE;

typedef struct tagPALETTEENTRY {
  BYTE peRed;
  BYTE peGreen;
  BYTE peBlue;
  BYTE peFlags;
} PALETTEENTRY;
*/

var (
	riffType = riff.FourCC{'R', 'I', 'F', 'F'}
	palType  = riff.FourCC{'P', 'A', 'L', ' '}
	dataType = riff.FourCC{'d', 'a', 't', 'a'}
)

// ReadRIFF loads the first palette stored in a RIFF PAL stream.
func ReadRIFF(r io.Reader) (Palette, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not open RIFF stream: %w", err)
	} else if formType != palType {
		return nil, fmt.Errorf("unsupported RIFF content type: %s", string(formType[:]))
	}

	for {
		id, _, data, err := rd.Next()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("no %s chunk in RIFF stream", string(dataType[:]))
			}
			return nil, fmt.Errorf("could not read chunk: %w", err)
		}

		if id == dataType {
			return readPalette(data)
		}
	}
}

func readPalette(r io.Reader) (Palette, error) {
	buf := make([]byte, 4)

	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("could not read palette header: %w", err)
	}

	if ver := binary.BigEndian.Uint16(buf[:2]); ver != 3 {
		return nil, fmt.Errorf("unsupported palette version: %d", ver)
	}

	count := binary.LittleEndian.Uint16(buf[2:])
	res := make(Palette, count)
	for i := range count {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("could not read color %d/%d: %w", i, count, err)
		}

		c := color.RGBA{R: buf[0], G: buf[1], B: buf[2], A: 0xFF}
		res[i] = Entry{R: c.R, G: c.G, B: c.B, Hex: FormatHex(c)}
	}

	return res, nil
}

// WriteRIFF stores p as a single-chunk RIFF PAL document and returns the
// number of colors written.
func WriteRIFF(w io.Writer, p Palette) (int64, error) {
	size := 4 + 4 + 4 + 4 + len(p)*4 // form type + chunk id + chunk size + palVersion + palNumEntries + 4 bytes/color

	if err := writeBytes(w, riffType[:]); err != nil {
		return 0, fmt.Errorf("could not write RIFF magic: %w", err)
	}

	if err := writeBytes(w, binary.LittleEndian.AppendUint32(nil, uint32(size))); err != nil {
		return 0, fmt.Errorf("could not write document size: %w", err)
	}

	if err := writeBytes(w, palType[:]); err != nil {
		return 0, fmt.Errorf("could not write content type: %w", err)
	}

	if err := writeBytes(w, dataType[:]); err != nil {
		return 0, fmt.Errorf("could not write chunk type: %w", err)
	}

	if err := writeBytes(w, binary.LittleEndian.AppendUint32(nil, uint32(4+len(p)*4))); err != nil {
		return 0, fmt.Errorf("could not write chunk size: %w", err)
	}

	if err := writeBytes(w, []byte{0, 0x03}); err != nil {
		return 0, fmt.Errorf("could not write palette version: %w", err)
	}

	if err := writeBytes(w, binary.LittleEndian.AppendUint16(nil, uint16(len(p)))); err != nil {
		return 0, fmt.Errorf("could not write number of colors: %w", err)
	}

	for i, e := range p {
		if err := writeBytes(w, []byte{e.R, e.G, e.B, 0x00}); err != nil {
			return int64(i), fmt.Errorf("could not write color %d/%d: %w", i, len(p), err)
		}
	}

	return int64(len(p)), nil
}

func writeBytes(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	} else if n != len(b) {
		return fmt.Errorf("wrote only %d/%d bytes", n, len(b))
	}

	return nil
}
