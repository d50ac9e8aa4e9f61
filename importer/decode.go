package importer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds the decoded size of an upload.
const DefaultMaxPixels = 40 << 20

var (
	ErrNotImage = errors.New("importer: not an image")
	ErrTooLarge = errors.New("importer: image too large")
)

// CheckMediaType accepts image/* media types only.
func CheckMediaType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: invalid media type %q: %v", ErrNotImage, contentType, err)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return fmt.Errorf("%w: %s", ErrNotImage, mediaType)
	}
	return nil
}

// Sniff guesses the media type of b from its leading bytes.
func Sniff(b []byte) string {
	return http.DetectContentType(b)
}

// Decode reads an image, refusing anything whose header announces more than
// maxPixels pixels. A maxPixels below 1 uses DefaultMaxPixels.
func Decode(r io.Reader, maxPixels int) (image.Image, string, error) {
	if maxPixels < 1 {
		maxPixels = DefaultMaxPixels
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("could not read image: %w", err)
	}

	conf, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if conf.Width <= 0 || conf.Height <= 0 {
		return nil, "", fmt.Errorf("%w: empty image %dx%d", ErrNotImage, conf.Width, conf.Height)
	}
	if conf.Width > maxPixels/conf.Height {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrTooLarge, conf.Width, conf.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("could not decode %s image: %w", format, err)
	}
	return img, format, nil
}
