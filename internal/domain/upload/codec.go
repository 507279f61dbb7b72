package upload

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// FatalSeverity is the backend status threshold at which a resize is a
// hard failure. Lower statuses are warnings (color profile or palette
// complaints) that still produced usable output.
const FatalSeverity = 400

// Codec is the image backend: header-only dimension decode plus resize
// into a bounding box. Resize returns the path of a freshly written
// file in the source's format family, together with the backend's
// severity status.
type Codec interface {
	DecodeDimensions(path string) (width, height int, err error)
	Resize(path string, width, height int) (newPath string, status int, err error)
}

// ImagingCodec implements Codec on github.com/disintegration/imaging.
// Importing imaging registers the jpeg/png/gif/tiff/bmp decoders used
// by DecodeDimensions.
type ImagingCodec struct {
	TempDir string // defaults to os.TempDir()
}

func (c *ImagingCodec) DecodeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// Resize scales the image down to fit within width x height, preserving
// aspect ratio, and writes it to a new temp file carrying the source
// extension. imaging has no warning channel, so any failure is reported
// at fatal severity.
func (c *ImagingCodec) Resize(path string, width, height int) (string, int, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", 500, fmt.Errorf("decode %s: %w", path, err)
	}
	dst := imaging.Fit(img, width, height, imaging.Lanczos)

	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	out := filepath.Join(dir, "resize-"+uuid.NewString()+filepath.Ext(path))
	if err := imaging.Save(dst, out); err != nil {
		return "", 500, fmt.Errorf("encode %s: %w", out, err)
	}
	return out, 0, nil
}
