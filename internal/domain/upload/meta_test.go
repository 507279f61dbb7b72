package upload

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writeImage encodes a solid w x h image at path, by extension.
func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	switch filepath.Ext(path) {
	case ".png":
		err = png.Encode(f, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, nil)
	default:
		t.Fatalf("writeImage: unsupported extension in %s", path)
	}
	if err != nil {
		t.Fatal(err)
	}
}

func TestExtractPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src.png")
	writeImage(t, path, 200, 400)

	e := NewExtractor(&ImagingCodec{}, false)
	meta, err := e.Extract(path, "pic.png", "image/png")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if meta.MimeType != "image/png" {
		t.Fatalf("expected image/png, got %q", meta.MimeType)
	}
	if meta.Extension != ".png" {
		t.Fatalf("expected .png, got %q", meta.Extension)
	}
	if meta.Bytes <= 0 {
		t.Fatalf("expected positive byte size, got %d", meta.Bytes)
	}
	if meta.Width == nil || meta.Height == nil || *meta.Width != 200 || *meta.Height != 400 {
		t.Fatalf("expected 200x400, got %v x %v", meta.Width, meta.Height)
	}
}

func TestExtractExtensionReconciliation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.jpg")
	writeImage(t, path, 10, 10)

	e := NewExtractor(nil, false)
	cases := []struct {
		declared string
		want     string
	}{
		{"photo.jpg", ".jpg"},    // declared is a canonical member, wins
		{"photo.jpeg", ".jpeg"},  // also a member
		{"photo.jfif", ".jpg"},   // not a member, first canonical
		{"photo.JPG", ".jpg"},    // membership is case-sensitive
		{"photo", ".jpg"},        // no declared extension at all
		{"photo.tar.gz", ".jpg"}, // only the last suffix counts
	}
	for _, tc := range cases {
		t.Run(tc.declared, func(t *testing.T) {
			meta, err := e.Extract(path, tc.declared, "")
			if err != nil {
				t.Fatalf("Extract returned error: %v", err)
			}
			if meta.MimeType != "image/jpeg" {
				t.Fatalf("expected image/jpeg, got %q", meta.MimeType)
			}
			if meta.Extension != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, meta.Extension)
			}
		})
	}
}

func TestExtractDeclaredTypeFallback(t *testing.T) {
	// content the prober cannot classify
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x03, 0x04}, 0o600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(nil, false)
	meta, err := e.Extract(path, "data.dat", "application/x-custom")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if meta.MimeType != "application/x-custom" {
		t.Fatalf("expected declared type to win, got %q", meta.MimeType)
	}
	// no canonical set for the type: declared extension stands verbatim
	if meta.Extension != ".dat" {
		t.Fatalf("expected .dat, got %q", meta.Extension)
	}
	if meta.Width != nil || meta.Height != nil {
		t.Fatal("non-image content must have no dimensions")
	}
}

func TestExtractNoExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x03, 0x04}, 0o600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(nil, false)
	_, err := e.Extract(path, "data", "")
	if !errors.Is(err, ErrNoExtension) {
		t.Fatalf("expected ErrNoExtension, got %v", err)
	}
}

func TestExtractStrictMime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x03, 0x04}, 0o600); err != nil {
		t.Fatal(err)
	}

	strict := NewExtractor(nil, true)
	if _, err := strict.Extract(path, "data.bin", ""); !errors.Is(err, ErrNoMimeType) {
		t.Fatalf("expected ErrNoMimeType, got %v", err)
	}

	// without strict mode the empty mime type passes through and the
	// declared extension stands
	loose := NewExtractor(nil, false)
	meta, err := loose.Extract(path, "data.bin", "")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if meta.Extension != ".bin" {
		t.Fatalf("expected .bin, got %q", meta.Extension)
	}
}

func TestExtractTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes")
	if err := os.WriteFile(path, []byte("plain text content\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(&ImagingCodec{}, false)
	meta, err := e.Extract(path, "notes.log", "")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if meta.MimeType != "text/plain" {
		t.Fatalf("expected text/plain, got %q", meta.MimeType)
	}
	// .log is not canonical for text/plain, first canonical wins
	if meta.Extension != ".txt" {
		t.Fatalf("expected .txt, got %q", meta.Extension)
	}
	if meta.Width != nil {
		t.Fatal("text content must have no dimensions")
	}
}
