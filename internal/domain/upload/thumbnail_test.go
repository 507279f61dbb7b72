package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeCodec reports canned dimensions and records resize calls.
type fakeCodec struct {
	w, h       int
	status     int
	resizeErr  error
	gotWidth   int
	gotHeight  int
	resizeCall int
}

func (c *fakeCodec) DecodeDimensions(path string) (int, int, error) {
	if c.w == 0 && c.h == 0 {
		return 0, 0, fmt.Errorf("not an image: %s", path)
	}
	return c.w, c.h, nil
}

func (c *fakeCodec) Resize(path string, width, height int) (string, int, error) {
	c.resizeCall++
	c.gotWidth, c.gotHeight = width, height
	return path + ".resized", c.status, c.resizeErr
}

func TestResizeDerivesMissingWidth(t *testing.T) {
	codec := &fakeCodec{w: 200, h: 400}
	r := NewResizer(codec)

	out, err := r.Resize("src.png", 0, 100)
	if err != nil {
		t.Fatalf("Resize returned error: %v", err)
	}
	if out == "" {
		t.Fatal("expected a new path")
	}
	// round(200 * 100 / 400) = 50
	if codec.gotWidth != 50 || codec.gotHeight != 100 {
		t.Fatalf("expected target 50x100, got %dx%d", codec.gotWidth, codec.gotHeight)
	}
}

func TestResizeDerivesMissingHeight(t *testing.T) {
	codec := &fakeCodec{w: 300, h: 200}
	r := NewResizer(codec)

	if _, err := r.Resize("src.png", 150, 0); err != nil {
		t.Fatalf("Resize returned error: %v", err)
	}
	// round(200 * 150 / 300) = 100
	if codec.gotWidth != 150 || codec.gotHeight != 100 {
		t.Fatalf("expected target 150x100, got %dx%d", codec.gotWidth, codec.gotHeight)
	}
}

func TestResizeAspectRatioPreserved(t *testing.T) {
	for _, tc := range []struct{ w, h, maxW int }{
		{200, 400, 100}, {643, 211, 320}, {1, 1, 1}, {1920, 1080, 640},
	} {
		codec := &fakeCodec{w: tc.w, h: tc.h}
		r := NewResizer(codec)
		if _, err := r.Resize("src.png", tc.maxW, 0); err != nil {
			t.Fatalf("Resize(%dx%d, maxW=%d) returned error: %v", tc.w, tc.h, tc.maxW, err)
		}
		want := float64(tc.w) / float64(tc.h)
		got := float64(codec.gotWidth) / float64(codec.gotHeight)
		// integer rounding leaves at most one pixel of play
		if diff := want - got; diff > 0.1 || diff < -0.1 {
			t.Fatalf("aspect drifted: orig %dx%d target %dx%d", tc.w, tc.h, codec.gotWidth, codec.gotHeight)
		}
	}
}

func TestResizeValidation(t *testing.T) {
	r := NewResizer(&fakeCodec{w: 10, h: 10})
	if _, err := r.Resize("src.png", 0, 0); !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("expected ErrInvalidBounds, got %v", err)
	}

	none := NewResizer(nil)
	if _, err := none.Resize("src.png", 10, 10); !errors.Is(err, ErrNoResizeBackend) {
		t.Fatalf("expected ErrNoResizeBackend, got %v", err)
	}
}

func TestResizeSeverityThreshold(t *testing.T) {
	// a warning below the threshold keeps the partial output
	warn := &fakeCodec{w: 100, h: 100, status: 350, resizeErr: errors.New("palette warning")}
	out, err := NewResizer(warn).Resize("src.png", 50, 50)
	if err != nil {
		t.Fatalf("sub-threshold status must not fail, got %v", err)
	}
	if out != "src.png.resized" {
		t.Fatalf("expected partial output path, got %q", out)
	}

	// at the threshold it becomes fatal
	fatal := &fakeCodec{w: 100, h: 100, status: 400, resizeErr: errors.New("corrupt image")}
	if _, err := NewResizer(fatal).Resize("src.png", 50, 50); !errors.Is(err, ErrResizeFailed) {
		t.Fatalf("expected ErrResizeFailed, got %v", err)
	}
}

func TestImagingCodecFitsWithinBounds(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writeImage(t, src, 200, 400)

	codec := &ImagingCodec{TempDir: dir}
	r := NewResizer(codec)
	out, err := r.Resize(src, 100, 100)
	if err != nil {
		t.Fatalf("Resize returned error: %v", err)
	}

	w, h, err := codec.DecodeDimensions(out)
	if err != nil {
		t.Fatalf("decode resized output: %v", err)
	}
	// height exceeds the bound more, so its scale applies uniformly
	if w != 50 || h != 100 {
		t.Fatalf("expected 50x100, got %dx%d", w, h)
	}
}

func TestImagingCodecRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	if err := os.WriteFile(src, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := NewResizer(&ImagingCodec{TempDir: dir})
	if _, err := r.Resize(src, 10, 10); !errors.Is(err, ErrResizeFailed) {
		t.Fatalf("expected ErrResizeFailed, got %v", err)
	}
}
