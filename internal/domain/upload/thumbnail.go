package upload

import (
	"fmt"
	"log"
	"math"
)

// Resizer produces aspect-preserving resized copies of image files
// through a pluggable codec backend.
type Resizer struct {
	codec Codec
}

func NewResizer(codec Codec) *Resizer { return &Resizer{codec: codec} }

// Resize scales src to fit within the given bounds and returns the path
// of the resized copy. A missing bound is derived from the source
// aspect ratio, so at least one must be set. Backend statuses at or
// above FatalSeverity fail the resize; lower ones are logged and the
// partial output is used.
func (r *Resizer) Resize(src string, maxWidth, maxHeight int) (string, error) {
	if r.codec == nil {
		return "", ErrNoResizeBackend
	}
	if maxWidth <= 0 && maxHeight <= 0 {
		return "", ErrInvalidBounds
	}

	origW, origH, err := r.codec.DecodeDimensions(src)
	if err != nil {
		return "", fmt.Errorf("%w: read dimensions of %s: %v", ErrResizeFailed, src, err)
	}
	if origW <= 0 || origH <= 0 {
		return "", fmt.Errorf("%w: %s has zero dimensions", ErrResizeFailed, src)
	}

	if maxWidth <= 0 {
		maxWidth = scaled(origW, maxHeight, origH)
	}
	if maxHeight <= 0 {
		maxHeight = scaled(origH, maxWidth, origW)
	}

	out, status, err := r.codec.Resize(src, maxWidth, maxHeight)
	if status >= FatalSeverity {
		return "", fmt.Errorf("%w: backend status %d: %v", ErrResizeFailed, status, err)
	}
	if err != nil {
		log.Printf("resize warning status=%d src=%s err=%v", status, src, err)
	}
	return out, nil
}

// scaled derives the missing bound preserving orig/other aspect ratio.
func scaled(orig, bound, other int) int {
	v := int(math.Round(float64(orig) * float64(bound) / float64(other)))
	if v < 1 {
		v = 1
	}
	return v
}
