package upload

import (
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// canonicalExts lists the registered extensions per mime type, preferred
// first. Types not listed here fall back to the stdlib mime registry.
var canonicalExts = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg", ".jpe"},
	"image/png":       {".png"},
	"image/gif":       {".gif"},
	"image/webp":      {".webp"},
	"image/bmp":       {".bmp"},
	"image/tiff":      {".tif", ".tiff"},
	"image/svg+xml":   {".svg"},
	"application/pdf": {".pdf"},
	"application/zip": {".zip"},
	"text/plain":      {".txt"},
	"text/html":       {".html", ".htm"},
	"text/csv":        {".csv"},
	"video/mp4":       {".mp4"},
	"video/webm":      {".webm"},
	"audio/mpeg":      {".mp3"},
}

// Extractor derives canonical mime type, extension, byte size and image
// dimensions from a source file plus the client-declared filename and
// content type.
type Extractor struct {
	codec  Codec // optional, for image dimensions
	strict bool  // fail on an undeterminable mime type
}

func NewExtractor(codec Codec, strict bool) *Extractor {
	return &Extractor{codec: codec, strict: strict}
}

// Extract resolves the mime type (content inspection first, declared
// content type as fallback), reconciles the extension against the
// canonical set for that type, and stats the file. Image dimensions are
// read from the header only, without a full decode.
func (e *Extractor) Extract(path, declaredName, declaredType string) (*Meta, error) {
	mimeType := sniffMime(path)
	if mimeType == "" {
		mimeType = strings.TrimSpace(strings.Split(declaredType, ";")[0])
	}
	if mimeType == "" && e.strict {
		return nil, fmt.Errorf("%w: %q", ErrNoMimeType, declaredName)
	}

	ext := resolveExtension(mimeType, declaredName)
	if ext == "" {
		return nil, fmt.Errorf("%w: %q (%s)", ErrNoExtension, declaredName, mimeType)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	meta := &Meta{MimeType: mimeType, Extension: ext, Bytes: info.Size()}
	if e.codec != nil && strings.HasPrefix(mimeType, "image/") {
		if w, h, err := e.codec.DecodeDimensions(path); err == nil {
			meta.Width, meta.Height = &w, &h
		}
	}
	return meta, nil
}

// sniffMime probes the file content. An undecided probe (octet-stream)
// counts as no answer so the declared type can take over.
func sniffMime(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil || mt == nil {
		return ""
	}
	if mt.Is("application/octet-stream") {
		return ""
	}
	return strings.TrimSpace(strings.Split(mt.String(), ";")[0])
}

// resolveExtension picks the stored extension. The declared extension
// wins when it is a member of the canonical set for the mime type;
// otherwise the first canonical extension is used. With no canonical
// set the declared extension stands verbatim.
func resolveExtension(mimeType, declaredName string) string {
	declared := ""
	if i := strings.LastIndex(declaredName, "."); i >= 0 && i < len(declaredName)-1 {
		declared = declaredName[i:]
	}

	canonical := canonicalExts[mimeType]
	if len(canonical) == 0 && mimeType != "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil {
			canonical = exts
		}
	}

	if len(canonical) > 0 {
		for _, c := range canonical {
			if declared == c {
				return declared
			}
		}
		return canonical[0]
	}
	return declared
}
