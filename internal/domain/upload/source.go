package upload

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Source yields the raw bytes of a named upload slot together with the
// filename and content type the client declared for it. ok is false
// when the request carries no upload for that slot.
type Source interface {
	Fetch(field string) (r io.ReadCloser, fileName, contentType string, ok bool, err error)
}

// MultipartSource reads upload slots from a parsed multipart form.
type MultipartSource struct {
	form *multipart.Form
}

func NewMultipartSource(form *multipart.Form) *MultipartSource {
	return &MultipartSource{form: form}
}

func (s *MultipartSource) Fetch(field string) (io.ReadCloser, string, string, bool, error) {
	if s.form == nil {
		return nil, "", "", false, nil
	}
	headers := s.form.File[field]
	if len(headers) == 0 {
		return nil, "", "", false, nil
	}
	h := headers[0]
	f, err := h.Open()
	if err != nil {
		return nil, "", "", false, err
	}
	return f, h.Filename, h.Header.Get("Content-Type"), true, nil
}

// LocalFile points a slot at a file on disk.
type LocalFile struct {
	Path        string
	ContentType string
}

// FileSource serves upload slots from local paths. Used by the seed
// command and in tests.
type FileSource struct {
	Files map[string]LocalFile
}

func (s FileSource) Fetch(field string) (io.ReadCloser, string, string, bool, error) {
	lf, ok := s.Files[field]
	if !ok {
		return nil, "", "", false, nil
	}
	f, err := os.Open(lf.Path)
	if err != nil {
		return nil, "", "", false, err
	}
	return f, filepath.Base(lf.Path), lf.ContentType, true, nil
}
