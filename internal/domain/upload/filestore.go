package upload

import (
	"fmt"
	"io"
	"log"
	"os"
)

// FileStore owns the stored bytes on disk, keyed by identifier and
// extension through the Locator. A file is only ever written after its
// metadata row exists.
type FileStore struct {
	locator *Locator
}

func NewFileStore(locator *Locator) *FileStore { return &FileStore{locator: locator} }

// Save copies src into the location computed for id+ext and returns the
// relative path written. Any I/O failure is fatal.
func (fs *FileStore) Save(src string, id int64, ext string) (string, error) {
	rel, err := fs.locator.Build(id, ext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrCopyFailed, src, err)
	}
	defer in.Close()

	dst := fs.locator.Abs(rel)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrCopyFailed, dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: write %s: %v", ErrCopyFailed, dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %v", ErrCopyFailed, dst, err)
	}
	return rel, nil
}

// Delete removes the stored file for id+ext. A missing file is logged
// and ignored: a prior partial failure may have left a metadata row
// without its bytes.
func (fs *FileStore) Delete(id int64, ext string) error {
	rel, err := fs.locator.Build(id, ext)
	if err != nil {
		return err
	}
	if err := os.Remove(fs.locator.Abs(rel)); err != nil {
		if os.IsNotExist(err) {
			log.Printf("filestore: id=%d file already absent at %s", id, rel)
			return nil
		}
		return err
	}
	return nil
}
