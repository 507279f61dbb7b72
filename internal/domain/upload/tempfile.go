package upload

import (
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// tempSet tracks the temporary files created while processing one
// pipeline call so that every exit path removes them.
type tempSet struct {
	dir   string
	paths []string
}

func newTempSet(dir string) *tempSet {
	if dir == "" {
		dir = os.TempDir()
	}
	return &tempSet{dir: dir}
}

// create opens a fresh temp file carrying the given extension. The
// extension matters: the codec picks its output encoder from it.
func (ts *tempSet) create(ext string) (*os.File, error) {
	path := filepath.Join(ts.dir, "upload-"+uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	ts.paths = append(ts.paths, path)
	return f, nil
}

// adopt registers an externally created file for cleanup.
func (ts *tempSet) adopt(path string) { ts.paths = append(ts.paths, path) }

func (ts *tempSet) cleanup() {
	for _, p := range ts.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("tempset: remove %s: %v", p, err)
		}
	}
	ts.paths = nil
}
