package upload

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Scheme selects how identifiers map to storage paths.
type Scheme string

const (
	// SchemeFlat stores every file directly under the storage root.
	SchemeFlat Scheme = "flat"
	// SchemeHashed spreads files over three nested directory levels
	// taken from the md5 of the decimal identifier.
	SchemeHashed Scheme = "hashed"
)

// Locator maps an identifier plus extension to a path under the storage
// root. Only the hashed scheme touches the filesystem, to create its
// directory levels on first use.
type Locator struct {
	root   string
	scheme Scheme
}

func NewLocator(root string, scheme Scheme) (*Locator, error) {
	switch scheme {
	case SchemeFlat, SchemeHashed:
	default:
		return nil, fmt.Errorf("%w: unknown location scheme %q", ErrInvalidSpec, scheme)
	}
	return &Locator{root: root, scheme: scheme}, nil
}

// Build returns the path for id+ext relative to the storage root.
func (l *Locator) Build(id int64, ext string) (string, error) {
	name := strconv.FormatInt(id, 10) + ext
	if l.scheme == SchemeFlat {
		return name, nil
	}
	sum := md5.Sum([]byte(strconv.FormatInt(id, 10)))
	digest := hex.EncodeToString(sum[:])
	dir := filepath.Join(digest[0:1], digest[1:2], digest[2:3])
	if err := os.MkdirAll(filepath.Join(l.root, dir), 0o755); err != nil {
		return "", fmt.Errorf("create hashed directories: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// Abs resolves a relative path against the storage root.
func (l *Locator) Abs(rel string) string { return filepath.Join(l.root, rel) }

// Root returns the storage root directory.
func (l *Locator) Root() string { return l.root }
