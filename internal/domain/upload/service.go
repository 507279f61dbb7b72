package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^\d+$`)

// Service drives the upload pipeline for every field declared in the
// spec: extract meta, optionally downsize, insert or update the
// metadata row, store the primary file, then derive and store the
// field's thumbnails.
type Service struct {
	spec      *Spec
	extractor *Extractor
	resizer   *Resizer
	store     *Store
	files     *FileStore
	tempDir   string
}

func NewService(spec *Spec, extractor *Extractor, resizer *Resizer, store *Store, files *FileStore, tempDir string) *Service {
	return &Service{
		spec:      spec,
		extractor: extractor,
		resizer:   resizer,
		store:     store,
		files:     files,
		tempDir:   tempDir,
	}
}

// FieldNames returns every field and thumbnail name declared in the
// spec.
func (s *Service) FieldNames() []string { return s.spec.Names() }

// StoreAll processes every declared field for which src carries upload
// bytes and returns the output entity: the form values merged with the
// produced {name}_id keys, minus the raw upload field names themselves.
//
// A failing field aborts only its own processing; sibling fields
// continue, and whatever was committed before a failure stays
// committed. When any field failed no entity is returned, only the
// joined error.
func (s *Service) StoreAll(ctx context.Context, src Source, form map[string]string, shared map[string]any) (map[string]any, error) {
	results := make(map[string]any)
	var errs []error
	for _, rule := range s.spec.Fields() {
		ids, err := s.storeField(ctx, src, rule, form, shared)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", rule.Name, err))
			continue
		}
		for k, v := range ids {
			results[k] = v
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	entity := make(map[string]any, len(form)+len(results))
	for k, v := range form {
		entity[k] = v
	}
	for k, v := range results {
		entity[k] = v
	}
	// the raw upload field is never echoed back, only its derived _id
	for _, rule := range s.spec.Fields() {
		delete(entity, rule.Name)
	}
	return entity, nil
}

// storeField runs the per-field state machine. It returns nil, nil when
// the request carries no upload for the slot.
func (s *Service) storeField(ctx context.Context, src Source, rule FieldRule, form map[string]string, shared map[string]any) (map[string]any, error) {
	r, declaredName, declaredType, ok, err := src.Fetch(rule.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	temps := newTempSet(s.tempDir)
	defer temps.cleanup()

	primary, err := spool(temps, r, filepath.Ext(declaredName))
	if err != nil {
		return nil, err
	}

	meta, err := s.extractor.Extract(primary, declaredName, declaredType)
	if err != nil {
		return nil, err
	}
	primary, err = withExtension(temps, primary, meta.Extension)
	if err != nil {
		return nil, err
	}

	if rule.Downsize != nil {
		if w, h, ok := meta.dims(); ok && rule.Downsize.Exceeds(w, h) {
			resized, err := s.resizer.Resize(primary, rule.Downsize.MaxWidth, rule.Downsize.MaxHeight)
			if err != nil {
				return nil, err
			}
			temps.adopt(resized)
			primary = resized
			if meta, err = s.extractor.Extract(primary, declaredName, declaredType); err != nil {
				return nil, err
			}
		}
	}

	fields := meta.fields()
	for k, v := range shared {
		fields[k] = v
	}

	var id int64
	if raw := form[rule.Name+"_id"]; raw != "" {
		// replace: old thumbnails are fully discarded before new
		// ones are built
		if id, err = parseIdentifier(raw); err != nil {
			return nil, err
		}
		if err := s.purgeChildren(ctx, id); err != nil {
			return nil, err
		}
		if err := s.store.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	} else {
		if id, err = s.store.Insert(ctx, fields); err != nil {
			return nil, err
		}
	}

	if _, err := s.files.Save(primary, id, meta.Extension); err != nil {
		return nil, err
	}

	results := map[string]any{rule.Name + "_id": id}
	for _, thumb := range rule.Thumbnails {
		thumbID, err := s.storeThumbnail(ctx, temps, thumb, primary, meta, id, shared)
		if err != nil {
			return nil, err
		}
		results[thumb.Name+"_id"] = thumbID
	}
	return results, nil
}

// storeThumbnail derives one thumbnail from the primary's current file.
// When the primary already fits the bounds the file is reused verbatim;
// there is no upscaling. Thumbnail rows are always inserted fresh.
func (s *Service) storeThumbnail(ctx context.Context, temps *tempSet, thumb ThumbnailRule, primary string, meta *Meta, parentID int64, shared map[string]any) (int64, error) {
	src := primary
	if w, h, ok := meta.dims(); ok && thumb.Exceeds(w, h) {
		resized, err := s.resizer.Resize(primary, thumb.MaxWidth, thumb.MaxHeight)
		if err != nil {
			return 0, err
		}
		temps.adopt(resized)
		src = resized
	}

	tmeta, err := s.extractor.Extract(src, filepath.Base(src), meta.MimeType)
	if err != nil {
		return 0, err
	}
	fields := tmeta.fields()
	for k, v := range shared {
		fields[k] = v
	}
	fields[ColParentID] = parentID

	id, err := s.store.Insert(ctx, fields)
	if err != nil {
		return 0, err
	}
	if _, err := s.files.Save(src, id, tmeta.Extension); err != nil {
		return 0, err
	}
	return id, nil
}

// purgeChildren removes every thumbnail row and file belonging to id.
func (s *Service) purgeChildren(ctx context.Context, id int64) error {
	children, err := s.store.ChildrenOf(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := s.files.Delete(c.ID, c.Extension); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMarked removes every upload whose {field}_delete flag is truthy
// in the form, together with the thumbnails declared for that field.
// It returns the processed _id key names so the caller can null them
// out in its own entity.
func (s *Service) DeleteMarked(ctx context.Context, form map[string]string) ([]string, error) {
	var processed []string
	for _, rule := range s.spec.Fields() {
		if !truthy(form[rule.Name+"_delete"]) {
			continue
		}
		name, err := s.DeleteOne(ctx, form, rule.Name, 0)
		if err != nil {
			return processed, err
		}
		processed = append(processed, name)
		for _, thumb := range rule.Thumbnails {
			name, err := s.DeleteOne(ctx, form, thumb.Name, 0)
			if err != nil {
				return processed, err
			}
			processed = append(processed, name)
		}
	}
	return processed, nil
}

// DeleteOne removes a single upload by field or thumbnail name. When id
// is zero the identifier is read from the form's {name}_id value, which
// must be all digits. Returns the _id key name processed.
func (s *Service) DeleteOne(ctx context.Context, form map[string]string, name string, id int64) (string, error) {
	key := name + "_id"
	if id == 0 {
		var err error
		if id, err = parseIdentifier(form[key]); err != nil {
			return "", err
		}
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.files.Delete(rec.ID, rec.Extension); err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, rec.ID); err != nil {
		return "", err
	}
	return key, nil
}

// LookupJoined answers a joined lookup against a consumer table; see
// Store.LookupJoined.
func (s *Service) LookupJoined(ctx context.Context, consumerTable, where string, args []any, prefixes []string, opts LookupOptions) (map[string]any, error) {
	return s.store.LookupJoined(ctx, consumerTable, where, args, prefixes, opts)
}

// spool copies an upload stream into a temp file and closes the stream.
func spool(temps *tempSet, r io.ReadCloser, ext string) (string, error) {
	defer r.Close()
	f, err := temps.create(ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// withExtension renames a temp file so its extension matches the
// resolved one; the codec picks its output encoder from the path.
func withExtension(temps *tempSet, path, ext string) (string, error) {
	if filepath.Ext(path) == ext {
		return path, nil
	}
	renamed := strings.TrimSuffix(path, filepath.Ext(path)) + ext
	if err := os.Rename(path, renamed); err != nil {
		return "", fmt.Errorf("rename temp file: %w", err)
	}
	temps.adopt(renamed)
	return renamed, nil
}

func parseIdentifier(raw string) (int64, error) {
	if !identifierPattern.MatchString(raw) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// truthy mirrors form-value semantics: empty, "0" and "false" are off.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no":
		return false
	}
	return true
}
