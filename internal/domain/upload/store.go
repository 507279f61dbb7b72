package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Family selects the identifier-allocation strategy of the backing
// database: postgres allocates from a sequence, sqlite reads back the
// auto-increment rowid.
type Family string

const (
	FamilyPostgres Family = "postgres"
	FamilySQLite   Family = "sqlite"
)

// Logical column names. Physical names are resolved through
// StoreConfig.Columns; unmapped logical names default to identity.
const (
	ColID        = "id"
	ColMimeType  = "mime_type"
	ColExtension = "extension"
	ColBytes     = "bytes"
	ColWidth     = "width"
	ColHeight    = "height"
	ColParentID  = "parent_id"
)

// StoreConfig shapes the metadata table.
type StoreConfig struct {
	Table    string            // default "uploads"
	Sequence string            // postgres identifier sequence, default "upload_id_seq"
	Columns  map[string]string // logical -> physical column overrides
	Extra    []string          // caller-declared extra columns (logical names)
	URLBase  string            // public URL prefix for stored files
}

// Store persists upload metadata rows and answers joined lookups
// against consumer tables.
type Store struct {
	db      *gorm.DB
	family  Family
	cfg     StoreConfig
	locator *Locator
	known   map[string]bool // logical columns accepted by insert/update
}

// NewStore derives the database family from the gorm dialector; only
// postgres and sqlite are supported.
func NewStore(db *gorm.DB, cfg StoreConfig, locator *Locator) (*Store, error) {
	var family Family
	switch db.Dialector.Name() {
	case "postgres":
		family = FamilyPostgres
	case "sqlite", "sqlite3":
		family = FamilySQLite
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, db.Dialector.Name())
	}
	if cfg.Table == "" {
		cfg.Table = "uploads"
	}
	if cfg.Sequence == "" {
		cfg.Sequence = "upload_id_seq"
	}
	known := map[string]bool{
		ColMimeType:  true,
		ColExtension: true,
		ColBytes:     true,
		ColWidth:     true,
		ColHeight:    true,
		ColParentID:  true,
	}
	for _, c := range cfg.Extra {
		known[c] = true
	}
	return &Store{db: db, family: family, cfg: cfg, locator: locator, known: known}, nil
}

// Family returns the detected database family.
func (s *Store) Family() Family { return s.family }

// col resolves a logical column name to its physical name.
func (s *Store) col(logical string) string {
	if p, ok := s.cfg.Columns[logical]; ok {
		return p
	}
	return logical
}

// row translates logical fields into a physical row, dropping keys that
// are not known columns.
func (s *Store) row(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s.known[k] {
			out[s.col(k)] = v
		}
	}
	return out
}

// EnsureSchema creates the uploads table when missing, and on postgres
// the identifier sequence. Extra columns are created as text.
func (s *Store) EnsureSchema(ctx context.Context) error {
	var idCol string
	switch s.family {
	case FamilyPostgres:
		if err := s.db.WithContext(ctx).Exec(fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s", s.cfg.Sequence)).Error; err != nil {
			return fmt.Errorf("create sequence: %w", describePG(err))
		}
		idCol = s.col(ColID) + " BIGINT PRIMARY KEY"
	default:
		idCol = s.col(ColID) + " INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	cols := []string{
		idCol,
		s.col(ColMimeType) + " TEXT",
		s.col(ColExtension) + " TEXT",
		s.col(ColBytes) + " BIGINT",
		s.col(ColWidth) + " INTEGER",
		s.col(ColHeight) + " INTEGER",
		s.col(ColParentID) + " BIGINT",
	}
	for _, c := range s.cfg.Extra {
		cols = append(cols, s.col(c)+" TEXT")
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.cfg.Table, strings.Join(cols, ", "))
	if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("create table %s: %w", s.cfg.Table, describePG(err))
	}
	return nil
}

// Insert allocates a fresh identifier, writes a row with the supplied
// logical fields (filtered to known columns) and returns the identifier.
func (s *Store) Insert(ctx context.Context, fields map[string]any) (int64, error) {
	row := s.row(fields)
	if s.family == FamilyPostgres {
		var id int64
		if err := s.db.WithContext(ctx).Raw(fmt.Sprintf("SELECT nextval('%s')", s.cfg.Sequence)).Scan(&id).Error; err != nil {
			return 0, fmt.Errorf("allocate identifier: %w", describePG(err))
		}
		row[s.col(ColID)] = id
		if err := s.db.WithContext(ctx).Table(s.cfg.Table).Create(row).Error; err != nil {
			return 0, fmt.Errorf("insert upload row: %w", describePG(err))
		}
		return id, nil
	}

	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.cfg.Table).Create(row).Error; err != nil {
			return err
		}
		return tx.Raw("SELECT last_insert_rowid()").Scan(&id).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert upload row: %w", err)
	}
	return id, nil
}

// Update overwrites the row at id with the supplied fields. The
// identifier never changes.
func (s *Store) Update(ctx context.Context, id int64, fields map[string]any) error {
	row := s.row(fields)
	if len(row) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Table(s.cfg.Table).Where(s.col(ColID)+" = ?", id).Updates(row).Error
	if err != nil {
		return fmt.Errorf("update upload row %d: %w", id, describePG(err))
	}
	return nil
}

// Delete removes the row at id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.cfg.Table, s.col(ColID))
	if err := s.db.WithContext(ctx).Exec(stmt, id).Error; err != nil {
		return fmt.Errorf("delete upload row %d: %w", id, describePG(err))
	}
	return nil
}

// Get fetches one record by identifier.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	raw := map[string]any{}
	err := s.db.WithContext(ctx).Table(s.cfg.Table).Where(s.col(ColID)+" = ?", id).Take(&raw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get upload row %d: %w", id, describePG(err))
	}
	return s.record(raw), nil
}

// ChildrenOf returns every record whose parent identifier equals id,
// i.e. the thumbnails derived from that upload.
func (s *Store) ChildrenOf(ctx context.Context, id int64) ([]*Record, error) {
	var rows []map[string]any
	err := s.db.WithContext(ctx).Table(s.cfg.Table).
		Where(s.col(ColParentID)+" = ?", id).
		Order(s.col(ColID)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("children of %d: %w", id, describePG(err))
	}
	records := make([]*Record, 0, len(rows))
	for _, raw := range rows {
		records = append(records, s.record(raw))
	}
	return records, nil
}

// LookupOptions tunes LookupJoined projections.
type LookupOptions struct {
	// Columns lists the logical columns to project per prefix.
	// Defaults to mime_type, extension, bytes, width, height.
	Columns []string
	// CacheBust appends the stored file's mtime as a query parameter
	// to each synthesized URL.
	CacheBust bool
}

// LookupJoined reads one consumer row, follows each {prefix}_id column
// into the uploads table and projects the selected columns into keys
// named {prefix}_{column}, plus a synthesized {prefix}_url.
func (s *Store) LookupJoined(ctx context.Context, consumerTable, where string, args []any, prefixes []string, opts LookupOptions) (map[string]any, error) {
	consumer := map[string]any{}
	err := s.db.WithContext(ctx).Table(consumerTable).Where(where, args...).Take(&consumer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no %s row matching %q", ErrRecordNotFound, consumerTable, where)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", consumerTable, describePG(err))
	}

	cols := opts.Columns
	if len(cols) == 0 {
		cols = []string{ColMimeType, ColExtension, ColBytes, ColWidth, ColHeight}
	}

	out := make(map[string]any)
	for _, prefix := range prefixes {
		idVal, ok := consumer[prefix+"_id"]
		if !ok || idVal == nil {
			continue
		}
		id, ok := asInt64(idVal)
		if !ok {
			return nil, fmt.Errorf("%w: %s_id=%v", ErrInvalidIdentifier, prefix, idVal)
		}
		rec, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			out[prefix+"_"+c] = rec.field(c)
		}
		url, err := s.fileURL(rec, opts.CacheBust)
		if err != nil {
			return nil, err
		}
		out[prefix+"_url"] = url
	}
	return out, nil
}

// fileURL synthesizes the public URL of a stored file, optionally
// suffixed with its mtime for cache busting.
func (s *Store) fileURL(rec *Record, cacheBust bool) (string, error) {
	rel, err := s.locator.Build(rec.ID, rec.Extension)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(s.cfg.URLBase, "/") + "/" + filepath.ToSlash(rel)
	if cacheBust {
		if info, err := os.Stat(s.locator.Abs(rel)); err == nil {
			url += "?" + strconv.FormatInt(info.ModTime().Unix(), 10)
		}
	}
	return url, nil
}

// record converts a physical row into a Record.
func (s *Store) record(raw map[string]any) *Record {
	rec := &Record{}
	if v, ok := asInt64(raw[s.col(ColID)]); ok {
		rec.ID = v
	}
	rec.MimeType = asString(raw[s.col(ColMimeType)])
	rec.Extension = asString(raw[s.col(ColExtension)])
	if v, ok := asInt64(raw[s.col(ColBytes)]); ok {
		rec.Bytes = v
	}
	if v, ok := asInt64(raw[s.col(ColWidth)]); ok {
		w := int(v)
		rec.Width = &w
	}
	if v, ok := asInt64(raw[s.col(ColHeight)]); ok {
		h := int(v)
		rec.Height = &h
	}
	if v, ok := asInt64(raw[s.col(ColParentID)]); ok {
		rec.ParentID = &v
	}
	return rec
}

// describePG unwraps postgres driver errors into their message and
// SQLSTATE; other errors pass through unchanged.
func describePG(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	}
	return err
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case []byte:
		parsed, err := strconv.ParseInt(string(n), 10, 64)
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	}
	return 0, false
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}
