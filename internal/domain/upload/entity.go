package upload

// Meta holds the attributes derived from one uploaded byte stream:
// the reconciled mime type and extension, the byte size, and pixel
// dimensions when the content is a decodable image.
type Meta struct {
	MimeType  string
	Extension string // with leading dot, e.g. ".png"
	Bytes     int64
	Width     *int // nil for non-image content
	Height    *int
}

// dims returns the pixel dimensions and whether they are known.
func (m *Meta) dims() (int, int, bool) {
	if m.Width == nil || m.Height == nil {
		return 0, 0, false
	}
	return *m.Width, *m.Height, true
}

// fields maps the meta onto logical store columns.
func (m *Meta) fields() map[string]any {
	f := map[string]any{
		ColMimeType:  m.MimeType,
		ColExtension: m.Extension,
		ColBytes:     m.Bytes,
		ColWidth:     nil,
		ColHeight:    nil,
	}
	if m.Width != nil {
		f[ColWidth] = *m.Width
	}
	if m.Height != nil {
		f[ColHeight] = *m.Height
	}
	return f
}

// Record is one persisted upload metadata row. A non-nil ParentID marks
// the record as a thumbnail derived from another record.
type Record struct {
	ID        int64
	MimeType  string
	Extension string
	Bytes     int64
	Width     *int
	Height    *int
	ParentID  *int64
}

// field projects a logical column out of the record.
func (r *Record) field(logical string) any {
	switch logical {
	case ColID:
		return r.ID
	case ColMimeType:
		return r.MimeType
	case ColExtension:
		return r.Extension
	case ColBytes:
		return r.Bytes
	case ColWidth:
		if r.Width == nil {
			return nil
		}
		return *r.Width
	case ColHeight:
		if r.Height == nil {
			return nil
		}
		return *r.Height
	case ColParentID:
		if r.ParentID == nil {
			return nil
		}
		return *r.ParentID
	}
	return nil
}
