package upload

import (
	"encoding/json"
	"fmt"
)

// Bounds is a maximum width/height box. Zero means unconstrained on
// that side; at least one side must be set.
type Bounds struct {
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
}

func (b Bounds) valid() bool { return b.MaxWidth > 0 || b.MaxHeight > 0 }

// Exceeds reports whether a w x h image spills over the box in either
// dimension.
func (b Bounds) Exceeds(w, h int) bool {
	return (b.MaxWidth > 0 && w > b.MaxWidth) || (b.MaxHeight > 0 && h > b.MaxHeight)
}

// ThumbnailRule declares a derived image with its own name and bounds.
type ThumbnailRule struct {
	Name string `json:"name"`
	Bounds
}

// FieldRule configures one named upload slot: an optional downsize
// bound applied to the primary file, and the thumbnails derived from it.
type FieldRule struct {
	Name       string          `json:"field"`
	Downsize   *Bounds         `json:"downsize,omitempty"`
	Thumbnails []ThumbnailRule `json:"thumbnails,omitempty"`
}

// Spec is the process-wide upload configuration: an ordered set of
// field rules, built once at startup and read-only afterwards. Field
// and thumbnail names are unique across the whole spec; they become
// lookup keys and the `_id` suffixes of the result map.
type Spec struct {
	fields []FieldRule
	names  []string // field + thumbnail names in declared order
}

func NewSpec(fields []FieldRule) (*Spec, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields declared", ErrInvalidSpec)
	}
	seen := make(map[string]bool)
	var names []string
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field with empty name", ErrInvalidSpec)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidSpec, f.Name)
		}
		seen[f.Name] = true
		names = append(names, f.Name)
		if f.Downsize != nil && !f.Downsize.valid() {
			return nil, fmt.Errorf("%w: field %q downsize needs max width or height", ErrInvalidSpec, f.Name)
		}
		for _, t := range f.Thumbnails {
			if t.Name == "" {
				return nil, fmt.Errorf("%w: field %q has a thumbnail with empty name", ErrInvalidSpec, f.Name)
			}
			if seen[t.Name] {
				return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidSpec, t.Name)
			}
			seen[t.Name] = true
			names = append(names, t.Name)
			if !t.valid() {
				return nil, fmt.Errorf("%w: thumbnail %q needs max width or height", ErrInvalidSpec, t.Name)
			}
		}
	}
	return &Spec{fields: fields, names: names}, nil
}

// ParseSpec reads the JSON spec document: an ordered array of field
// rules.
func ParseSpec(data []byte) (*Spec, error) {
	var fields []FieldRule
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return NewSpec(fields)
}

// Fields returns the field rules in declared order.
func (s *Spec) Fields() []FieldRule { return s.fields }

// Names returns every field and thumbnail name in declared order.
func (s *Spec) Names() []string { return append([]string(nil), s.names...) }
