package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the sys.type of a Document.
type Kind string

const (
	// KindEntry is a content entry belonging to a content type.
	KindEntry Kind = "Entry"

	// KindAsset is a media asset.
	KindAsset Kind = "Asset"

	// KindDeletedEntry is the tombstone left by a deleted entry.
	KindDeletedEntry Kind = "DeletedEntry"

	// KindDeletedAsset is the tombstone left by a deleted asset.
	KindDeletedAsset Kind = "DeletedAsset"

	// KindSyncToken marks the record holding the sync cursor.
	// It is written with Store.Set and never accepted by Store.Index.
	KindSyncToken Kind = "SyncToken"

	// KindLink is the sys.type of a link descriptor.
	KindLink Kind = "Link"
)

// Deleted reports whether the kind is a tombstone.
func (k Kind) Deleted() bool {
	return k == KindDeletedEntry || k == KindDeletedAsset
}

// Indexable reports whether documents of this kind may enter a Store via Index.
func (k Kind) Indexable() bool {
	switch k {
	case KindEntry, KindAsset, KindDeletedEntry, KindDeletedAsset:
		return true
	default:
		return false
	}
}

// Document is a raw content record replicated from the remote space.
type Document struct {
	// ID is the unique identifier within the space.
	ID string

	// Kind is the sys.type (Entry, Asset, DeletedEntry, DeletedAsset).
	Kind Kind

	// Revision increases monotonically for each published change of ID.
	Revision int

	// ContentType is the content type id of an entry. Empty for assets.
	ContentType string

	// Locale is set when Fields holds a single-locale view.
	// When empty, every field maps locale codes to values.
	Locale string

	// CreatedAt is when the document was first published.
	CreatedAt time.Time

	// UpdatedAt is when the document was last published.
	UpdatedAt time.Time

	// Fields holds field values, keyed by field name.
	// After link resolution a link descriptor is replaced by the target *Document.
	Fields map[string]any
}

// IsTombstone reports whether the document marks a deletion.
func (d *Document) IsTombstone() bool {
	return d != nil && d.Kind.Deleted()
}

// Localized reports whether Fields holds every locale (field -> locale -> value).
func (d *Document) Localized() bool {
	return d.Locale == ""
}

// Validate checks the document can be accepted at the ingestion boundary.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}
	if !d.Kind.Indexable() {
		return fmt.Errorf("%w: unsupported kind %q for %s", ErrInvalidDocument, d.Kind, d.ID)
	}
	return nil
}

// Field returns the value of a field in the given locale.
// For single-locale documents the locale argument is ignored.
func (d *Document) Field(name, locale string) (any, bool) {
	raw, ok := d.Fields[name]
	if !ok {
		return nil, false
	}
	if !d.Localized() {
		return raw, true
	}
	byLocale, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := byLocale[locale]
	return v, ok
}

// Clone returns a deep copy of the document. Resolved link targets are cloned too.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.Fields != nil {
		c.Fields = make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			c.Fields[k] = cloneValue(v)
		}
	}
	return &c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	case *Document:
		return t.Clone()
	default:
		return v
	}
}

// MapDocuments rewrites every resolved *Document nested in fields with fn.
// When fn returns nil the value is dropped (removed from arrays, deleted from maps).
func MapDocuments(fields map[string]any, fn func(*Document) (*Document, error)) (map[string]any, error) {
	if fields == nil {
		return nil, nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		mapped, keep, err := mapValue(v, fn)
		if err != nil {
			return nil, err
		}
		if keep {
			out[k] = mapped
		}
	}
	return out, nil
}

func mapValue(v any, fn func(*Document) (*Document, error)) (any, bool, error) {
	switch t := v.(type) {
	case *Document:
		d, err := fn(t)
		if err != nil {
			return nil, false, err
		}
		return d, d != nil, nil
	case []any:
		s := make([]any, 0, len(t))
		for _, inner := range t {
			mapped, keep, err := mapValue(inner, fn)
			if err != nil {
				return nil, false, err
			}
			if keep {
				s = append(s, mapped)
			}
		}
		return s, true, nil
	case map[string]any:
		m, err := MapDocuments(t, fn)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	default:
		return v, true, nil
	}
}

// wireDocument is the JSON shape used by the delivery and sync APIs.
type wireDocument struct {
	Sys    wireSys        `json:"sys"`
	Fields map[string]any `json:"fields,omitempty"`
}

type wireSys struct {
	ID          string     `json:"id"`
	Type        Kind       `json:"type"`
	Revision    int        `json:"revision,omitempty"`
	ContentType *wireLink  `json:"contentType,omitempty"`
	Locale      string     `json:"locale,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type wireLink struct {
	Sys struct {
		Type     Kind   `json:"type"`
		LinkType string `json:"linkType"`
		ID       string `json:"id"`
	} `json:"sys"`
}

// MarshalJSON encodes the document in the sys/fields wire shape.
func (d *Document) MarshalJSON() ([]byte, error) {
	w := wireDocument{
		Sys: wireSys{
			ID:       d.ID,
			Type:     d.Kind,
			Revision: d.Revision,
			Locale:   d.Locale,
		},
		Fields: d.Fields,
	}
	if d.ContentType != "" {
		ct := &wireLink{}
		ct.Sys.Type = KindLink
		ct.Sys.LinkType = "ContentType"
		ct.Sys.ID = d.ContentType
		w.Sys.ContentType = ct
	}
	if !d.CreatedAt.IsZero() {
		t := d.CreatedAt
		w.Sys.CreatedAt = &t
	}
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		w.Sys.UpdatedAt = &t
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the sys/fields wire shape.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Document{
		ID:       w.Sys.ID,
		Kind:     w.Sys.Type,
		Revision: w.Sys.Revision,
		Locale:   w.Sys.Locale,
		Fields:   w.Fields,
	}
	if w.Sys.ContentType != nil {
		d.ContentType = w.Sys.ContentType.Sys.ID
	}
	if w.Sys.CreatedAt != nil {
		d.CreatedAt = *w.Sys.CreatedAt
	}
	if w.Sys.UpdatedAt != nil {
		d.UpdatedAt = *w.Sys.UpdatedAt
	}
	return nil
}

// SysValue returns the value of a sys attribute by its wire name.
func (d *Document) SysValue(name string) (any, bool) {
	switch name {
	case "id":
		return d.ID, true
	case "type":
		return string(d.Kind), true
	case "revision":
		return d.Revision, true
	case "locale":
		return d.Locale, d.Locale != ""
	case "createdAt":
		return d.CreatedAt.UTC().Format(time.RFC3339Nano), !d.CreatedAt.IsZero()
	case "updatedAt":
		return d.UpdatedAt.UTC().Format(time.RFC3339Nano), !d.UpdatedAt.IsZero()
	case "contentType":
		if d.ContentType == "" {
			return nil, false
		}
		return NewLink(d.ContentType, "ContentType").Descriptor(), true
	default:
		return nil, false
	}
}
