package domain

// Link references another Document by id.
type Link struct {
	// ID is the target document id.
	ID string

	// LinkType is Entry, Asset or ContentType.
	LinkType string
}

// NewLink creates a link to the given id.
func NewLink(id, linkType string) Link {
	return Link{ID: id, LinkType: linkType}
}

// Descriptor returns the wire representation stored in Document fields.
func (l Link) Descriptor() map[string]any {
	return map[string]any{
		"sys": map[string]any{
			"type":     string(KindLink),
			"linkType": l.LinkType,
			"id":       l.ID,
		},
	}
}

// AsLink reports whether v is shaped as a link descriptor and returns it.
func AsLink(v any) (Link, bool) {
	switch t := v.(type) {
	case Link:
		return t, t.ID != ""
	case *Link:
		if t == nil {
			return Link{}, false
		}
		return *t, t.ID != ""
	case map[string]any:
		sys, ok := t["sys"].(map[string]any)
		if !ok {
			return Link{}, false
		}
		if typ, _ := sys["type"].(string); typ != string(KindLink) {
			return Link{}, false
		}
		id, _ := sys["id"].(string)
		if id == "" {
			return Link{}, false
		}
		linkType, _ := sys["linkType"].(string)
		return Link{ID: id, LinkType: linkType}, true
	default:
		return Link{}, false
	}
}
