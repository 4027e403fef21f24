package export

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CursorVersion is the current cursor schema version.
const CursorVersion = 1

// ErrInvalidCursor indicates the cursor format is invalid.
var ErrInvalidCursor = errors.New("export: invalid cursor format")

// Cursor is the position in the sync stream: the last file delivered,
// ordered by modification time then name.
type Cursor struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// Since is the modification time of the last delivered file.
	Since time.Time `json:"since"`

	// After is the name of the last delivered file.
	After string `json:"after,omitempty"`
}

// before reports whether a file sorts at or before the cursor.
func (c *Cursor) before(modTime time.Time, name string) bool {
	if modTime.Equal(c.Since) {
		return name <= c.After
	}
	return modTime.Before(c.Since)
}

// Encode serializes the cursor to a base64-encoded JSON string.
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor from a base64-encoded JSON string.
// An empty string decodes to the start of the stream.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return &Cursor{Version: CursorVersion}, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Version != CursorVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidCursor, c.Version)
	}
	return &c, nil
}
