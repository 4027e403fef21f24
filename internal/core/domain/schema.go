package domain

import "sort"

// FieldType is the inferred type of a content type field.
type FieldType string

// Field types inferred from sample values.
const (
	FieldBoolean     FieldType = "Boolean"
	FieldInt         FieldType = "Int"
	FieldFloat       FieldType = "Float"
	FieldString      FieldType = "String"
	FieldDateTime    FieldType = "DateTime"
	FieldCoordinates FieldType = "Coordinates"
	FieldLink        FieldType = "Link"
	FieldAsset       FieldType = "Asset"
	FieldJSON        FieldType = "Json"
)

// FieldDef describes one field of a content type.
type FieldDef struct {
	// Name is the field id.
	Name string

	// Type is the element type for arrays, the value type otherwise.
	Type FieldType

	// Array is true when any sample held a list.
	Array bool

	// LinkTypes are the content types observed as link targets.
	LinkTypes []string
}

// SchemaType is the schema of one content type.
type SchemaType struct {
	// Name is the type name derived from the content type id.
	Name string

	// ContentType is the content type id.
	ContentType string

	// Fields are keyed by field name.
	Fields map[string]FieldDef
}

// FieldNames returns field names in sorted order.
func (s SchemaType) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
