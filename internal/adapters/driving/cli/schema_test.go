package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replica/internal/core/domain"
)

func postSchema() domain.SchemaType {
	return domain.SchemaType{
		Name:        "Post",
		ContentType: "post",
		Fields: map[string]domain.FieldDef{
			"title":  {Name: "title", Type: domain.FieldString},
			"author": {Name: "author", Type: domain.FieldLink, LinkTypes: []string{"author", "person"}},
			"tags":   {Name: "tags", Type: domain.FieldString, Array: true},
		},
	}
}

func TestSchemaCmd_Types(t *testing.T) {
	ta := setupTestApp(t)
	ta.schemas.types = []domain.SchemaType{postSchema()}

	out, err := execute(t, "schema")
	require.NoError(t, err)

	assert.Contains(t, out, "Post (post)")
	assert.Contains(t, out, "author: Link<author|person>")
	assert.Contains(t, out, "tags: [String]")
	assert.Contains(t, out, "title: String")
	assert.Zero(t, ta.schemas.rebuilds)
}

func TestSchemaCmd_Empty(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "No content types known")
}

func TestSchemaCmd_Rebuild(t *testing.T) {
	ta := setupTestApp(t)
	ta.schemas.rebuilt = []domain.SchemaType{postSchema()}

	out, err := execute(t, "schema", "--rebuild")
	require.NoError(t, err)

	assert.Equal(t, 1, ta.schemas.rebuilds)
	assert.Contains(t, out, "Post (post)")
}

func TestSchemaCmd_RebuildError(t *testing.T) {
	ta := setupTestApp(t)
	ta.schemas.err = errors.New("store closed")

	_, err := execute(t, "schema", "--rebuild")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to rebuild schemas")
}

func TestSchemaCmd_JSON(t *testing.T) {
	ta := setupTestApp(t)
	ta.schemas.types = []domain.SchemaType{postSchema()}

	out, err := execute(t, "schema", "--json")
	require.NoError(t, err)

	var decoded []domain.SchemaType
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, postSchema(), decoded[0])
}

func TestFieldType(t *testing.T) {
	tests := []struct {
		def  domain.FieldDef
		want string
	}{
		{domain.FieldDef{Type: domain.FieldInt}, "Int"},
		{domain.FieldDef{Type: domain.FieldAsset, Array: true}, "[Asset]"},
		{domain.FieldDef{Type: domain.FieldLink, LinkTypes: []string{"author"}, Array: true}, "[Link<author>]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fieldType(tt.def))
	}
}
