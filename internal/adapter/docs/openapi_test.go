package docs

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UserSchema(t *testing.T) {
	doc := New("user-api", "0.1.0")

	assert.Equal(t, OpenAPIVersion, doc.OpenAPI)
	assert.Equal(t, "user-api", doc.Info.Title)
	assert.Empty(t, doc.Paths)

	schema, ok := doc.Components.Schemas["User"]
	require.True(t, ok)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"email", "password"}, schema.Required)
	assert.Len(t, schema.Properties, 3)

	assert.Equal(t, "string", schema.Properties["email"].Type)
	assert.Equal(t, "string", schema.Properties["password"].Type)
	assert.Equal(t, []Schema{{Type: "string"}, {Type: "null"}}, schema.Properties["name"].AnyOf)
}

func TestDocument_JSON(t *testing.T) {
	data, err := New("user-api", "0.1.0").JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "3.1.0", decoded["openapi"])
	assert.Equal(t, map[string]any{}, decoded["paths"])

	user := decoded["components"].(map[string]any)["schemas"].(map[string]any)["User"].(map[string]any)
	assert.Equal(t, []any{"email", "password"}, user["required"])
}

func TestSchemaOf_SkipsUntaggedFields(t *testing.T) {
	type sample struct {
		Kept    *string `json:"kept" validate:"required"`
		Ignored *string `json:"-"`
		Bare    *string
	}

	s := SchemaOf("Sample", reflect.TypeOf(sample{}))

	assert.Equal(t, []string{"kept"}, s.Required)
	assert.Len(t, s.Properties, 1)
}
