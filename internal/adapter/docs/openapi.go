package docs

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"user-api/internal/domain/user"
)

// OpenAPIVersion is the version of the OpenAPI document format produced.
const OpenAPIVersion = "3.1.0"

// Document is the subset of an OpenAPI document this service publishes.
type Document struct {
	OpenAPI    string         `json:"openapi"`
	Info       Info           `json:"info"`
	Paths      map[string]any `json:"paths"`
	Components Components     `json:"components"`
}

// Info describes the API.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// Components holds the reusable schemas.
type Components struct {
	Schemas map[string]Schema `json:"schemas"`
}

// Schema is a JSON Schema object.
type Schema struct {
	Title      string            `json:"title,omitempty"`
	Type       string            `json:"type,omitempty"`
	AnyOf      []Schema          `json:"anyOf,omitempty"`
	Properties map[string]Schema `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

// New builds the document. No routes are registered, so paths is empty;
// the User schema is published under components.
func New(title, version string) Document {
	return Document{
		OpenAPI: OpenAPIVersion,
		Info:    Info{Title: title, Version: version},
		Paths:   map[string]any{},
		Components: Components{
			Schemas: map[string]Schema{
				"User": SchemaOf("User", reflect.TypeOf(user.Input{})),
			},
		},
	}
}

// JSON renders the document.
func (d Document) JSON() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal openapi document: %w", err)
	}
	return data, nil
}

// SchemaOf derives an object schema from a struct of *string fields.
// A field tagged validate:"required" is required; any other field may
// also be null.
func SchemaOf(title string, t reflect.Type) Schema {
	s := Schema{
		Title:      title,
		Type:       "object",
		Properties: map[string]Schema{},
		Required:   []string{},
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}

		prop := Schema{Title: f.Tag.Get("doc")}
		if slices.Contains(strings.Split(f.Tag.Get("validate"), ","), "required") {
			prop.Type = "string"
			s.Required = append(s.Required, name)
		} else {
			prop.AnyOf = []Schema{{Type: "string"}, {Type: "null"}}
		}
		s.Properties[name] = prop
	}

	return s
}
