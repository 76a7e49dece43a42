// ABOUTME: JSON schema generation for tool argument structs via reflection.
// ABOUTME: Schemas are fully inlined as the protocol expects, no $ref indirection.

package servicenow

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// schemaFor reflects a JSON schema from a tool's argument struct. The
// description struct tag populates per-property descriptions; fields without
// omitempty are marked required.
func schemaFor(v any) (json.RawMessage, error) {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return json.RawMessage(`{"type":"object","properties":{}}`), nil
	}

	reflector := &jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(reflect.New(t).Interface())
	schema.Version = ""
	schema.Required = nil

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		parts := strings.Split(jsonTag, ",")
		propertyName := parts[0]

		if schema.Properties != nil {
			if prop, ok := schema.Properties.Get(propertyName); ok {
				if desc := field.Tag.Get("description"); desc != "" {
					prop.Description = desc
				}
			}
		}

		optional := false
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				optional = true
			}
		}
		if !optional {
			schema.Required = append(schema.Required, propertyName)
		}
	}

	return json.Marshal(schema)
}
