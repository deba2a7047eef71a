package llm

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/m-mizutani/goerr/v2"
)

var ErrDecodeResponse = goerr.New("failed to decode structured response")

// NewSchema reflects T into a strict structured-output schema.
func NewSchema[T any](name, description string) Schema {
	return Schema{
		Name:        name,
		Description: description,
		Definition:  GenerateSchema[T](),
	}
}

// GenerateSchema reflects T into a JSON schema that satisfies strict mode:
// every property is required and no additional properties are allowed.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	delete(schemaObj, "$schema")
	delete(schemaObj, "$id")
	ensureStrict(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func ensureStrict(schema map[string]any) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]any); ok {
			var required []string
			for name := range properties {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema[requiredKey] = required
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureStrict(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureStrict(items)
	}
}

// DecodeJSON strictly decodes a model reply into v. Unknown fields are
// rejected. If the reply wraps the object in prose, the outermost {...} block
// is decoded instead.
func DecodeJSON(output string, v any) error {
	s := strings.TrimSpace(output)
	if s == "" {
		return goerr.Wrap(ErrDecodeResponse, io.ErrUnexpectedEOF.Error())
	}

	if err := decodeStrict(s, v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return goerr.Wrap(ErrDecodeResponse, "no JSON object found in model output", goerr.V("len", len(s)))
	}

	if err := decodeStrict(s[start:end+1], v); err != nil {
		return goerr.Wrap(ErrDecodeResponse, err.Error(), goerr.V("len", end+1-start))
	}
	return nil
}

func decodeStrict(s string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return goerr.New("trailing data after JSON object")
	}
	return nil
}
