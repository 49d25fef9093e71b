package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Schema fetches the content-type description from the content-type
// builder plugin and returns its attributes object.
func (c *Client) Schema(ctx context.Context, contentType string) ([]byte, error) {
	target := fmt.Sprintf("%s/api/content-type-builder/content-types/api::%s.%s", c.baseURL, contentType, contentType)
	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	attrs := gjson.GetBytes(body, "data.schema.attributes")
	if !attrs.IsObject() {
		return nil, fmt.Errorf("schema for %s has no attributes", contentType)
	}
	return []byte(attrs.Raw), nil
}

var scalarTypes = map[string]string{
	"string":      "string",
	"text":        "string",
	"richtext":    "string",
	"email":       "string",
	"password":    "string",
	"uid":         "string",
	"date":        "string",
	"datetime":    "string",
	"time":        "string",
	"biginteger":  "string",
	"enumeration": "string",
	"integer":     "integer",
	"decimal":     "number",
	"float":       "number",
	"boolean":     "boolean",
}

// JSONSchema converts Strapi attributes into a JSON Schema document.
// Relations, media, components and blocks are left unconstrained; every
// scalar also accepts null since the CMS omits unset values inconsistently.
func JSONSchema(attributes []byte) ([]byte, error) {
	attrs := gjson.ParseBytes(attributes)
	if !attrs.IsObject() {
		return nil, fmt.Errorf("attributes must be an object")
	}

	props := map[string]any{}
	var required []string
	attrs.ForEach(func(name, def gjson.Result) bool {
		prop := map[string]any{}
		if t, ok := scalarTypes[def.Get("type").String()]; ok {
			prop["type"] = []string{t, "null"}
			if def.Get("type").String() == "enumeration" {
				var enum []any
				def.Get("enum").ForEach(func(_, v gjson.Result) bool {
					enum = append(enum, v.String())
					return true
				})
				prop["enum"] = append(enum, nil)
			}
		}
		props[name.String()] = prop
		if def.Get("required").Bool() {
			required = append(required, name.String())
		}
		return true
	})
	sort.Strings(required)

	doc := map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return json.Marshal(doc)
}

// Validator checks stored items against a compiled content-type schema.
type Validator struct {
	schema *jsonschema.Schema
}

// CompileSchema compiles a JSON Schema document produced by JSONSchema.
func CompileSchema(name string, doc []byte) (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://markket.local/schemas/%s.schema.json", name)
	if err := c.AddResource(schemaURL, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("schema load failed: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("schema compile failed: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks one item's JSON data.
func (v *Validator) Validate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return v.schema.Validate(doc)
}
