package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// DefaultManifest is the manifest file name looked up in the template directory.
const DefaultManifest = "templates.yaml"

type manifest struct {
	Version   int               `json:"version"`
	Templates []json.RawMessage `json:"templates"`
	Noise     []manifestNoise   `json:"noise"`
}

type manifestNoise struct {
	Pattern string `json:"pattern"`
	Replace string `json:"replace"`
}

type manifestEntry struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Reference string          `json:"reference"`
	Keywords  []string        `json:"keywords"`
	Fields    []manifestField `json:"fields"`
	Required  []string        `json:"required"`
	Optional  []string        `json:"optional"`
}

type manifestField struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns"`
}

var stringList = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string", "minLength": 1},
}

var manifestSchema = map[string]any{
	"type":     "object",
	"required": []string{"templates"},
	"properties": map[string]any{
		"version": map[string]any{"type": "integer", "minimum": 1},
		"templates": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "object"},
		},
		"noise": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []string{"pattern"},
				"additionalProperties": false,
				"properties": map[string]any{
					"pattern": map[string]any{"type": "string", "minLength": 1},
					"replace": map[string]any{"type": "string"},
				},
			},
		},
	},
}

var entrySchema = map[string]any{
	"type":                 "object",
	"required":             []string{"id", "category", "reference"},
	"additionalProperties": false,
	"properties": map[string]any{
		"id":        map[string]any{"type": "string", "pattern": "^[A-Za-z0-9][A-Za-z0-9_.-]*$"},
		"category":  map[string]any{"type": "string", "minLength": 1},
		"reference": map[string]any{"type": "string", "minLength": 1},
		"keywords":  stringList,
		"fields": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []string{"name", "patterns"},
				"additionalProperties": false,
				"properties": map[string]any{
					"name":     map[string]any{"type": "string", "minLength": 1},
					"patterns": map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string", "minLength": 1}},
				},
			},
		},
		"required": stringList,
		"optional": stringList,
	},
}

var compiledSchemas = sync.OnceValues(func() ([2]*jsonschema.Schema, error) {
	var out [2]*jsonschema.Schema
	for i, m := range []map[string]any{manifestSchema, entrySchema} {
		s, err := compileSchema(m)
		if err != nil {
			return out, err
		}
		out[i] = s
	}
	return out, nil
})

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("does not match schema: %w", err)
	}
	return nil
}

// parseManifest checks the document layout. Entries are returned raw and are
// validated one by one so a bad entry does not sink the others.
func parseManifest(data []byte) (*manifest, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest yaml: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("manifest is empty")
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert manifest to json: %w", err)
	}
	schemas, err := compiledSchemas()
	if err != nil {
		return nil, err
	}
	if err := validateJSON(schemas[0], js); err != nil {
		return nil, fmt.Errorf("manifest %w", err)
	}
	var m manifest
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

func decodeEntry(raw json.RawMessage) (manifestEntry, error) {
	var e manifestEntry
	schemas, err := compiledSchemas()
	if err != nil {
		return e, err
	}
	if err := validateJSON(schemas[1], raw); err != nil {
		return e, fmt.Errorf("entry %w", err)
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}
