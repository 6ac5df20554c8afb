package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// condenserSchemaDoc is the embedded JSON Schema for the `condenser`
// section of the configuration file. It is validated before the document
// is unmarshaled into CondenserConfig so malformed tunables surface a
// precise schema error path instead of a generic decode failure.
const condenserSchemaDoc = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"condenser": {
			"type": "object",
			"properties": {
				"max_size": {"type": "integer", "minimum": 1},
				"keep_first": {"type": "integer", "minimum": 0},
				"token_margin_ratio": {"type": "number", "minimum": 0, "exclusiveMaximum": 1},
				"retry": {
					"type": "object",
					"properties": {
						"max_attempts": {"type": "integer", "minimum": 1},
						"factor": {"type": "number", "minimum": 1}
					}
				}
			}
		}
	}
}`

// CondenserSchema returns the raw embedded JSON Schema text used to
// validate a configuration file's `condenser` section.
func CondenserSchema() string {
	return condenserSchemaDoc
}

var (
	condenserSchemaOnce     sync.Once
	condenserSchemaCompiled *jsonschema.Schema
	condenserSchemaErr      error
)

func compiledCondenserSchema() (*jsonschema.Schema, error) {
	condenserSchemaOnce.Do(func() {
		condenserSchemaCompiled, condenserSchemaErr = jsonschema.CompileString("condenser.schema.json", condenserSchemaDoc)
	})
	return condenserSchemaCompiled, condenserSchemaErr
}

// validateCondenserSchema decodes raw YAML into a generic document and
// validates it against condenserSchemaDoc, surfacing InvalidConfig with the
// schema validator's error path on mismatch. The YAML document is
// round-tripped through encoding/json first, since jsonschema/v5 expects
// the plain-JSON value shapes (float64 numbers, map[string]any) that
// json.Unmarshal produces rather than YAML's native decoding.
func validateCondenserSchema(yamlDoc []byte) error {
	var raw any
	decoder := yaml.NewDecoder(bytes.NewReader(yamlDoc))
	if err := decoder.Decode(&raw); err != nil {
		return newInvalidConfigError(fmt.Sprintf("failed to parse config for schema validation: %v", err))
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return newInvalidConfigError(fmt.Sprintf("failed to normalize config for schema validation: %v", err))
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return newInvalidConfigError(fmt.Sprintf("failed to normalize config for schema validation: %v", err))
	}

	schema, err := compiledCondenserSchema()
	if err != nil {
		return fmt.Errorf("config: failed to compile embedded condenser schema: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return newInvalidConfigError(fmt.Sprintf("condenser config failed schema validation: %v", err))
	}
	return nil
}
