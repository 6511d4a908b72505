// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed tanker.schema.json
var schemaFileJSON []byte

var compiledSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaFileJSON))
	if err != nil {
		panic(fmt.Sprintf("tanker: invalid embedded schema.json: %s", err))
	}
	if err := c.AddResource("tanker.schema.json", doc); err != nil {
		panic(fmt.Sprintf("tanker: invalid embedded schema.json: %s", err))
	}
	sch, err := c.Compile("tanker.schema.json")
	if err != nil {
		panic(fmt.Sprintf("tanker: invalid embedded schema.json: %s", err))
	}
	return sch
}()

// validateDocument validates a schema file's raw YAML against the JSON
// Schema description of the format, before any table records are built,
// mirroring the teacher's validate-before-build sequencing for migration
// files.
func validateDocument(data []byte) error {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("parsing schema file: %w", err)
	}

	// jsonschema validates plain JSON-shaped values (map[string]any /
	// []any), not the map[any]any shape yaml.v3 sometimes produces; round
	// trip through encoding/json to normalize.
	normalized, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("normalizing schema file: %w", err)
	}
	var doc any
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return fmt.Errorf("normalizing schema file: %w", err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		return SchemaError{Reason: fmt.Sprintf("schema file does not match expected format: %s", err)}
	}
	return nil
}
