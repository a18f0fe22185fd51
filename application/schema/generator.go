// Package schema generates JSON Schema documents for the manifest format.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/extbridge/domain/entities"
)

// ManifestSchemaID is the $id of the manifest schema.
const ManifestSchemaID = "https://github.com/reglet-dev/extbridge/manifest.schema.json"

// GenerateSchema reflects v into an indented JSON Schema (draft 2020-12).
func GenerateSchema(v interface{}) ([]byte, error) {
	return marshal(reflector().Reflect(v))
}

// ManifestSchema describes the <module>.ext.yaml sidecar format. Editors
// can point yaml-language-server at it.
func ManifestSchema() ([]byte, error) {
	s := reflector().Reflect(&entities.Manifest{})
	s.ID = ManifestSchemaID
	s.Title = "extbridge extension manifest"
	s.Description = "Declares the entry point and operation signatures of a native or wasm extension."
	return marshal(s)
}

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct: true,
		// Every field of the manifest is optional on disk.
		RequiredFromJSONSchemaTags: true,
	}
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
