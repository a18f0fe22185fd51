package extbridge

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/extbridge/application/validation"
)

// ParseSpec builds a ModuleSpec from decoded configuration, such as a JSON
// or YAML document section, and validates it.
func ParseSpec(config map[string]any) (ModuleSpec, error) {
	var spec ModuleSpec

	jsonBytes, err := json.Marshal(config)
	if err != nil {
		return spec, fmt.Errorf("failed to marshal module config: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, &spec); err != nil {
		return spec, fmt.Errorf("failed to unmarshal module config: %w", err)
	}

	if err := validation.ValidateSpec(spec); err != nil {
		return spec, err
	}
	return spec, nil
}
