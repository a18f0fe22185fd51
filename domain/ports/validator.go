package ports

import "github.com/reglet-dev/extbridge/domain/entities"

// ManifestValidator checks a manifest before any symbol is resolved.
type ManifestValidator interface {
	// Validate checks the manifest declarations.
	Validate(manifest *entities.Manifest) (*entities.ValidationResult, error)
}
