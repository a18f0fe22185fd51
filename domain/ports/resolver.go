package ports

import (
	"context"

	"github.com/reglet-dev/extbridge/domain/entities"
)

// ArtifactResolver locates the single artifact for a module below a search
// directory.
type ArtifactResolver interface {
	Resolve(ctx context.Context, searchDir, module string, candidates []entities.Candidate) (entities.Artifact, error)
}
