package ports

import (
	"context"

	"github.com/reglet-dev/extbridge/domain/entities"
)

// Function invokes one bound operation. Arguments have already been coerced
// to the Go representation of the declared parameter tags.
type Function func(ctx context.Context, args []any) (any, error)

// Backend opens artifacts of one kind (shared libraries, wasm modules).
type Backend interface {
	// Name identifies the backend in artifacts and logs.
	Name() string

	// Candidates returns the artifact file names the backend accepts for the
	// module on the current platform, most preferred first.
	Candidates(module string) []string

	// Open loads the artifact at path into the process. The entry point is
	// not run yet.
	Open(ctx context.Context, path string) (Library, error)
}

// Library is an opened artifact.
type Library interface {
	// Initialize resolves and invokes the entry point once.
	Initialize(ctx context.Context, entryPoint string, manifest *entities.Manifest) error

	// Exports describes the operations the artifact can report on its own,
	// or nil when the format carries no type information.
	Exports() []entities.Operation

	// Bind resolves op and checks it against the artifact, returning a
	// callable for it.
	Bind(op entities.Operation) (Function, error)

	// Reentrant reports whether the artifact tolerates concurrent calls at
	// all. The manifest can only narrow this.
	Reentrant() bool

	// Close releases the artifact. Functions bound from it must not be
	// called afterwards.
	Close(ctx context.Context) error
}
