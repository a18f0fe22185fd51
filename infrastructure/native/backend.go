package native

import (
	"context"
	"log/slog"
	"runtime"

	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
	"github.com/reglet-dev/extbridge/infrastructure/resolver"
)

// Name identifies the native backend.
const Name = "native"

// Backend implements ports.Backend for shared libraries.
type Backend struct {
	logger *slog.Logger
	goos   string
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// New creates a native backend for the running platform.
func New(opts ...Option) *Backend {
	b := &Backend{
		logger: slog.Default(),
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ ports.Backend = (*Backend)(nil)

func (b *Backend) Name() string {
	return Name
}

// Candidates returns the platform's shared library names for module, or nil
// where shared libraries cannot be opened.
func (b *Backend) Candidates(module string) []string {
	if !platformSupported {
		return nil
	}
	return resolver.SharedLibraryNames(b.goos, module)
}

// Open dlopens the library at path.
func (b *Backend) Open(ctx context.Context, path string) (ports.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainNative, "open of %s cancelled", path)
	}
	so, err := openSharedLibrary(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainNative, "cannot open %s", path)
	}
	b.logger.DebugContext(ctx, "native: library opened", "path", path)
	return &library{so: so, logger: b.logger, path: path}, nil
}
